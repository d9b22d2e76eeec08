package api

import (
	"net/http"

	"ecfresh/internal/db"
	"ecfresh/internal/entities"
	"ecfresh/internal/service"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type CartHandler struct {
	Service *service.CartService
	log     *zap.Logger
}

func NewCartHandler(svc *service.CartService, log *zap.Logger) *CartHandler {
	return &CartHandler{Service: svc, log: log}
}

func (h *CartHandler) Create(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusCreated, map[string]string{"id": h.Service.NewCartID()})
}

func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.Service.View(r.Context(), mux.Vars(r)["cartID"])
	if err != nil {
		fail(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req entities.CartItemRequest
	if !decode(w, r, &req) {
		return
	}
	view, err := h.Service.AddItem(r.Context(), mux.Vars(r)["cartID"], req)
	if err != nil {
		fail(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *CartHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	var req entities.CartItemRequest
	if !decode(w, r, &req) {
		return
	}
	view, err := h.Service.SetQuantity(r.Context(), mux.Vars(r)["cartID"], req)
	if err != nil {
		fail(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// RemoveItem takes the line from the query: ?product_id=&weight=
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	view, err := h.Service.RemoveItem(r.Context(), mux.Vars(r)["cartID"], q.Get("product_id"), db.Weight(q.Get("weight")))
	if err != nil {
		fail(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Clear(r.Context(), mux.Vars(r)["cartID"]); err != nil {
		fail(w, h.log, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
