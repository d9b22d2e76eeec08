package api

import (
	"net/http"

	"ecfresh/internal/auth"
	"ecfresh/internal/service"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// OrderHandler serves the signed-in customer's own orders.
type OrderHandler struct {
	Service *service.OrderService
	log     *zap.Logger
}

func NewOrderHandler(svc *service.OrderService, log *zap.Logger) *OrderHandler {
	return &OrderHandler{Service: svc, log: log}
}

func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	c, _ := auth.CustomerFrom(r.Context())
	orders, err := h.Service.History(r.Context(), c.ID)
	if err != nil {
		fail(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, _ := auth.CustomerFrom(r.Context())
	o, err := h.Service.Get(r.Context(), c.ID, mux.Vars(r)["id"])
	if err != nil {
		fail(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	c, _ := auth.CustomerFrom(r.Context())
	o, err := h.Service.Cancel(r.Context(), c.ID, mux.Vars(r)["id"])
	if err != nil {
		fail(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}
