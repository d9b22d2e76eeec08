package api

import (
	"net/http"

	"ecfresh/internal/repository"
	"ecfresh/internal/service"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type CatalogHandler struct {
	Service  *service.CatalogService
	Checkout *service.CheckoutService
	log      *zap.Logger
}

func NewCatalogHandler(svc *service.CatalogService, checkout *service.CheckoutService, log *zap.Logger) *CatalogHandler {
	return &CatalogHandler{Service: svc, Checkout: checkout, log: log}
}

func (h *CatalogHandler) Banners(w http.ResponseWriter, r *http.Request) {
	banners, err := h.Service.Banners(r.Context())
	if err != nil {
		fail(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, banners)
}

func (h *CatalogHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Service.Categories(r.Context())
	if err != nil {
		fail(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (h *CatalogHandler) Products(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	products, err := h.Service.Products(r.Context(), repository.ProductFilter{
		CategoryID:    q.Get("category"),
		Query:         q.Get("q"),
		AvailableOnly: q.Get("available") == "true",
	})
	if err != nil {
		fail(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *CatalogHandler) Product(w http.ResponseWriter, r *http.Request) {
	p, err := h.Service.Product(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		fail(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *CatalogHandler) DeliverySlots(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Checkout.Slots())
}
