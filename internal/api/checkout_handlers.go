package api

import (
	"net/http"

	"ecfresh/internal/auth"
	"ecfresh/internal/entities"
	"ecfresh/internal/service"

	"go.uber.org/zap"
)

type CheckoutHandler struct {
	Service *service.CheckoutService
	log     *zap.Logger
}

func NewCheckoutHandler(svc *service.CheckoutService, log *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{Service: svc, log: log}
}

func (h *CheckoutHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req entities.QuoteRequest
	if !decode(w, r, &req) {
		return
	}
	quote, err := h.Service.Quote(r.Context(), customer(r), req)
	if err != nil {
		fail(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req entities.PlaceOrderRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.Service.PlaceOrder(r.Context(), customer(r), req)
	if err != nil {
		fail(w, h.log, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// customer returns the signed-in customer or nil for guests.
func customer(r *http.Request) *auth.Customer {
	c, ok := auth.CustomerFrom(r.Context())
	if !ok {
		return nil
	}
	return &c
}
