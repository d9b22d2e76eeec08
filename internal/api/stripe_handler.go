package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"ecfresh/internal/repository"
	"ecfresh/internal/service"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"
)

type StripeWebhookHandler struct {
	StripeSecret string
	orders       *service.OrderService
	log          *zap.Logger
}

func NewStripeWebhookHandler(stripeSecret string, orders *service.OrderService, log *zap.Logger) *StripeWebhookHandler {
	return &StripeWebhookHandler{StripeSecret: stripeSecret, orders: orders, log: log}
}

func (h *StripeWebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	const maxWebhookBytes = int64(65536)
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBytes)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.log.Warn("error reading webhook body", zap.Error(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	event, err := webhook.ConstructEventWithOptions(payload, r.Header.Get("Stripe-Signature"), h.StripeSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		h.log.Warn("webhook signature verification failed", zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	switch event.Type {
	case "checkout.session.completed", "checkout.session.expired":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil || sess.ID == "" {
			h.log.Warn("malformed checkout session event", zap.String("event_id", event.ID), zap.Error(err))
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if event.Type == "checkout.session.completed" {
			_, err = h.orders.ConfirmPayment(r.Context(), sess.ID)
		} else {
			_, err = h.orders.ExpireSession(r.Context(), sess.ID)
		}
		if errors.Is(err, repository.ErrNotFound) {
			// Sessions created outside this store; acknowledge so Stripe stops retrying.
			h.log.Warn("no order for checkout session", zap.String("session_id", sess.ID))
		} else if err != nil {
			h.log.Error("webhook processing failed", zap.String("session_id", sess.ID), zap.Error(err))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	default:
		h.log.Debug("unhandled stripe event", zap.String("type", string(event.Type)))
	}
	w.WriteHeader(http.StatusOK)
}
