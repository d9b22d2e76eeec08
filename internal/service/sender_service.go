package service

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"sync"
	"time"

	"ecfresh/internal/db"
	"ecfresh/internal/delivery"
	"ecfresh/internal/entities"

	"go.uber.org/zap"
)

//go:embed templates/order_email.html
var templateFS embed.FS

var orderEmailTmpl = template.Must(template.ParseFS(templateFS, "templates/order_email.html"))

// Notifier tells a customer about their order. Implementations must not
// block the caller on delivery.
type Notifier interface {
	OrderUpdate(order db.Order, email string)
}

// SenderService sends order emails and texts in the background.
type SenderService struct {
	email EmailFunc
	sms   SMSFunc
	loc   *time.Location
	log   *zap.Logger
	wg    sync.WaitGroup
}

// NewSenderService accepts nil senders; that channel is then skipped.
func NewSenderService(email EmailFunc, sms SMSFunc, loc *time.Location, log *zap.Logger) *SenderService {
	return &SenderService{email: email, sms: sms, loc: loc, log: log}
}

func (s *SenderService) OrderUpdate(order db.Order, email string) {
	subject, headline := orderHeadline(order)
	if s.email != nil && email != "" {
		html, err := s.renderEmail(order, headline)
		if err != nil {
			s.log.Error("rendering order email", zap.String("order_id", order.ID), zap.Error(err))
		}
		plain := fmt.Sprintf("Hello %s,\n\n%s\n\nOrder #%s\nDelivery: %s, %s\nTotal: Rs %s\n\nEC Fresh",
			order.Address.Name, headline, shortID(order.ID), order.DeliveryDate,
			delivery.Label(delivery.Window(order.TimeSlot)), order.Total.StringFixed(2))
		s.async(func() error { return s.email(email, order.Address.Name, subject, plain, html) },
			"email", order.ID)
	}
	if s.sms != nil && order.Address.Phone != "" {
		body := fmt.Sprintf("EC Fresh: %s Order #%s, delivery %s %s. Total Rs %s.",
			headline, shortID(order.ID), order.DeliveryDate,
			delivery.Label(delivery.Window(order.TimeSlot)), order.Total.StringFixed(2))
		s.async(func() error { return s.sms(order.Address.Phone, body) }, "sms", order.ID)
	}
}

// Wait blocks until in-flight notifications finish.
func (s *SenderService) Wait() {
	s.wg.Wait()
}

func (s *SenderService) async(send func() error, channel, orderID string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := send(); err != nil {
			s.log.Warn("notification failed", zap.String("channel", channel), zap.String("order_id", orderID), zap.Error(err))
		}
	}()
}

func (s *SenderService) renderEmail(order db.Order, headline string) (string, error) {
	data := entities.OrderEmailData{
		CustomerName:  order.Address.Name,
		OrderID:       shortID(order.ID),
		Headline:      headline,
		Status:        string(order.Status),
		DeliveryDate:  order.DeliveryDate,
		TimeSlot:      delivery.Label(delivery.Window(order.TimeSlot)),
		Address:       order.Address.Address + ", " + order.Address.Landmark + " - " + order.Address.PinCode,
		Subtotal:      order.Subtotal.StringFixed(2),
		DeliveryFee:   order.DeliveryFee.StringFixed(2),
		LoyaltyUsed:   order.LoyaltyUsed.StringFixed(2),
		Total:         order.Total.StringFixed(2),
		LoyaltyEarned: order.LoyaltyEarned.String(),
		PaymentMethod: paymentLabel(order.PaymentMethod),
		CurrentYear:   time.Now().In(s.loc).Year(),
	}
	for _, it := range order.Items {
		data.Items = append(data.Items, entities.OrderEmailItem{
			Name:     it.Name,
			Weight:   string(it.Weight),
			Quantity: it.Quantity,
			Amount:   it.Price.Mul(decimalInt(it.Quantity)).StringFixed(2),
		})
	}
	var buf bytes.Buffer
	if err := orderEmailTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func orderHeadline(o db.Order) (subject, headline string) {
	id := shortID(o.ID)
	switch o.Status {
	case db.OrderStatusPending:
		return "Complete your payment for order #" + id, "We are waiting for your payment."
	case db.OrderStatusConfirmed:
		return "Order #" + id + " confirmed", "Your order is confirmed."
	case db.OrderStatusPacked:
		return "Order #" + id + " packed", "Your order is packed and on its way soon."
	case db.OrderStatusDelivered:
		return "Order #" + id + " delivered", "Your order has been delivered. Enjoy!"
	case db.OrderStatusCancelled:
		return "Order #" + id + " cancelled", "Your order has been cancelled."
	}
	return "Order #" + id + " update", "Your order was updated."
}

func paymentLabel(m db.PaymentMethod) string {
	if m == db.PaymentOnline {
		return "Paid online"
	}
	return "Cash on delivery"
}

// shortID is the customer-facing order number.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
