package service

import (
	"sync"
	"testing"

	"ecfresh/internal/db"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSenderService_OrderUpdate(t *testing.T) {
	var mu sync.Mutex
	var subjects, htmls, texts []string
	email := func(to, name, subject, plain, html string) error {
		mu.Lock()
		defer mu.Unlock()
		subjects = append(subjects, subject)
		htmls = append(htmls, html)
		return nil
	}
	sms := func(to, body string) error {
		mu.Lock()
		defer mu.Unlock()
		texts = append(texts, to+" "+body)
		return nil
	}
	s := NewSenderService(email, sms, ist, zap.NewNop())

	order := db.Order{
		ID:            "3f0c9a2e-1111-2222-3333-444455556666",
		Status:        db.OrderStatusConfirmed,
		DeliveryDate:  "2026-03-11",
		TimeSlot:      "morning",
		PaymentMethod: db.PaymentCashOnDelivery,
		Address:       db.Address{Name: "Asha", Phone: "9876543210", Address: "12 MG Road", Landmark: "Temple", PinCode: "560001"},
		Items:         db.OrderItems{{Name: "Onion", Weight: db.Weight300g, Price: decimal.NewFromInt(45), Quantity: 2}},
		Subtotal:      decimal.NewFromInt(90),
		DeliveryFee:   decimal.NewFromInt(40),
		Total:         decimal.NewFromInt(130),
		LoyaltyEarned: decimal.NewFromInt(9),
	}
	s.OrderUpdate(order, "asha@example.com")
	s.Wait()

	require.Len(t, subjects, 1)
	assert.Equal(t, "Order #3f0c9a2e confirmed", subjects[0])
	assert.Contains(t, htmls[0], "Onion (300g) x 2")
	assert.Contains(t, htmls[0], "7:00 AM - 10:00 AM")
	assert.NotContains(t, htmls[0], "Loyalty points used")
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "Total Rs 130.00")
}

func TestSenderService_SkipsUnconfigured(t *testing.T) {
	s := NewSenderService(nil, nil, ist, zap.NewNop())
	s.OrderUpdate(db.Order{ID: "o1", Status: db.OrderStatusCancelled}, "asha@example.com")
	s.Wait()
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(29000), MinorUnits(decimal.NewFromInt(290)))
	assert.Equal(t, int64(15051), MinorUnits(decimal.RequireFromString("150.505")))
}
