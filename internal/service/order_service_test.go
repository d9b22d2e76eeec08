package service

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"ecfresh/internal/auth"
	"ecfresh/internal/db"
	"ecfresh/internal/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func placeCash(t *testing.T, f *fixture, customer *auth.Customer, qty int) *db.Order {
	t.Helper()
	cartID := f.cart(t, entities.CartItemRequest{ProductID: f.onion.ID, Weight: db.Weight300g, Quantity: qty})
	resp, err := f.checkout.PlaceOrder(context.Background(), customer, placeReq(cartID, db.PaymentCashOnDelivery))
	require.NoError(t, err)
	return resp.Order
}

func TestOrderService_CustomerCancelRevertsLoyalty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "asha@example.com", 500, 1200)
	customer := &auth.Customer{ID: u.ID}

	cartID := f.cart(t, entities.CartItemRequest{ProductID: f.onion.ID, Weight: db.Weight300g, Quantity: 4})
	req := placeReq(cartID, db.PaymentCashOnDelivery)
	req.UseLoyalty = true
	resp, err := f.checkout.PlaceOrder(ctx, customer, req)
	require.NoError(t, err)

	loyalty, _ := f.balances(t, u.ID)
	assertDec(t, "340", loyalty)

	cancelled, err := f.orders.Cancel(ctx, u.ID, resp.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, db.OrderStatusCancelled, cancelled.Status)
	assert.Empty(t, f.payments.refunded)

	loyalty, purchases := f.balances(t, u.ID)
	assertDec(t, "500", loyalty)
	assertDec(t, "1200", purchases)

	_, err = f.orders.Cancel(ctx, u.ID, resp.Order.ID)
	assertStatus(t, err, http.StatusConflict)
}

func TestOrderService_CancelOwnershipAndDelivered(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "asha@example.com", 0, 0)
	o := placeCash(t, f, &auth.Customer{ID: u.ID}, 1)

	_, err := f.orders.Cancel(ctx, "someone-else", o.ID)
	assertStatus(t, err, http.StatusNotFound)

	for _, st := range []string{"packed", "delivered"} {
		_, err = f.orders.UpdateStatus(ctx, o.ID, st)
		require.NoError(t, err)
	}
	_, err = f.orders.Cancel(ctx, u.ID, o.ID)
	assertStatus(t, err, http.StatusConflict)

	got, err := f.orders.Get(ctx, u.ID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, db.PaymentStatusPaid, got.PaymentStatus)
}

func TestOrderService_CancelPaidOnlineRefunds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "asha@example.com", 0, 0)
	cartID := f.cart(t, entities.CartItemRequest{ProductID: f.paneer.ID, Weight: db.Weight1kg, Quantity: 1})
	resp, err := f.checkout.PlaceOrder(ctx, &auth.Customer{ID: u.ID}, placeReq(cartID, db.PaymentOnline))
	require.NoError(t, err)
	session := "cs_test_" + resp.Order.ID
	_, err = f.orders.ConfirmPayment(ctx, session)
	require.NoError(t, err)

	f.payments.failRefnd = true
	_, err = f.orders.Cancel(ctx, u.ID, resp.Order.ID)
	assertStatus(t, err, http.StatusBadGateway)
	still, _ := f.orders.Get(ctx, u.ID, resp.Order.ID)
	assert.Equal(t, db.OrderStatusConfirmed, still.Status)

	f.payments.failRefnd = false
	o, err := f.orders.Cancel(ctx, u.ID, resp.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, db.PaymentStatusRefunded, o.PaymentStatus)
	assert.Equal(t, []string{session}, f.payments.refunded)

	loyalty, purchases := f.balances(t, u.ID)
	assertDec(t, "0", loyalty)
	assertDec(t, "0", purchases)
}

func TestOrderService_AdminTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := placeCash(t, f, nil, 1)

	_, err := f.orders.UpdateStatus(ctx, o.ID, "delivered")
	assertStatus(t, err, http.StatusConflict)
	_, err = f.orders.UpdateStatus(ctx, o.ID, "shipped")
	assertStatus(t, err, http.StatusBadRequest)
	_, err = f.orders.UpdateStatus(ctx, "missing", "packed")
	assertStatus(t, err, http.StatusNotFound)

	packed, err := f.orders.UpdateStatus(ctx, o.ID, "packed")
	require.NoError(t, err)
	assert.Equal(t, db.OrderStatusPacked, packed.Status)

	cancelled, err := f.orders.UpdateStatus(ctx, o.ID, "cancelled")
	require.NoError(t, err)
	assert.Equal(t, db.OrderStatusCancelled, cancelled.Status)
	loyalty, purchases := f.balances(t, o.UserID)
	assertDec(t, "0", loyalty)
	assertDec(t, "0", purchases)

	_, err = f.orders.UpdateStatus(ctx, o.ID, "confirmed")
	assertStatus(t, err, http.StatusConflict)

	list, err := f.orders.List(ctx, "cancelled")
	require.NoError(t, err)
	assert.Len(t, list, 1)
	list, err = f.orders.List(ctx, "pending")
	require.NoError(t, err)
	assert.Empty(t, list)
	_, err = f.orders.List(ctx, "lost")
	assertStatus(t, err, http.StatusBadRequest)
}

func TestOrderService_ExpireSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cartID := f.cart(t, entities.CartItemRequest{ProductID: f.onion.ID, Weight: db.Weight300g, Quantity: 1})
	resp, err := f.checkout.PlaceOrder(ctx, nil, placeReq(cartID, db.PaymentOnline))
	require.NoError(t, err)

	o, err := f.orders.ExpireSession(ctx, "cs_test_"+resp.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, db.OrderStatusCancelled, o.Status)
	assert.Equal(t, db.PaymentStatusFailed, o.PaymentStatus)

	// late completion after expiry leaves the order cancelled and refunds it
	o, err = f.orders.ConfirmPayment(ctx, "cs_test_"+resp.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, db.OrderStatusCancelled, o.Status)
	assert.Equal(t, db.PaymentStatusRefunded, o.PaymentStatus)
}

func TestJobService_CancelsUnpaidOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cartID := f.cart(t, entities.CartItemRequest{ProductID: f.onion.ID, Weight: db.Weight300g, Quantity: 1})
	online, err := f.checkout.PlaceOrder(ctx, nil, placeReq(cartID, db.PaymentOnline))
	require.NoError(t, err)
	cash := placeCash(t, f, nil, 1)

	jobs := NewJobService(f.orders, zap.NewNop())
	require.NoError(t, jobs.CancelUnpaidOrders(ctx))
	got, _ := f.store.GetOrder(ctx, online.Order.ID)
	assert.Equal(t, db.OrderStatusPending, got.Status, "still within the payment window")

	jobs.now = func() time.Time { return time.Now().Add(PaymentTimeout + time.Minute) }
	require.NoError(t, jobs.CancelUnpaidOrders(ctx))
	got, _ = f.store.GetOrder(ctx, online.Order.ID)
	assert.Equal(t, db.OrderStatusCancelled, got.Status)
	got, _ = f.store.GetOrder(ctx, cash.ID)
	assert.Equal(t, db.OrderStatusConfirmed, got.Status)
	assert.Equal(t, []string{"cs_test_" + online.Order.ID}, f.payments.expired)
}

func placeOnline(t *testing.T, f *fixture) *db.Order {
	t.Helper()
	cartID := f.cart(t, entities.CartItemRequest{ProductID: f.onion.ID, Weight: db.Weight500g, Quantity: 2})
	resp, err := f.checkout.PlaceOrder(context.Background(), nil, placeReq(cartID, db.PaymentOnline))
	require.NoError(t, err)
	return resp.Order
}

func TestOrderService_PaymentAfterStaleCancelIsRefunded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := placeOnline(t, f)
	session := "cs_test_" + o.ID

	n, err := f.orders.CancelStalePending(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{session}, f.payments.expired)

	f.payments.failRefnd = true
	_, err = f.orders.ConfirmPayment(ctx, session)
	require.Error(t, err, "the webhook must fail so the provider redelivers")
	got, _ := f.store.GetOrder(ctx, o.ID)
	assert.Equal(t, db.PaymentStatusFailed, got.PaymentStatus)

	f.payments.failRefnd = false
	for i := 0; i < 2; i++ {
		got, err = f.orders.ConfirmPayment(ctx, session)
		require.NoError(t, err)
		assert.Equal(t, db.OrderStatusCancelled, got.Status)
		assert.Equal(t, db.PaymentStatusRefunded, got.PaymentStatus)
	}
	assert.Equal(t, []string{session}, f.payments.refunded)

	loyalty, purchases := f.balances(t, o.UserID)
	assertDec(t, "0", loyalty)
	assertDec(t, "0", purchases)
	assert.Zero(t, f.notifier.count())
}

func TestOrderService_CustomerCancelClosesSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "asha@example.com", 0, 0)
	cartID := f.cart(t, entities.CartItemRequest{ProductID: f.onion.ID, Weight: db.Weight300g, Quantity: 1})
	resp, err := f.checkout.PlaceOrder(ctx, &auth.Customer{ID: u.ID}, placeReq(cartID, db.PaymentOnline))
	require.NoError(t, err)
	session := "cs_test_" + resp.Order.ID

	o, err := f.orders.Cancel(ctx, u.ID, resp.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, db.PaymentStatusFailed, o.PaymentStatus)
	assert.Equal(t, []string{session}, f.payments.expired)

	_, err = f.orders.ConfirmPayment(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, []string{session}, f.payments.refunded)
}

func TestOrderService_FailedSaveDoesNotBookTwice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := placeOnline(t, f)

	flaky := &flakyOrders{MemoryStore: f.store, failUpdates: 1}
	orders := NewOrderService(flaky, f.accounts, f.payments, f.notifier, ist, zap.NewNop())

	_, err := orders.ConfirmPayment(ctx, "cs_test_"+o.ID)
	require.Error(t, err)
	loyalty, purchases := f.balances(t, o.UserID)
	assertDec(t, "0", loyalty)
	assertDec(t, "0", purchases)

	confirmed, err := orders.ConfirmPayment(ctx, "cs_test_"+o.ID)
	require.NoError(t, err)
	assert.True(t, confirmed.LoyaltyApplied)
	loyalty, purchases = f.balances(t, o.UserID)
	assertDec(t, "100", loyalty)
	assertDec(t, "350", purchases)
}

func TestOrderService_FailedBookingReleasesOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := placeOnline(t, f)

	accounts := &flakyAccounts{MemoryAccounts: f.accounts, failAdjust: 1}
	orders := NewOrderService(f.store, accounts, f.payments, f.notifier, ist, zap.NewNop())

	_, err := orders.ConfirmPayment(ctx, "cs_test_"+o.ID)
	require.Error(t, err)
	got, _ := f.store.GetOrder(ctx, o.ID)
	assert.Equal(t, db.OrderStatusPending, got.Status)
	assert.False(t, got.LoyaltyApplied)

	_, err = orders.ConfirmPayment(ctx, "cs_test_"+o.ID)
	require.NoError(t, err)
	_, err = orders.ConfirmPayment(ctx, "cs_test_"+o.ID)
	require.NoError(t, err)
	loyalty, purchases := f.balances(t, o.UserID)
	assertDec(t, "100", loyalty)
	assertDec(t, "350", purchases)
}

func TestOrderService_ConcurrentConfirmBooksOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := placeOnline(t, f)
	session := "cs_test_" + o.ID

	// another webhook delivery wins between our read and our write
	flaky := &flakyOrders{MemoryStore: f.store, beforeUpdate: func() {
		_, err := f.orders.ConfirmPayment(ctx, session)
		require.NoError(t, err)
	}}
	orders := NewOrderService(flaky, f.accounts, f.payments, f.notifier, ist, zap.NewNop())

	got, err := orders.ConfirmPayment(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, db.OrderStatusConfirmed, got.Status)

	loyalty, purchases := f.balances(t, o.UserID)
	assertDec(t, "100", loyalty)
	assertDec(t, "350", purchases)
	assert.Equal(t, 1, f.notifier.count())
}

func TestOrderService_ConcurrentCancelRefundsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "asha@example.com", 0, 0)
	cartID := f.cart(t, entities.CartItemRequest{ProductID: f.paneer.ID, Weight: db.Weight1kg, Quantity: 1})
	resp, err := f.checkout.PlaceOrder(ctx, &auth.Customer{ID: u.ID}, placeReq(cartID, db.PaymentOnline))
	require.NoError(t, err)
	_, err = f.orders.ConfirmPayment(ctx, "cs_test_"+resp.Order.ID)
	require.NoError(t, err)

	flaky := &flakyOrders{MemoryStore: f.store, beforeUpdate: func() {
		_, err := f.orders.UpdateStatus(ctx, resp.Order.ID, "cancelled")
		require.NoError(t, err)
	}}
	orders := NewOrderService(flaky, f.accounts, f.payments, f.notifier, ist, zap.NewNop())

	_, err = orders.Cancel(ctx, u.ID, resp.Order.ID)
	assertStatus(t, err, http.StatusConflict)
	assert.Len(t, f.payments.refunded, 1)

	loyalty, purchases := f.balances(t, u.ID)
	assertDec(t, "0", loyalty)
	assertDec(t, "0", purchases)
}

func TestOrderService_ExportAndHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "ravi@example.com", 0, 0)
	o := placeCash(t, f, &auth.Customer{ID: u.ID}, 2)
	placeCash(t, f, nil, 1)

	history, err := f.orders.History(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, o.ID, history[0].ID)

	var buf bytes.Buffer
	require.NoError(t, f.orders.Export(ctx, &buf, ""))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 3)
	assert.Contains(t, buf.String(), "5:00 PM - 8:00 PM")
}
