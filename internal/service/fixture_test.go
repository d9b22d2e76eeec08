package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ecfresh/internal/cache"
	"ecfresh/internal/db"
	"ecfresh/internal/entities"
	apperrors "ecfresh/internal/errors"
	"ecfresh/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePayments struct {
	mu        sync.Mutex
	sessions  map[string]string // session id -> order id
	refunded  []string
	expired   []string
	failNew   bool
	failRefnd bool
}

func (f *fakePayments) CreateCheckoutSession(order *db.Order, _ string) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNew {
		return "", "", errors.New("stripe unavailable")
	}
	if f.sessions == nil {
		f.sessions = map[string]string{}
	}
	id := "cs_test_" + order.ID
	f.sessions[id] = order.ID
	return "https://checkout.stripe.test/" + id, id, nil
}

func (f *fakePayments) RefundPaymentBySessionID(sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRefnd {
		return errors.New("refund declined")
	}
	f.refunded = append(f.refunded, sessionID)
	return nil
}

func (f *fakePayments) ExpireCheckoutSession(sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expired = append(f.expired, sessionID)
	return nil
}

// flakyOrders fails the next failUpdates writes, and runs beforeUpdate once
// ahead of the next write.
type flakyOrders struct {
	*repository.MemoryStore
	failUpdates  int
	beforeUpdate func()
}

func (s *flakyOrders) UpdateOrder(ctx context.Context, o *db.Order, prev repository.OrderState) error {
	if hook := s.beforeUpdate; hook != nil {
		s.beforeUpdate = nil
		hook()
	}
	if s.failUpdates > 0 {
		s.failUpdates--
		return errors.New("connection reset by peer")
	}
	return s.MemoryStore.UpdateOrder(ctx, o, prev)
}

// flakyAccounts fails the next failAdjust balance adjustments.
type flakyAccounts struct {
	*repository.MemoryAccounts
	failAdjust int
}

func (a *flakyAccounts) AdjustBalances(ctx context.Context, userID string, loyaltyDelta, purchasesDelta decimal.Decimal) error {
	if a.failAdjust > 0 {
		a.failAdjust--
		return errors.New("connection reset by peer")
	}
	return a.MemoryAccounts.AdjustBalances(ctx, userID, loyaltyDelta, purchasesDelta)
}

type sent struct {
	status db.OrderStatus
	email  string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sent
}

func (f *fakeNotifier) OrderUpdate(o db.Order, email string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{status: o.Status, email: email})
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

var ist = time.FixedZone("IST", 5*3600+1800)

// fixtureNow is 11:00 in the store's timezone: morning and afternoon
// cutoffs have passed, evening is still open.
var fixtureNow = time.Date(2026, 3, 10, 11, 0, 0, 0, ist)

type fixture struct {
	store    *repository.MemoryStore
	accounts *repository.MemoryAccounts
	carts    *CartService
	payments *fakePayments
	notifier *fakeNotifier
	checkout *CheckoutService
	orders   *OrderService
	admin    *AdminService

	veg    *db.Category
	onion  *db.Product
	paneer *db.Product
	mint   *db.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	log := zap.NewNop()

	f := &fixture{
		store:    repository.NewMemoryStore(),
		accounts: repository.NewMemoryAccounts(),
		payments: &fakePayments{},
		notifier: &fakeNotifier{},
	}
	f.carts = NewCartService(cache.NewMemoryCartStore(), f.store)
	f.checkout = NewCheckoutService(f.carts, f.accounts, f.store, f.payments, f.notifier, ist, log)
	f.checkout.Now = func() time.Time { return fixtureNow }
	f.orders = NewOrderService(f.store, f.accounts, f.payments, f.notifier, ist, log)
	f.admin = NewAdminService(f.store, log)

	f.veg = &db.Category{Name: "Vegetables", Image: "https://img/veg.jpg", IsActive: true}
	require.NoError(t, f.store.CreateCategory(ctx, f.veg))

	f.onion = &db.Product{Name: "Onion - Curry Cut", CategoryID: f.veg.ID, Image: "https://img/onion.jpg", IsAvailable: true,
		Variants: db.Variants{
			{Weight: db.Weight300g, Price: decimal.NewFromInt(100)},
			{Weight: db.Weight500g, Price: decimal.NewFromInt(175)},
		}}
	f.paneer = &db.Product{Name: "Paneer Cubes", CategoryID: f.veg.ID, Image: "https://img/paneer.jpg", IsAvailable: true,
		Variants: db.Variants{{Weight: db.Weight1kg, Price: decimal.NewFromInt(350)}}}
	f.mint = &db.Product{Name: "Mint Leaves", CategoryID: f.veg.ID, Image: "https://img/mint.jpg", IsAvailable: false,
		Variants: db.Variants{{Weight: db.Weight300g, Price: decimal.NewFromInt(20)}}}
	require.NoError(t, f.store.CreateProducts(ctx, []*db.Product{f.onion, f.paneer, f.mint}))
	return f
}

// cart fills a new cart with the given product/weight/quantity lines.
func (f *fixture) cart(t *testing.T, items ...entities.CartItemRequest) string {
	t.Helper()
	id := uuid.NewString()
	for _, it := range items {
		_, err := f.carts.AddItem(context.Background(), id, it)
		require.NoError(t, err)
	}
	return id
}

func (f *fixture) user(t *testing.T, email string, loyalty, purchases int64) *db.User {
	t.Helper()
	u := &db.User{ID: uuid.NewString(), Email: email, Name: "Asha",
		LoyaltyPoints: decimal.NewFromInt(loyalty), TotalPurchases: decimal.NewFromInt(purchases)}
	require.NoError(t, f.accounts.CreateUser(context.Background(), u))
	return u
}

func (f *fixture) balances(t *testing.T, userID string) (loyalty, purchases decimal.Decimal) {
	t.Helper()
	u, err := f.accounts.GetUser(context.Background(), userID)
	require.NoError(t, err)
	return u.LoyaltyPoints, u.TotalPurchases
}

func details() entities.DeliveryDetails {
	return entities.DeliveryDetails{
		Name:     "Asha Rao",
		Phone:    "98765 43210",
		Email:    "asha@example.com",
		Address:  "12 MG Road, Indiranagar",
		PinCode:  "560038",
		Landmark: "Opposite the temple",
	}
}

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got.String())
}

func assertStatus(t *testing.T, err error, code int) {
	t.Helper()
	require.Error(t, err)
	he, ok := apperrors.As(err)
	require.True(t, ok, "expected HTTPError, got %v", err)
	assert.Equal(t, code, he.Code, he.Message)
}
