package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"ecfresh/internal/db"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// MemoryStore is an in-process Store. Values are copied in and out so callers
// never share state with the store.
type MemoryStore struct {
	mu         sync.RWMutex
	banners    map[string]db.Banner
	categories map[string]db.Category
	products   map[string]db.Product
	orders     map[string]db.Order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		banners:    make(map[string]db.Banner),
		categories: make(map[string]db.Category),
		products:   make(map[string]db.Product),
		orders:     make(map[string]db.Order),
	}
}

func (s *MemoryStore) ListBanners(_ context.Context, activeOnly bool) ([]db.Banner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]db.Banner, 0, len(s.banners))
	for _, b := range s.banners {
		if activeOnly && !b.IsActive {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) GetBanner(_ context.Context, id string) (*db.Banner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.banners[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (s *MemoryStore) CreateBanner(_ context.Context, b *db.Banner) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stamp(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	s.banners[b.ID] = *b
	return nil
}

func (s *MemoryStore) UpdateBanner(_ context.Context, b *db.Banner) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.banners[b.ID]; !ok {
		return ErrNotFound
	}
	b.UpdatedAt = time.Now().UTC()
	s.banners[b.ID] = *b
	return nil
}

func (s *MemoryStore) DeleteBanner(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.banners[id]; !ok {
		return ErrNotFound
	}
	delete(s.banners, id)
	return nil
}

func (s *MemoryStore) ListCategories(_ context.Context, activeOnly bool) ([]db.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]db.Category, 0, len(s.categories))
	for _, c := range s.categories {
		if activeOnly && !c.IsActive {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *MemoryStore) GetCategory(_ context.Context, id string) (*db.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (s *MemoryStore) CreateCategory(_ context.Context, c *db.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stamp(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	s.categories[c.ID] = *c
	return nil
}

func (s *MemoryStore) UpdateCategory(_ context.Context, c *db.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[c.ID]; !ok {
		return ErrNotFound
	}
	c.UpdatedAt = time.Now().UTC()
	s.categories[c.ID] = *c
	return nil
}

func (s *MemoryStore) DeleteCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[id]; !ok {
		return ErrNotFound
	}
	for _, p := range s.products {
		if p.CategoryID == id {
			return ErrConflict
		}
	}
	delete(s.categories, id)
	return nil
}

func (s *MemoryStore) ListProducts(_ context.Context, f ProductFilter) ([]db.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q := strings.ToLower(f.Query)
	out := make([]db.Product, 0, len(s.products))
	for _, p := range s.products {
		if f.CategoryID != "" && p.CategoryID != f.CategoryID {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(p.Name), q) {
			continue
		}
		if f.AvailableOnly && !p.IsAvailable {
			continue
		}
		out = append(out, copyProduct(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) GetProduct(_ context.Context, id string) (*db.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	p = copyProduct(p)
	return &p, nil
}

func (s *MemoryStore) CreateProducts(_ context.Context, products []*db.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range products {
		stamp(&p.ID, &p.CreatedAt, &p.UpdatedAt)
		s.products[p.ID] = copyProduct(*p)
	}
	return nil
}

func (s *MemoryStore) UpdateProduct(_ context.Context, p *db.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[p.ID]; !ok {
		return ErrNotFound
	}
	p.UpdatedAt = time.Now().UTC()
	s.products[p.ID] = copyProduct(*p)
	return nil
}

func (s *MemoryStore) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return ErrNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *MemoryStore) CreateOrder(_ context.Context, o *db.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stamp(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	s.orders[o.ID] = copyOrder(*o)
	return nil
}

func (s *MemoryStore) GetOrder(_ context.Context, id string) (*db.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	o = copyOrder(o)
	return &o, nil
}

func (s *MemoryStore) GetOrderByStripeSession(_ context.Context, sessionID string) (*db.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.orders {
		if sessionID != "" && o.StripeSessionID == sessionID {
			o = copyOrder(o)
			return &o, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListOrders(_ context.Context, f OrderFilter) ([]db.Order, error) {
	return s.filterOrders(func(o db.Order) bool {
		return (f.UserID == "" || o.UserID == f.UserID) && (f.Status == "" || o.Status == f.Status)
	}, true), nil
}

func (s *MemoryStore) UpdateOrder(_ context.Context, o *db.Order, prev OrderState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.orders[o.ID]
	if !ok {
		return ErrNotFound
	}
	if StateOf(&stored) != prev {
		return ErrStale
	}
	o.UpdatedAt = time.Now().UTC()
	stored.Status = o.Status
	stored.PaymentStatus = o.PaymentStatus
	stored.StripeSessionID = o.StripeSessionID
	stored.LoyaltyApplied = o.LoyaltyApplied
	stored.UpdatedAt = o.UpdatedAt
	s.orders[o.ID] = stored
	return nil
}

func (s *MemoryStore) ReassignOrders(_ context.Context, fromUserID, toUserID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, o := range s.orders {
		if o.UserID == fromUserID {
			o.UserID = toUserID
			s.orders[id] = o
		}
	}
	return nil
}

func (s *MemoryStore) ListStalePending(_ context.Context, before time.Time) ([]db.Order, error) {
	return s.filterOrders(func(o db.Order) bool {
		return o.Status == db.OrderStatusPending && o.PaymentMethod == db.PaymentOnline && o.CreatedAt.Before(before)
	}, false), nil
}

func (s *MemoryStore) filterOrders(keep func(db.Order) bool, newestFirst bool) []db.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []db.Order
	for _, o := range s.orders {
		if keep(o) {
			out = append(out, copyOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if newestFirst {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func copyProduct(p db.Product) db.Product {
	p.Variants = append(db.Variants(nil), p.Variants...)
	return p
}

func copyOrder(o db.Order) db.Order {
	o.Items = append(db.OrderItems(nil), o.Items...)
	return o
}

// MemoryAccounts is an in-process AccountDirectory.
type MemoryAccounts struct {
	mu        sync.RWMutex
	users     map[string]db.User
	addresses map[string][]db.Address
}

func NewMemoryAccounts() *MemoryAccounts {
	return &MemoryAccounts{
		users:     make(map[string]db.User),
		addresses: make(map[string][]db.Address),
	}
}

func (m *MemoryAccounts) GetUser(_ context.Context, id string) (*db.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *MemoryAccounts) GetUserByEmail(_ context.Context, email string) (*db.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryAccounts) CreateUser(_ context.Context, u *db.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return ErrConflict
		}
	}
	stamp(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	m.users[u.ID] = *u
	return nil
}

func (m *MemoryAccounts) UpdateProfile(_ context.Context, u *db.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.users[u.ID]
	if !ok {
		return ErrNotFound
	}
	stored.Name, stored.Phone, stored.PinCode = u.Name, u.Phone, u.PinCode
	stored.UpdatedAt = time.Now().UTC()
	m.users[u.ID] = stored
	return nil
}

func (m *MemoryAccounts) AdjustBalances(_ context.Context, userID string, loyaltyDelta, purchasesDelta decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.LoyaltyPoints = u.LoyaltyPoints.Add(loyaltyDelta)
	u.TotalPurchases = u.TotalPurchases.Add(purchasesDelta)
	u.UpdatedAt = time.Now().UTC()
	m.users[userID] = u
	return nil
}

func (m *MemoryAccounts) UpsertDefaultAddress(_ context.Context, a *db.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.IsDefault = true
	list := m.addresses[a.UserID]
	for i := range list {
		if list[i].IsDefault {
			a.ID, a.CreatedAt = list[i].ID, list[i].CreatedAt
			a.UpdatedAt = time.Now().UTC()
			list[i] = *a
			return nil
		}
	}
	stamp(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	m.addresses[a.UserID] = append(list, *a)
	return nil
}

func (m *MemoryAccounts) RekeyUser(_ context.Context, oldID, newID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[oldID]
	if !ok {
		return ErrNotFound
	}
	if _, taken := m.users[newID]; taken {
		return ErrConflict
	}
	delete(m.users, oldID)
	u.ID, u.UpdatedAt = newID, time.Now().UTC()
	m.users[newID] = u

	list := m.addresses[oldID]
	for i := range list {
		list[i].UserID = newID
	}
	delete(m.addresses, oldID)
	if len(list) > 0 {
		m.addresses[newID] = list
	}
	return nil
}

func (m *MemoryAccounts) ListAddresses(_ context.Context, userID string) ([]db.Address, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]db.Address(nil), m.addresses[userID]...), nil
}

// MemoryAdmins is an in-process AdminAuthRepository.
type MemoryAdmins struct {
	mu     sync.RWMutex
	admins map[string]Admin
}

func NewMemoryAdmins() *MemoryAdmins {
	return &MemoryAdmins{admins: make(map[string]Admin)}
}

func (m *MemoryAdmins) GetByEmail(_ context.Context, email string) (*Admin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.admins[strings.ToLower(email)]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (m *MemoryAdmins) CreateNewUser(_ context.Context, email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(email)
	if _, ok := m.admins[key]; ok {
		return ErrConflict
	}
	m.admins[key] = Admin{ID: len(m.admins) + 1, Email: email, PasswordHash: string(hash)}
	return nil
}

var _ Store = (*MemoryStore)(nil)
var _ Store = (*PostgresStore)(nil)
var _ AccountDirectory = (*MemoryAccounts)(nil)
var _ AccountDirectory = (*AccountRepository)(nil)
var _ AdminAuthRepository = (*MemoryAdmins)(nil)
