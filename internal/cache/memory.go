package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// MemoryCartStore keeps carts in process. Entries never expire.
type MemoryCartStore struct {
	mu    sync.Mutex
	carts map[string][]byte
}

func NewMemoryCartStore() *MemoryCartStore {
	return &MemoryCartStore{carts: make(map[string][]byte)}
}

func (m *MemoryCartStore) Get(_ context.Context, cartID string) (*Cart, error) {
	m.mu.Lock()
	data, ok := m.carts[cartID]
	m.mu.Unlock()
	if !ok {
		return nil, ErrCartNotFound
	}
	var cart Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (m *MemoryCartStore) Save(_ context.Context, cart *Cart) error {
	cart.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(cart)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.carts[cart.ID] = data
	m.mu.Unlock()
	return nil
}

func (m *MemoryCartStore) Delete(_ context.Context, cartID string) error {
	m.mu.Lock()
	delete(m.carts, cartID)
	m.mu.Unlock()
	return nil
}

var (
	_ CartStore = (*RedisCartStore)(nil)
	_ CartStore = (*MemoryCartStore)(nil)
)
