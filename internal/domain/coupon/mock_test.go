package coupon

import (
	"context"
	"sync"
)

// memStore is an in-memory Store used by the package tests.
type memStore struct {
	mu      sync.Mutex
	coupons map[string]*Coupon
	err     error

	findCalls      int
	incrementCalls int
}

func newMemStore(coupons ...Coupon) *memStore {
	m := &memStore{coupons: make(map[string]*Coupon, len(coupons))}
	for i := range coupons {
		c := coupons[i]
		m.coupons[c.ID] = &c
	}
	return m
}

func (m *memStore) FindActive(_ context.Context, restaurantID, code string) (*Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findCalls++
	if m.err != nil {
		return nil, m.err
	}
	for _, c := range m.coupons {
		if c.Code == code && c.RestaurantID == restaurantID && c.IsActive {
			cp := *c
			return &cp, nil
		}
	}
	return nil, ErrNotFoundOrInactive
}

func (m *memStore) IncrementUses(_ context.Context, id string) (*Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.incrementCalls++
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.coupons[id]
	if !ok {
		return nil, ErrCouponNotFound
	}
	if c.UsageExhausted() {
		return nil, ErrUsageLimitReached
	}
	c.UsesCount++
	cp := *c
	return &cp, nil
}

func (m *memStore) Get(_ context.Context, id string) (*Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.coupons[id]
	if !ok {
		return nil, ErrCouponNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) ListByRestaurant(_ context.Context, restaurantID string) ([]Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []Coupon
	for _, c := range m.coupons {
		if c.RestaurantID == restaurantID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memStore) Create(_ context.Context, c *Coupon) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, existing := range m.coupons {
		if existing.RestaurantID == c.RestaurantID && existing.Code == c.Code {
			return ErrDuplicateCode
		}
	}
	cp := *c
	m.coupons[c.ID] = &cp
	return nil
}

func (m *memStore) Update(_ context.Context, c *Coupon) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.coupons[c.ID]; !ok {
		return ErrCouponNotFound
	}
	cp := *c
	m.coupons[c.ID] = &cp
	return nil
}

func (m *memStore) SetActive(_ context.Context, id string, active bool) (*Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.coupons[id]
	if !ok {
		return nil, ErrCouponNotFound
	}
	c.IsActive = active
	cp := *c
	return &cp, nil
}

func (m *memStore) Delete(_ context.Context, id string) (*Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.coupons[id]
	if !ok {
		return nil, ErrCouponNotFound
	}
	delete(m.coupons, id)
	return c, nil
}

type mockPublisher struct {
	events []RedemptionEvent
	err    error
}

func (m *mockPublisher) PublishRedemption(_ context.Context, ev RedemptionEvent) error {
	m.events = append(m.events, ev)
	return m.err
}
