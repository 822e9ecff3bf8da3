package checkout

import (
	"context"
	"fmt"
	"sync"

	"github.com/freshmart/grocery-service/internal/domain"
)

// memStore is an in-memory Store/ProductReader with real transaction
// semantics: writes are staged per transaction and applied only when the
// transaction function returns nil, and transactions are serialized, so
// concurrent commits observe the same guarantees the database gives.
type memStore struct {
	mu       sync.Mutex
	products map[string]*domain.Product
	orders   map[string]*domain.Order
	nextID   int
}

func newMemStore() *memStore {
	return &memStore{
		products: make(map[string]*domain.Product),
		orders:   make(map[string]*domain.Order),
	}
}

func (s *memStore) addProduct(id, name string, priceCents int64, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[id] = &domain.Product{
		ID:             id,
		Name:           name,
		PriceCents:     priceCents,
		QuantityOnHand: quantity,
		Category:       domain.CategorySnacks,
		CreatedBy:      "admin-1",
	}
}

func (s *memStore) setPrice(id string, priceCents int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[id].PriceCents = priceCents
}

func (s *memStore) quantity(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id].QuantityOnHand
}

func (s *memStore) order(id string) *domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders[id]
}

func (s *memStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func (s *memStore) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[id]
	if !ok {
		return nil, nil
	}
	copied := *product
	return &copied, nil
}

func (s *memStore) InTx(_ context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		store:      s,
		decrements: make(map[string]int),
		totals:     make(map[string]int64),
	}
	if err := fn(tx); err != nil {
		// Staged writes are discarded: nothing became visible.
		return err
	}

	tx.apply()
	return nil
}

type memTx struct {
	store      *memStore
	orders     []*domain.Order
	lines      []domain.OrderLine
	decrements map[string]int
	totals     map[string]int64
}

func (t *memTx) CreateOrder(_ context.Context, order *domain.Order) error {
	t.store.nextID++
	order.ID = fmt.Sprintf("order-%d", t.store.nextID)
	staged := *order
	t.orders = append(t.orders, &staged)
	return nil
}

func (t *memTx) DecrementStock(_ context.Context, productID string, quantity int) (int64, bool, error) {
	product, ok := t.store.products[productID]
	if !ok {
		return 0, false, nil
	}

	onHand := product.QuantityOnHand - t.decrements[productID]
	if onHand < quantity {
		return 0, false, nil
	}

	t.decrements[productID] += quantity
	return product.PriceCents, true, nil
}

func (t *memTx) FindProduct(_ context.Context, productID string) (*domain.Product, error) {
	product, ok := t.store.products[productID]
	if !ok {
		return nil, nil
	}
	copied := *product
	copied.QuantityOnHand -= t.decrements[productID]
	return &copied, nil
}

func (t *memTx) AddLine(_ context.Context, orderID, productID string, quantity int, unitPriceCents int64) (domain.OrderLine, error) {
	line := domain.OrderLine{
		ID:             fmt.Sprintf("line-%d", len(t.lines)+1),
		OrderID:        orderID,
		ProductID:      productID,
		Quantity:       quantity,
		UnitPriceCents: unitPriceCents,
	}
	t.lines = append(t.lines, line)
	return line, nil
}

func (t *memTx) SetOrderTotal(_ context.Context, orderID string, totalCents int64) error {
	t.totals[orderID] = totalCents
	return nil
}

func (t *memTx) apply() {
	for productID, quantity := range t.decrements {
		t.store.products[productID].QuantityOnHand -= quantity
	}
	for _, order := range t.orders {
		if total, ok := t.totals[order.ID]; ok {
			order.TotalCents = total
		}
		t.store.orders[order.ID] = order
	}
	for _, line := range t.lines {
		order := t.store.orders[line.OrderID]
		order.Lines = append(order.Lines, line)
	}
}
