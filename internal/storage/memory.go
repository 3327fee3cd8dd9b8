package storage

import (
	"fmt"
	"sync"
	"time"

	"github.com/tiendasmegan/megan-bot-backend/internal/models"
)

// MemoryStore holds all orders in memory, used for development and tests
type MemoryStore struct {
	orders map[string]*models.Order

	orderMu sync.RWMutex

	orderCounter uint
}

// NewMemoryStore creates a new in-memory storage
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders: make(map[string]*models.Order),
	}
}

func (m *MemoryStore) CreateOrder(order *models.Order) (*models.Order, error) {
	m.orderMu.Lock()
	defer m.orderMu.Unlock()

	if order.Reference == "" {
		return nil, fmt.Errorf("order reference is required")
	}
	if _, exists := m.orders[order.Reference]; exists {
		return nil, fmt.Errorf("order %s already exists", order.Reference)
	}

	m.orderCounter++
	order.ID = m.orderCounter
	order.CreatedAt = time.Now()
	order.UpdatedAt = time.Now()

	m.orders[order.Reference] = order
	return order, nil
}

func (m *MemoryStore) GetOrderByReference(reference string) (*models.Order, error) {
	m.orderMu.RLock()
	defer m.orderMu.RUnlock()

	order, exists := m.orders[reference]
	if !exists {
		return nil, fmt.Errorf("order not found")
	}
	return order, nil
}

func (m *MemoryStore) GetOrdersByStatus(status string) ([]*models.Order, error) {
	m.orderMu.RLock()
	defer m.orderMu.RUnlock()

	var orders []*models.Order
	for _, order := range m.orders {
		if order.Status == status {
			orders = append(orders, order)
		}
	}
	return orders, nil
}

func (m *MemoryStore) GetLatestOrderForUser(userPhone string) (*models.Order, error) {
	m.orderMu.RLock()
	defer m.orderMu.RUnlock()

	var latest *models.Order
	for _, order := range m.orders {
		if order.UserPhone != userPhone {
			continue
		}
		if latest == nil || order.CreatedAt.After(latest.CreatedAt) {
			latest = order
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("no orders for user")
	}
	return latest, nil
}

func (m *MemoryStore) GetStaleOrders(status string, olderThan time.Duration) ([]*models.Order, error) {
	m.orderMu.RLock()
	defer m.orderMu.RUnlock()

	cutoff := time.Now().Add(-olderThan)
	var orders []*models.Order
	for _, order := range m.orders {
		if order.Status == status && order.CreatedAt.Before(cutoff) {
			orders = append(orders, order)
		}
	}
	return orders, nil
}

func (m *MemoryStore) UpdateOrder(order *models.Order) error {
	m.orderMu.Lock()
	defer m.orderMu.Unlock()

	if _, exists := m.orders[order.Reference]; !exists {
		return fmt.Errorf("order not found")
	}

	order.UpdatedAt = time.Now()
	m.orders[order.Reference] = order
	return nil
}

func (m *MemoryStore) CountOrders() (int64, error) {
	m.orderMu.RLock()
	defer m.orderMu.RUnlock()

	return int64(len(m.orders)), nil
}
