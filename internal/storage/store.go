package storage

import (
	"time"

	"github.com/tiendasmegan/megan-bot-backend/internal/models"
)

var storeInstance Store

// SetStore sets the global store instance (call from main.go)
func SetStore(s Store) {
	storeInstance = s
}

// GetStore returns the global store instance
func GetStore() Store {
	return storeInstance
}

// Store defines the interface for order persistence
type Store interface {
	CreateOrder(order *models.Order) (*models.Order, error)
	GetOrderByReference(reference string) (*models.Order, error)
	GetOrdersByStatus(status string) ([]*models.Order, error)
	GetLatestOrderForUser(userPhone string) (*models.Order, error)
	GetStaleOrders(status string, olderThan time.Duration) ([]*models.Order, error)
	UpdateOrder(order *models.Order) error
	CountOrders() (int64, error)
}
