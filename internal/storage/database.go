package storage

import (
	"time"

	"gorm.io/gorm"

	"github.com/tiendasmegan/megan-bot-backend/internal/models"
)

// DatabaseStore persists orders in PostgreSQL via GORM
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore creates a database-backed store
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

func (d *DatabaseStore) CreateOrder(order *models.Order) (*models.Order, error) {
	if err := d.db.Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (d *DatabaseStore) GetOrderByReference(reference string) (*models.Order, error) {
	var order models.Order
	if err := d.db.Where("reference = ?", reference).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (d *DatabaseStore) GetOrdersByStatus(status string) ([]*models.Order, error) {
	var orders []*models.Order
	if err := d.db.Where("status = ?", status).Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (d *DatabaseStore) GetLatestOrderForUser(userPhone string) (*models.Order, error) {
	var order models.Order
	err := d.db.Where("user_phone = ?", userPhone).Order("created_at DESC").First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (d *DatabaseStore) GetStaleOrders(status string, olderThan time.Duration) ([]*models.Order, error) {
	cutoff := time.Now().Add(-olderThan)
	var orders []*models.Order
	err := d.db.Where("status = ? AND created_at < ?", status, cutoff).Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (d *DatabaseStore) UpdateOrder(order *models.Order) error {
	return d.db.Save(order).Error
}

func (d *DatabaseStore) CountOrders() (int64, error) {
	var count int64
	err := d.db.Model(&models.Order{}).Count(&count).Error
	return count, err
}
