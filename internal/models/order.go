package models

import "time"

// Region is the delivery mode chosen during the purchase flow
type Region string

const (
	RegionLima      Region = "lima"      // home delivery, surcharge applies
	RegionProvincia Region = "provincia" // agency pickup, deposit requested
)

// LimaSurcharge is added to the product price for home delivery (soles)
const LimaSurcharge = 10.0

// ProvinciaDeposit is the prepayment requested before agency shipping (soles)
const ProvinciaDeposit = 50.0

// Order represents a confirmed purchase collected through the chat flow
type Order struct {
	ID        uint   `json:"-" gorm:"primaryKey"`
	Reference string `json:"reference" gorm:"uniqueIndex"`
	UserPhone string `json:"user_phone" gorm:"index"`

	ProductCode string `json:"product_code"`
	ProductName string `json:"product_name"`
	Region      Region `json:"region"`

	// Fields extracted from the free-text buffer
	CustomerName string `json:"customer_name"`
	DNI          string `json:"dni"` // Provincia only
	Place        string `json:"place"`

	BasePrice float64 `json:"base_price"`
	Surcharge float64 `json:"surcharge"`
	Total     float64 `json:"total"`

	Status   string `json:"status"`
	Reminded bool   `json:"reminded"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ConfirmedAt *time.Time `json:"confirmed_at"`
}

// Order status constants
const (
	OrderStatusAwaitingPayment = "awaiting_payment"
	OrderStatusConfirmed       = "confirmed"
	OrderStatusExpired         = "expired"
)
