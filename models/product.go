package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is an item in a user's own catalog.
type Product struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	UserID    uint            `gorm:"not null;index" json:"user_id"`
	Name      string          `gorm:"size:200;not null" json:"name"`
	Price     decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"price"`
	Stock     int             `gorm:"not null;default:0" json:"stock"`
	ImageURL  *string         `gorm:"size:500" json:"image_url"`
	TotalSold int             `gorm:"not null;default:0" json:"total_sold"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Sale records one transaction against a product. The price is frozen at
// the time of sale.
type Sale struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	UserID     uint            `gorm:"not null;index" json:"user_id"`
	ProductID  uint            `gorm:"not null;index" json:"product_id"`
	Quantity   int             `gorm:"not null" json:"quantity"`
	TotalPrice decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"total_price"`
	SaleDate   time.Time       `gorm:"not null;index" json:"sale_date"`

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}
