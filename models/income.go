package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	IncomeSourceTask   = "task"
	IncomeSourceManual = "manual"
	IncomeSourceSale   = "sale"
)

// TotalIncome is an append-only ledger row.
type TotalIncome struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	UserID     uint            `gorm:"not null;index" json:"user_id"`
	TaskID     *uint           `gorm:"index" json:"task_id"`
	Total      decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"total"`
	FromSource string          `gorm:"size:200" json:"from"`
	SourceType string          `gorm:"size:20;not null" json:"source_type"`
	Noted      string          `gorm:"type:text" json:"noted"`
	CreatedAt  time.Time       `gorm:"index" json:"created_at"`
}

func (TotalIncome) TableName() string {
	return "total_income"
}
