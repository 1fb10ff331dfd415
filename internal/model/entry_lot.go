package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type EntryLot struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	PositionID        uint            `gorm:"not null;index" json:"position_id"`
	OperationID       uint            `gorm:"not null" json:"operation_id"`
	EntryDate         time.Time       `gorm:"not null" json:"entry_date"`
	UnitPrice         decimal.Decimal `gorm:"type:numeric(24,8);not null" json:"unit_price"`
	OriginalQuantity  int64           `gorm:"not null" json:"original_quantity"`
	RemainingQuantity int64           `gorm:"not null" json:"remaining_quantity"`
	Sequence          int             `gorm:"not null" json:"sequence"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (EntryLot) TableName() string {
	return "entry_lots"
}

func (l EntryLot) IsLive() bool {
	return l.RemainingQuantity > 0
}

// RemainingValue is the cost basis still open on the lot.
func (l EntryLot) RemainingValue() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(l.RemainingQuantity))
}
