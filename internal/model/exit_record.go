package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExitRecord is the append-only trace of one lot slice consumed by an exit.
type ExitRecord struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	PositionID  uint            `gorm:"not null;index" json:"position_id"`
	EntryLotID  uint            `gorm:"not null;index" json:"entry_lot_id"`
	OperationID uint            `gorm:"not null;index" json:"operation_id"`
	Quantity    int64           `gorm:"not null" json:"quantity"`
	EntryPrice  decimal.Decimal `gorm:"type:numeric(24,8);not null" json:"entry_price"`
	ExitPrice   decimal.Decimal `gorm:"type:numeric(24,8);not null" json:"exit_price"`
	ExitDate    time.Time       `gorm:"not null" json:"exit_date"`
	TradeType   TradeType       `gorm:"type:varchar(8);not null" json:"trade_type"`
	ProfitLoss  decimal.Decimal `gorm:"type:numeric(24,8);not null" json:"profit_loss"`
	Percentage  decimal.Decimal `gorm:"type:numeric(24,8);not null" json:"percentage"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (ExitRecord) TableName() string {
	return "exit_records"
}
