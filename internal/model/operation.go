package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Operation is a trade record. Apart from Visibility it is never updated once
// written; consolidated records are superseded by new rows instead.
type Operation struct {
	ID               uint                `gorm:"primaryKey" json:"id"`
	PositionID       uint                `gorm:"not null;index" json:"position_id"`
	AccountID        string              `gorm:"not null" json:"account_id"`
	Broker           string              `gorm:"not null" json:"broker"`
	OptionSeries     string              `gorm:"not null" json:"option_series"`
	Kind             OperationKind       `gorm:"type:varchar(32);not null" json:"kind"`
	Direction        Direction           `gorm:"type:varchar(8);not null" json:"direction"`
	TradeType        TradeType           `gorm:"type:varchar(8)" json:"trade_type,omitempty"`
	Quantity         int64               `gorm:"not null" json:"quantity"`
	EntryPrice       decimal.Decimal     `gorm:"type:numeric(24,8);not null" json:"entry_price"`
	ExitPrice        decimal.NullDecimal `gorm:"type:numeric(24,8)" json:"exit_price"`
	EntryDate        time.Time           `gorm:"not null" json:"entry_date"`
	ExitDate         *time.Time          `json:"exit_date,omitempty"`
	ProfitLoss       decimal.Decimal     `gorm:"type:numeric(24,8);not null" json:"profit_loss"`
	ProfitPercentage decimal.Decimal     `gorm:"type:numeric(24,8);not null" json:"profit_percentage"`
	Visibility       Visibility          `gorm:"type:varchar(8);not null;index" json:"visibility"`
	Details          datatypes.JSON      `gorm:"type:jsonb" json:"details,omitempty"`
	CreatedAt        time.Time           `gorm:"autoCreateTime" json:"created_at"`
}

func (Operation) TableName() string {
	return "operations"
}

func (o Operation) IsHidden() bool {
	return o.Visibility == VisibilityHidden
}

// OperationDetails is stored in Operation.Details for exit and consolidated records.
type OperationDetails struct {
	Scenario string        `json:"scenario,omitempty"`
	Slices   []SliceDetail `json:"slices,omitempty"`
	// OpenValue is the cost basis still open, only on consolidated entries.
	OpenValue *decimal.Decimal `json:"open_value,omitempty"`
	// Day/Swing breakdown, only on consolidated results.
	DayTradeQuantity   int64            `json:"day_trade_quantity,omitempty"`
	DayTradeProfit     *decimal.Decimal `json:"day_trade_profit,omitempty"`
	SwingTradeQuantity int64            `json:"swing_trade_quantity,omitempty"`
	SwingTradeProfit   *decimal.Decimal `json:"swing_trade_profit,omitempty"`
}

type SliceDetail struct {
	EntryLotID uint            `json:"entry_lot_id"`
	Quantity   int64           `json:"quantity"`
	EntryPrice decimal.Decimal `json:"entry_price"`
	EntryDate  time.Time       `json:"entry_date"`
	ProfitLoss decimal.Decimal `json:"profit_loss"`
	Percentage decimal.Decimal `json:"percentage"`
	TradeType  TradeType       `json:"trade_type"`
}

type GetOperationsParam struct {
	PositionID    uint
	IDs           []uint
	IncludeHidden bool
}
