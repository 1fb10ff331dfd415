package model

import (
	"fmt"
	"time"

	"golang-options/pkg/common"

	"github.com/shopspring/decimal"
)

type Position struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	AccountID          string          `gorm:"not null;index:idx_positions_series" json:"account_id"`
	Broker             string          `gorm:"not null;index:idx_positions_series" json:"broker"`
	OptionSeries       string          `gorm:"not null;index:idx_positions_series" json:"option_series"`
	Underlying         string          `json:"underlying"`
	Direction          Direction       `gorm:"type:varchar(8);not null;index:idx_positions_series" json:"direction"`
	Status             PositionStatus  `gorm:"type:varchar(16);not null" json:"status"`
	TotalQuantity      int64           `gorm:"not null" json:"total_quantity"`
	RemainingQuantity  int64           `gorm:"not null" json:"remaining_quantity"`
	AveragePrice       decimal.Decimal `gorm:"type:numeric(24,8);not null" json:"average_price"`
	RealizedProfit     decimal.Decimal `gorm:"type:numeric(24,8);not null" json:"realized_profit"`
	RealizedPercentage decimal.Decimal `gorm:"type:numeric(24,8);not null" json:"realized_percentage"`
	RealizedCostBasis  decimal.Decimal `gorm:"type:numeric(24,8);not null" json:"realized_cost_basis"`
	LotSequence        int             `gorm:"not null" json:"lot_sequence"`
	OpenDate           time.Time       `gorm:"not null" json:"open_date"`
	CloseDate          *time.Time      `json:"close_date"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Position) TableName() string {
	return "positions"
}

func (p Position) SeriesRef() SeriesRef {
	return SeriesRef{
		AccountID:    p.AccountID,
		Broker:       p.Broker,
		OptionSeries: p.OptionSeries,
		Direction:    p.Direction,
	}
}

// SeriesRef identifies the option series a position is built on.
type SeriesRef struct {
	AccountID    string    `json:"account_id" validate:"required"`
	Broker       string    `json:"broker" validate:"required"`
	OptionSeries string    `json:"option_series" validate:"required"`
	Underlying   string    `json:"underlying"`
	Direction    Direction `json:"direction" validate:"required,oneof=BUY SELL"`
}

// Key is the serialization key for every mutation on the series.
func (r SeriesRef) Key() string {
	return fmt.Sprintf(common.KEY_POSITION_SERIES, r.AccountID, r.Broker, r.OptionSeries, r.Direction)
}

type GetPositionsParam struct {
	IDs       []uint
	Series    *SeriesRef
	Statuses  []PositionStatus
	ForUpdate bool
}
