package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Group ties every trade record of one logical position together. Its
// quantities mirror the position and are what reports read.
type Group struct {
	ID                  uint            `gorm:"primaryKey" json:"id"`
	PositionID          uint            `gorm:"not null;uniqueIndex" json:"position_id"`
	OriginalOperationID uint            `gorm:"not null;index" json:"original_operation_id"`
	Status              PositionStatus  `gorm:"type:varchar(16);not null" json:"status"`
	TotalQuantity       int64           `gorm:"not null" json:"total_quantity"`
	RemainingQuantity   int64           `gorm:"not null" json:"remaining_quantity"`
	ClosedQuantity      int64           `gorm:"not null" json:"closed_quantity"`
	AveragePrice        decimal.Decimal `gorm:"type:numeric(24,8);not null" json:"average_price"`
	RealizedProfit      decimal.Decimal `gorm:"type:numeric(24,8);not null" json:"realized_profit"`
	RealizedPercentage  decimal.Decimal `gorm:"type:numeric(24,8);not null" json:"realized_percentage"`
	DayTradeQuantity    int64           `gorm:"not null" json:"day_trade_quantity"`
	DayTradeProfit      decimal.Decimal `gorm:"type:numeric(24,8);not null" json:"day_trade_profit"`
	SwingTradeQuantity  int64           `gorm:"not null" json:"swing_trade_quantity"`
	SwingTradeProfit    decimal.Decimal `gorm:"type:numeric(24,8);not null" json:"swing_trade_profit"`
	NextSequence        int             `gorm:"not null" json:"next_sequence"`
	OpenDate            time.Time       `gorm:"not null" json:"open_date"`
	CloseDate           *time.Time      `json:"close_date"`
	CreatedAt           time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Group) TableName() string {
	return "position_groups"
}

type GroupItem struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	GroupID      uint      `gorm:"not null;uniqueIndex:idx_group_items_sequence" json:"group_id"`
	OperationID  uint      `gorm:"not null;index" json:"operation_id"`
	Role         ItemRole  `gorm:"type:varchar(32);not null" json:"role"`
	Sequence     int       `gorm:"not null;uniqueIndex:idx_group_items_sequence" json:"sequence"`
	Superseded   bool      `gorm:"not null" json:"superseded"`
	SupersededBy *uint     `json:"superseded_by,omitempty"`
	Final        bool      `gorm:"not null" json:"final"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (GroupItem) TableName() string {
	return "position_group_items"
}

func (i GroupItem) IsLive() bool {
	return !i.Superseded
}

// GroupLedger is a group together with its items ordered by sequence.
type GroupLedger struct {
	Group Group
	Items []GroupItem
}

// LiveItems returns the non-superseded items with the given role.
func (l *GroupLedger) LiveItems(role ItemRole) []*GroupItem {
	var out []*GroupItem
	for i := range l.Items {
		if l.Items[i].Role == role && l.Items[i].IsLive() {
			out = append(out, &l.Items[i])
		}
	}
	return out
}

func (l *GroupLedger) ItemsWithRole(role ItemRole) []*GroupItem {
	var out []*GroupItem
	for i := range l.Items {
		if l.Items[i].Role == role {
			out = append(out, &l.Items[i])
		}
	}
	return out
}
