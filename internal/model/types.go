package model

import (
	"database/sql/driver"
	"fmt"
)

type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
)

func (d Direction) Valid() bool {
	return d == DirectionBuy || d == DirectionSell
}

type PositionStatus string

const (
	PositionStatusOpen    PositionStatus = "OPEN"
	PositionStatusPartial PositionStatus = "PARTIAL"
	PositionStatusClosed  PositionStatus = "CLOSED"
)

// TradeType classifies realized quantity. MIXED is only produced for consolidated
// results that aggregate both day and swing slices.
type TradeType string

const (
	TradeTypeDay   TradeType = "DAY"
	TradeTypeSwing TradeType = "SWING"
	TradeTypeMixed TradeType = "MIXED"
)

func (t TradeType) Valid() bool {
	switch t {
	case TradeTypeDay, TradeTypeSwing, TradeTypeMixed:
		return true
	}
	return false
}

type Strategy string

const (
	StrategyFIFO Strategy = "FIFO"
	StrategyLIFO Strategy = "LIFO"
	StrategyAuto Strategy = "AUTO"
)

func (s Strategy) Valid() bool {
	switch s {
	case StrategyFIFO, StrategyLIFO, StrategyAuto:
		return true
	}
	return false
}

type OperationKind string

const (
	OperationKindEntry              OperationKind = "ENTRY"
	OperationKindExit               OperationKind = "EXIT"
	OperationKindConsolidatedEntry  OperationKind = "CONSOLIDATED_ENTRY"
	OperationKindConsolidatedResult OperationKind = "CONSOLIDATED_RESULT"
)

type Visibility string

const (
	VisibilityVisible Visibility = "VISIBLE"
	VisibilityHidden  Visibility = "HIDDEN"
)

// ItemRole tags a group item. The set is closed: values outside it cannot be
// constructed from storage (Scan fails) and every switch over roles in the
// ledger ends in an error branch instead of a default behaviour.
type ItemRole string

const (
	RoleOriginal           ItemRole = "ORIGINAL"
	RolePartialExit        ItemRole = "PARTIAL_EXIT"
	RoleTotalExit          ItemRole = "TOTAL_EXIT"
	RoleConsolidatedEntry  ItemRole = "CONSOLIDATED_ENTRY"
	RoleConsolidatedResult ItemRole = "CONSOLIDATED_RESULT"
	RoleNewEntry           ItemRole = "NEW_ENTRY"
)

// ItemRoles lists every role in ledger order.
func ItemRoles() []ItemRole {
	return []ItemRole{
		RoleOriginal,
		RoleNewEntry,
		RolePartialExit,
		RoleTotalExit,
		RoleConsolidatedEntry,
		RoleConsolidatedResult,
	}
}

func ParseItemRole(s string) (ItemRole, error) {
	for _, r := range ItemRoles() {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown item role %q", s)
}

func (r ItemRole) Valid() bool {
	_, err := ParseItemRole(string(r))
	return err == nil
}

// IsEntry reports whether the role points at an entry trade record.
func (r ItemRole) IsEntry() bool {
	return r == RoleOriginal || r == RoleNewEntry
}

// IsExit reports whether the role points at an exit trade record.
func (r ItemRole) IsExit() bool {
	return r == RolePartialExit || r == RoleTotalExit
}

// IsConsolidated reports whether the role is one of the materialized views.
func (r ItemRole) IsConsolidated() bool {
	return r == RoleConsolidatedEntry || r == RoleConsolidatedResult
}

func (r *ItemRole) Scan(value interface{}) error {
	var raw string
	switch v := value.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan %T into ItemRole", value)
	}
	parsed, err := ParseItemRole(raw)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func (r ItemRole) Value() (driver.Value, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("unknown item role %q", string(r))
	}
	return string(r), nil
}
