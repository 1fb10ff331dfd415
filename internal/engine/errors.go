package engine

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInsufficientQuantity      = errors.New("insufficient quantity")
	ErrInvalidLotState           = errors.New("invalid lot state")
	ErrInconsistentGroupState    = errors.New("inconsistent group state")
	ErrArithmeticPolicyViolation = errors.New("arithmetic policy violation")

	ErrUnknownStrategy  = errors.New("unknown lot selection strategy")
	ErrUnknownTradeType = errors.New("unknown trade type")
	ErrUnknownRole      = errors.New("unknown item role")
)

// PositionError carries enough context for the caller to act on a rejected
// entry or exit. It unwraps to one of the sentinel errors above.
type PositionError struct {
	Err        error
	PositionID uint
	LotID      uint
	Requested  int64
	Available  int64
	Detail     string
}

func (e *PositionError) Error() string {
	var b strings.Builder
	b.WriteString(e.Err.Error())
	if e.PositionID != 0 {
		fmt.Fprintf(&b, ": position %d", e.PositionID)
	}
	if e.LotID != 0 {
		fmt.Fprintf(&b, " lot %d", e.LotID)
	}
	if e.Requested != 0 || e.Available != 0 {
		fmt.Fprintf(&b, " (requested %d, available %d)", e.Requested, e.Available)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

func (e *PositionError) Unwrap() error {
	return e.Err
}

func insufficient(positionID uint, requested, available int64) error {
	return &PositionError{Err: ErrInsufficientQuantity, PositionID: positionID, Requested: requested, Available: available}
}

func invalidLot(positionID, lotID uint, requested, available int64, detail string) error {
	return &PositionError{Err: ErrInvalidLotState, PositionID: positionID, LotID: lotID, Requested: requested, Available: available, Detail: detail}
}

func arithmetic(positionID uint, detail string) error {
	return &PositionError{Err: ErrArithmeticPolicyViolation, PositionID: positionID, Detail: detail}
}

// InconsistentGroup builds the data-integrity error raised by the ledger.
func InconsistentGroup(positionID uint, detail string) error {
	return &PositionError{Err: ErrInconsistentGroupState, PositionID: positionID, Detail: detail}
}
