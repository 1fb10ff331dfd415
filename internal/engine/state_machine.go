package engine

import (
	"fmt"
	"time"

	"golang-options/internal/model"

	"github.com/shopspring/decimal"
)

// StatusFor derives the lifecycle status from quantities:
// remaining == 0 is CLOSED, remaining == total is OPEN, anything between is PARTIAL.
func StatusFor(total, remaining int64) model.PositionStatus {
	switch {
	case remaining == 0:
		return model.PositionStatusClosed
	case remaining == total:
		return model.PositionStatusOpen
	default:
		return model.PositionStatusPartial
	}
}

// PositionStateMachine owns every quantity, price and status change of a position.
type PositionStateMachine struct {
	calc ProfitCalculator
}

func NewPositionStateMachine() PositionStateMachine {
	return PositionStateMachine{calc: NewProfitCalculator()}
}

// Open builds a new position from its first entry.
func (m PositionStateMachine) Open(ref model.SeriesRef, quantity int64, price decimal.Decimal, entryDate time.Time) (model.Position, error) {
	if err := checkEntryInputs(0, quantity, price); err != nil {
		return model.Position{}, err
	}
	if !ref.Direction.Valid() {
		return model.Position{}, arithmetic(0, fmt.Sprintf("unknown direction %q", ref.Direction))
	}
	return model.Position{
		AccountID:          ref.AccountID,
		Broker:             ref.Broker,
		OptionSeries:       ref.OptionSeries,
		Underlying:         ref.Underlying,
		Direction:          ref.Direction,
		Status:             model.PositionStatusOpen,
		TotalQuantity:      quantity,
		RemainingQuantity:  quantity,
		AveragePrice:       price,
		RealizedProfit:     decimal.Zero,
		RealizedPercentage: decimal.Zero,
		RealizedCostBasis:  decimal.Zero,
		LotSequence:        1,
		OpenDate:           entryDate,
	}, nil
}

// NewLot builds the lot an entry appends; Sequence comes from the position.
func (m PositionStateMachine) NewLot(position model.Position, operationID uint, quantity int64, price decimal.Decimal, entryDate time.Time) model.EntryLot {
	return model.EntryLot{
		PositionID:        position.ID,
		OperationID:       operationID,
		EntryDate:         entryDate,
		UnitPrice:         price,
		OriginalQuantity:  quantity,
		RemainingQuantity: quantity,
		Sequence:          position.LotSequence,
	}
}

// ApplyEntry adds a lot to an existing position. The average price is taken
// over what is still open: live lot value plus the new entry value, divided by
// the new remaining quantity.
func (m PositionStateMachine) ApplyEntry(position *model.Position, lots []model.EntryLot, quantity int64, price decimal.Decimal) error {
	if err := checkEntryInputs(position.ID, quantity, price); err != nil {
		return err
	}
	if position.Status == model.PositionStatusClosed {
		return invalidLot(position.ID, 0, quantity, 0, "cannot add an entry to a closed position")
	}
	if err := checkConservation(*position, lots); err != nil {
		return err
	}

	liveValue := decimal.Zero
	for _, lot := range lots {
		if lot.IsLive() {
			liveValue = liveValue.Add(lot.RemainingValue())
		}
	}

	newRemaining := position.RemainingQuantity + quantity
	newValue := liveValue.Add(m.calc.Value(price, quantity))

	position.AveragePrice = m.calc.AveragePrice(newValue, newRemaining)
	position.TotalQuantity += quantity
	position.RemainingQuantity = newRemaining
	position.LotSequence++
	position.Status = StatusFor(position.TotalQuantity, position.RemainingQuantity)
	return nil
}

// ApplyExit records a realized consumption. lots must already reflect the
// decrement of this exit.
func (m PositionStateMachine) ApplyExit(position *model.Position, lots []model.EntryLot, quantity int64, profit, costBasis decimal.Decimal, exitDate time.Time) error {
	if quantity <= 0 {
		return arithmetic(position.ID, fmt.Sprintf("exit quantity must be positive, got %d", quantity))
	}
	if costBasis.IsNegative() {
		return arithmetic(position.ID, "cost basis must not be negative")
	}
	if quantity > position.RemainingQuantity {
		return insufficient(position.ID, quantity, position.RemainingQuantity)
	}

	next := *position
	next.RemainingQuantity -= quantity
	next.RealizedProfit = position.RealizedProfit.Add(profit)
	next.RealizedCostBasis = position.RealizedCostBasis.Add(costBasis)
	next.RealizedPercentage = m.calc.PercentageOf(next.RealizedProfit, next.RealizedCostBasis)
	next.Status = StatusFor(next.TotalQuantity, next.RemainingQuantity)

	if err := checkConservation(next, lots); err != nil {
		return err
	}

	if next.RemainingQuantity > 0 {
		liveValue := decimal.Zero
		for _, lot := range lots {
			if lot.IsLive() {
				liveValue = liveValue.Add(lot.RemainingValue())
			}
		}
		next.AveragePrice = m.calc.AveragePrice(liveValue, next.RemainingQuantity)
	} else {
		closed := exitDate
		next.CloseDate = &closed
	}

	*position = next
	return nil
}

// CheckInvariants verifies the status formula and lot conservation.
func (m PositionStateMachine) CheckInvariants(position model.Position, lots []model.EntryLot) error {
	if want := StatusFor(position.TotalQuantity, position.RemainingQuantity); want != position.Status {
		return invalidLot(position.ID, 0, 0, position.RemainingQuantity, fmt.Sprintf("status %s does not match quantities, expected %s", position.Status, want))
	}
	if position.RemainingQuantity < 0 || position.RemainingQuantity > position.TotalQuantity {
		return invalidLot(position.ID, 0, position.TotalQuantity, position.RemainingQuantity, "remaining quantity out of range")
	}
	if (position.Status == model.PositionStatusClosed) != (position.CloseDate != nil) {
		return invalidLot(position.ID, 0, 0, position.RemainingQuantity, "close date must be set exactly when closed")
	}
	return checkConservation(position, lots)
}

func checkConservation(position model.Position, lots []model.EntryLot) error {
	var sum int64
	for _, lot := range lots {
		if lot.RemainingQuantity < 0 || lot.RemainingQuantity > lot.OriginalQuantity {
			return invalidLot(position.ID, lot.ID, 0, lot.RemainingQuantity, "remaining quantity out of range")
		}
		sum += lot.RemainingQuantity
	}
	if sum != position.RemainingQuantity {
		return invalidLot(position.ID, 0, position.RemainingQuantity, sum, "lot remaining quantities do not add up to the position")
	}
	return nil
}

func checkEntryInputs(positionID uint, quantity int64, price decimal.Decimal) error {
	if quantity <= 0 {
		return arithmetic(positionID, fmt.Sprintf("entry quantity must be positive, got %d", quantity))
	}
	// percentages are taken against the entry price, so it must be positive
	if !price.IsPositive() {
		return arithmetic(positionID, fmt.Sprintf("entry price must be positive, got %s", price))
	}
	return nil
}
