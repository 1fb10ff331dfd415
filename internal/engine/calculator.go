package engine

import (
	"golang-options/internal/model"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits kept on every division. Rounding is
// half away from zero, which is half-up for the magnitudes involved.
const Scale int32 = 6

var hundred = decimal.NewFromInt(100)

// ProfitCalculator holds the pure gain/loss arithmetic. SELL positions realize
// the inverse of BUY positions.
type ProfitCalculator struct{}

func NewProfitCalculator() ProfitCalculator {
	return ProfitCalculator{}
}

// UnitGain is the realized gain of one unit entered at entry and exited at exit.
func (ProfitCalculator) UnitGain(entry, exit decimal.Decimal, direction model.Direction) decimal.Decimal {
	diff := exit.Sub(entry)
	if direction == model.DirectionSell {
		return diff.Neg()
	}
	return diff
}

// ProfitLoss is UnitGain times quantity. It is exact, no rounding applied.
func (c ProfitCalculator) ProfitLoss(entry, exit decimal.Decimal, quantity int64, direction model.Direction) decimal.Decimal {
	return c.UnitGain(entry, exit, direction).Mul(decimal.NewFromInt(quantity))
}

// Percentage of the unit gain against the original entry price.
func (c ProfitCalculator) Percentage(entry, exit decimal.Decimal, direction model.Direction) decimal.Decimal {
	if entry.IsZero() {
		return decimal.Zero
	}
	return c.UnitGain(entry, exit, direction).Mul(hundred).DivRound(entry, Scale)
}

// PercentageOf expresses profit as a percentage of the cost basis it was realized on.
func (ProfitCalculator) PercentageOf(profit, costBasis decimal.Decimal) decimal.Decimal {
	if costBasis.IsZero() {
		return decimal.Zero
	}
	return profit.Mul(hundred).DivRound(costBasis, Scale)
}

// Value is price times quantity.
func (ProfitCalculator) Value(price decimal.Decimal, quantity int64) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(quantity))
}

// AveragePrice divides a value by a quantity, zero when there is no quantity.
func (ProfitCalculator) AveragePrice(value decimal.Decimal, quantity int64) decimal.Decimal {
	if quantity == 0 {
		return decimal.Zero
	}
	return value.DivRound(decimal.NewFromInt(quantity), Scale)
}
