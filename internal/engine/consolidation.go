package engine

import (
	"fmt"
	"time"

	"golang-options/internal/model"

	"github.com/shopspring/decimal"
)

type Scenario string

const (
	ScenarioSingleLotTotal   Scenario = "SINGLE_LOT_TOTAL"
	ScenarioSingleLotPartial Scenario = "SINGLE_LOT_PARTIAL"
	ScenarioMultiLot         Scenario = "MULTI_LOT"
	ScenarioComplex          Scenario = "COMPLEX"
)

// ClassifyScenario decides how many trade records an exit produces: one per
// trade type present in the plan.
func ClassifyScenario(plan Plan, positionRemaining int64) Scenario {
	switch {
	case plan.LotCount() == 1 && plan.Quantity == positionRemaining:
		return ScenarioSingleLotTotal
	case plan.LotCount() == 1:
		return ScenarioSingleLotPartial
	case plan.IsMixed():
		return ScenarioComplex
	default:
		return ScenarioMultiLot
	}
}

// ExitRole is decided before any record is written, so roles never change.
func ExitRole(remainingAfter int64) model.ItemRole {
	if remainingAfter == 0 {
		return model.RoleTotalExit
	}
	return model.RolePartialExit
}

// ConsolidatedEntry is the "what is still open" view of a position.
type ConsolidatedEntry struct {
	Quantity     int64
	AveragePrice decimal.Decimal
	Value        decimal.Decimal
	EntryDate    time.Time
}

// ConsolidatedEntryFor is cleared to zero quantity, price and value once
// nothing is left open.
func ConsolidatedEntryFor(position model.Position, lots []model.EntryLot) ConsolidatedEntry {
	if position.RemainingQuantity == 0 {
		return ConsolidatedEntry{
			AveragePrice: decimal.Zero,
			Value:        decimal.Zero,
			EntryDate:    position.OpenDate,
		}
	}
	value := decimal.Zero
	for _, lot := range lots {
		if lot.IsLive() {
			value = value.Add(lot.RemainingValue())
		}
	}
	return ConsolidatedEntry{
		Quantity:     position.RemainingQuantity,
		AveragePrice: position.AveragePrice,
		Value:        value,
		EntryDate:    position.OpenDate,
	}
}

// ConsolidatedResult is the cumulative realized outcome of a position.
type ConsolidatedResult struct {
	Quantity          int64
	AverageEntryPrice decimal.Decimal
	AverageExitPrice  decimal.Decimal
	CostBasis         decimal.Decimal
	ExitValue         decimal.Decimal
	ProfitLoss        decimal.Decimal
	Percentage        decimal.Decimal
	TradeType         model.TradeType
	EntryDate         time.Time
	ExitDate          time.Time
	Day               TradeTotals
	Swing             TradeTotals
	Final             bool
}

// ConsolidatedResultFor folds every exit record of the position. The realized
// profit must agree with the position, otherwise the ledger is corrupt.
func ConsolidatedResultFor(position model.Position, records []model.ExitRecord) (ConsolidatedResult, error) {
	calc := NewProfitCalculator()
	var day, swing, total TradeTotals
	var lastExit time.Time
	for _, r := range records {
		slice := ConsumedSlice{
			PlanEntry:  PlanEntry{LotID: r.EntryLotID, Quantity: r.Quantity, UnitPrice: r.EntryPrice, TradeType: r.TradeType},
			ExitPrice:  r.ExitPrice,
			CostBasis:  calc.Value(r.EntryPrice, r.Quantity),
			ExitValue:  calc.Value(r.ExitPrice, r.Quantity),
			ProfitLoss: r.ProfitLoss,
		}
		switch r.TradeType {
		case model.TradeTypeDay:
			day = day.add(slice)
		case model.TradeTypeSwing:
			swing = swing.add(slice)
		default:
			return ConsolidatedResult{}, fmt.Errorf("%w: %q on exit record %d", ErrUnknownTradeType, r.TradeType, r.ID)
		}
		total = total.add(slice)
		if r.ExitDate.After(lastExit) {
			lastExit = r.ExitDate
		}
	}

	if total.Quantity != position.TotalQuantity-position.RemainingQuantity {
		return ConsolidatedResult{}, InconsistentGroup(position.ID, fmt.Sprintf("exit records cover %d units, position closed %d", total.Quantity, position.TotalQuantity-position.RemainingQuantity))
	}
	if !total.ProfitLoss.Equal(position.RealizedProfit) {
		return ConsolidatedResult{}, InconsistentGroup(position.ID, fmt.Sprintf("exit records realized %s, position realized %s", total.ProfitLoss, position.RealizedProfit))
	}

	var tradeType model.TradeType
	switch {
	case day.Quantity > 0 && swing.Quantity > 0:
		tradeType = model.TradeTypeMixed
	case day.Quantity > 0:
		tradeType = model.TradeTypeDay
	default:
		tradeType = model.TradeTypeSwing
	}

	return ConsolidatedResult{
		Quantity:          total.Quantity,
		AverageEntryPrice: total.AverageEntryPrice(),
		AverageExitPrice:  calc.AveragePrice(total.ExitValue, total.Quantity),
		CostBasis:         total.CostBasis,
		ExitValue:         total.ExitValue,
		ProfitLoss:        total.ProfitLoss,
		Percentage:        total.Percentage(),
		TradeType:         tradeType,
		EntryDate:         position.OpenDate,
		ExitDate:          lastExit,
		Day:               day,
		Swing:             swing,
		Final:             position.Status == model.PositionStatusClosed,
	}, nil
}

// roleCardinality states how many items of a role may be live at once;
// zero means unbounded.
func roleCardinality(role model.ItemRole) (int, error) {
	switch role {
	case model.RoleOriginal:
		return 1, nil
	case model.RoleConsolidatedEntry, model.RoleConsolidatedResult:
		return 1, nil
	case model.RoleNewEntry, model.RolePartialExit, model.RoleTotalExit:
		return 0, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
}

// ValidateLedger checks the structural invariants of a group: exactly one
// ORIGINAL, at most one live item per consolidated role and strictly
// increasing sequences.
func ValidateLedger(positionID uint, ledger *model.GroupLedger) error {
	live := make(map[model.ItemRole]int)
	originals := 0
	prev := 0
	for i, item := range ledger.Items {
		limit, err := roleCardinality(item.Role)
		if err != nil {
			return err
		}
		if i > 0 && item.Sequence <= prev {
			return InconsistentGroup(positionID, fmt.Sprintf("item sequence %d does not follow %d", item.Sequence, prev))
		}
		prev = item.Sequence
		if item.Role == model.RoleOriginal {
			originals++
		}
		if item.IsLive() {
			live[item.Role]++
			if limit > 0 && live[item.Role] > limit {
				return InconsistentGroup(positionID, fmt.Sprintf("%d live %s items", live[item.Role], item.Role))
			}
		}
	}
	if originals != 1 {
		return InconsistentGroup(positionID, fmt.Sprintf("expected exactly one %s item, found %d", model.RoleOriginal, originals))
	}
	if len(ledger.Items) > 0 && ledger.Group.NextSequence <= prev {
		return InconsistentGroup(positionID, fmt.Sprintf("next sequence %d not beyond last item %d", ledger.Group.NextSequence, prev))
	}
	return nil
}

// SyncGroup mirrors the position quantities and status onto its group.
func SyncGroup(group *model.Group, position model.Position) {
	group.Status = position.Status
	group.TotalQuantity = position.TotalQuantity
	group.RemainingQuantity = position.RemainingQuantity
	group.ClosedQuantity = position.TotalQuantity - position.RemainingQuantity
	group.AveragePrice = position.AveragePrice
	group.RealizedProfit = position.RealizedProfit
	group.RealizedPercentage = position.RealizedPercentage
	group.OpenDate = position.OpenDate
	group.CloseDate = position.CloseDate
}

// AccumulateTradeTypes adds the day/swing split of one exit to the group.
func AccumulateTradeTypes(group *model.Group, result Result) {
	group.DayTradeQuantity += result.Day.Quantity
	group.DayTradeProfit = group.DayTradeProfit.Add(result.Day.ProfitLoss)
	group.SwingTradeQuantity += result.Swing.Quantity
	group.SwingTradeProfit = group.SwingTradeProfit.Add(result.Swing.ProfitLoss)
}
