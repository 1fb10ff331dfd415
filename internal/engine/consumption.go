package engine

import (
	"fmt"
	"time"

	"golang-options/internal/model"

	"github.com/shopspring/decimal"
)

// PlanEntry is one lot slice an exit intends to consume.
type PlanEntry struct {
	LotID     uint            `json:"lot_id"`
	EntryDate time.Time       `json:"entry_date"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Available int64           `json:"available"`
	Quantity  int64           `json:"quantity"`
	TradeType model.TradeType `json:"trade_type"`
}

// Plan is the side-effect free outcome of lot selection. It can be logged or
// rejected before anything is written.
type Plan struct {
	PositionID uint            `json:"position_id"`
	Direction  model.Direction `json:"direction"`
	Strategy   model.Strategy  `json:"strategy"`
	ExitDate   time.Time       `json:"exit_date"`
	Quantity   int64           `json:"quantity"`
	Entries    []PlanEntry     `json:"entries"`
}

func (p Plan) LotCount() int {
	seen := make(map[uint]struct{}, len(p.Entries))
	for _, e := range p.Entries {
		seen[e.LotID] = struct{}{}
	}
	return len(seen)
}

// TradeTypes returns the distinct trade types of the plan, DAY before SWING.
func (p Plan) TradeTypes() []model.TradeType {
	var day, swing bool
	for _, e := range p.Entries {
		switch e.TradeType {
		case model.TradeTypeDay:
			day = true
		case model.TradeTypeSwing:
			swing = true
		}
	}
	var out []model.TradeType
	if day {
		out = append(out, model.TradeTypeDay)
	}
	if swing {
		out = append(out, model.TradeTypeSwing)
	}
	return out
}

func (p Plan) IsMixed() bool {
	return len(p.TradeTypes()) > 1
}

type ConsumedSlice struct {
	PlanEntry
	ExitPrice  decimal.Decimal `json:"exit_price"`
	CostBasis  decimal.Decimal `json:"cost_basis"`
	ExitValue  decimal.Decimal `json:"exit_value"`
	ProfitLoss decimal.Decimal `json:"profit_loss"`
	Percentage decimal.Decimal `json:"percentage"`
}

type TradeTotals struct {
	Quantity   int64           `json:"quantity"`
	CostBasis  decimal.Decimal `json:"cost_basis"`
	ExitValue  decimal.Decimal `json:"exit_value"`
	ProfitLoss decimal.Decimal `json:"profit_loss"`
}

func (t TradeTotals) add(s ConsumedSlice) TradeTotals {
	return TradeTotals{
		Quantity:   t.Quantity + s.Quantity,
		CostBasis:  t.CostBasis.Add(s.CostBasis),
		ExitValue:  t.ExitValue.Add(s.ExitValue),
		ProfitLoss: t.ProfitLoss.Add(s.ProfitLoss),
	}
}

// AverageEntryPrice is the quantity-weighted entry price of the consumed units.
func (t TradeTotals) AverageEntryPrice() decimal.Decimal {
	return ProfitCalculator{}.AveragePrice(t.CostBasis, t.Quantity)
}

// Percentage is the realized return on the consumed cost basis.
func (t TradeTotals) Percentage() decimal.Decimal {
	return ProfitCalculator{}.PercentageOf(t.ProfitLoss, t.CostBasis)
}

// Result is an executed plan: realized P&L per slice and per trade type.
type Result struct {
	Plan      Plan            `json:"plan"`
	ExitPrice decimal.Decimal `json:"exit_price"`
	Slices    []ConsumedSlice `json:"slices"`
	Day       TradeTotals     `json:"day"`
	Swing     TradeTotals     `json:"swing"`
	Total     TradeTotals     `json:"total"`
}

func (r Result) Totals(tradeType model.TradeType) (TradeTotals, error) {
	switch tradeType {
	case model.TradeTypeDay:
		return r.Day, nil
	case model.TradeTypeSwing:
		return r.Swing, nil
	default:
		return TradeTotals{}, fmt.Errorf("%w: %q", ErrUnknownTradeType, tradeType)
	}
}

func (r Result) SlicesOf(tradeType model.TradeType) []ConsumedSlice {
	var out []ConsumedSlice
	for _, s := range r.Slices {
		if s.TradeType == tradeType {
			out = append(out, s)
		}
	}
	return out
}

type ConsumptionEngine struct {
	selector LotSelector
	calc     ProfitCalculator
}

func NewConsumptionEngine(selector LotSelector) ConsumptionEngine {
	return ConsumptionEngine{selector: selector, calc: NewProfitCalculator()}
}

// Plan selects the lots an exit of quantity would consume.
func (e ConsumptionEngine) Plan(position model.Position, lots []model.EntryLot, quantity int64, exitDate time.Time, strategy model.Strategy) (Plan, error) {
	if quantity > position.RemainingQuantity {
		return Plan{}, insufficient(position.ID, quantity, position.RemainingQuantity)
	}

	selections, err := e.selector.Select(position.ID, lots, quantity, exitDate, strategy)
	if err != nil {
		return Plan{}, err
	}

	plan := Plan{
		PositionID: position.ID,
		Direction:  position.Direction,
		Strategy:   strategy,
		ExitDate:   exitDate,
		Quantity:   quantity,
		Entries:    make([]PlanEntry, 0, len(selections)),
	}
	for _, sel := range selections {
		plan.Entries = append(plan.Entries, PlanEntry{
			LotID:     sel.Lot.ID,
			EntryDate: sel.Lot.EntryDate,
			UnitPrice: sel.Lot.UnitPrice,
			Available: sel.Lot.RemainingQuantity,
			Quantity:  sel.Quantity,
			TradeType: sel.TradeType,
		})
	}
	return plan, nil
}

// Execute computes realized P&L for every slice of plan without touching lots.
func (e ConsumptionEngine) Execute(plan Plan, exitPrice decimal.Decimal) (Result, error) {
	if exitPrice.IsNegative() {
		return Result{}, arithmetic(plan.PositionID, fmt.Sprintf("exit price must not be negative, got %s", exitPrice))
	}

	result := Result{
		Plan:      plan,
		ExitPrice: exitPrice,
		Slices:    make([]ConsumedSlice, 0, len(plan.Entries)),
	}
	var planned int64
	for _, entry := range plan.Entries {
		if entry.Quantity <= 0 || entry.Quantity > entry.Available {
			return Result{}, invalidLot(plan.PositionID, entry.LotID, entry.Quantity, entry.Available, "planned quantity not available on lot")
		}
		if entry.UnitPrice.IsNegative() {
			return Result{}, arithmetic(plan.PositionID, fmt.Sprintf("lot %d has negative unit price", entry.LotID))
		}

		slice := ConsumedSlice{
			PlanEntry:  entry,
			ExitPrice:  exitPrice,
			CostBasis:  e.calc.Value(entry.UnitPrice, entry.Quantity),
			ExitValue:  e.calc.Value(exitPrice, entry.Quantity),
			ProfitLoss: e.calc.ProfitLoss(entry.UnitPrice, exitPrice, entry.Quantity, plan.Direction),
			Percentage: e.calc.Percentage(entry.UnitPrice, exitPrice, plan.Direction),
		}

		switch entry.TradeType {
		case model.TradeTypeDay:
			result.Day = result.Day.add(slice)
		case model.TradeTypeSwing:
			result.Swing = result.Swing.add(slice)
		default:
			return Result{}, fmt.Errorf("%w: %q on lot %d", ErrUnknownTradeType, entry.TradeType, entry.LotID)
		}
		result.Total = result.Total.add(slice)
		result.Slices = append(result.Slices, slice)
		planned += entry.Quantity
	}

	if planned != plan.Quantity {
		return Result{}, invalidLot(plan.PositionID, 0, plan.Quantity, planned, "plan does not cover the requested quantity")
	}
	return result, nil
}

// Apply returns copies of the lots consumed by result with their remaining
// quantity decremented. The input slice is not modified.
func (e ConsumptionEngine) Apply(result Result, lots []model.EntryLot) ([]model.EntryLot, error) {
	byID := make(map[uint]model.EntryLot, len(lots))
	for _, lot := range lots {
		byID[lot.ID] = lot
	}

	var order []uint
	touched := make(map[uint]bool)
	for _, s := range result.Slices {
		lot, ok := byID[s.LotID]
		if !ok {
			return nil, invalidLot(result.Plan.PositionID, s.LotID, s.Quantity, 0, "lot not found on position")
		}
		if lot.RemainingQuantity <= 0 || lot.RemainingQuantity < s.Quantity {
			return nil, invalidLot(result.Plan.PositionID, s.LotID, s.Quantity, lot.RemainingQuantity, "lot changed since the plan was built")
		}
		if !touched[s.LotID] {
			touched[s.LotID] = true
			order = append(order, s.LotID)
		}
		lot.RemainingQuantity -= s.Quantity
		byID[s.LotID] = lot
	}

	out := make([]model.EntryLot, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return out, nil
}
