package engine

import (
	"fmt"
	"sort"
	"time"

	"golang-options/internal/model"
)

// Selection is one lot slice picked for an exit.
type Selection struct {
	Lot       model.EntryLot
	Quantity  int64
	TradeType model.TradeType
}

type LotSelector struct {
	resolver TradeTypeResolver
}

func NewLotSelector(resolver TradeTypeResolver) LotSelector {
	return LotSelector{resolver: resolver}
}

// Select orders the live lots of a position according to strategy and splits
// quantity across them. Lots entered after the exit date are not eligible.
func (s LotSelector) Select(positionID uint, lots []model.EntryLot, quantity int64, exitDate time.Time, strategy model.Strategy) ([]Selection, error) {
	if quantity <= 0 {
		return nil, arithmetic(positionID, fmt.Sprintf("exit quantity must be positive, got %d", quantity))
	}
	if !strategy.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}

	var sameDay, priorDay []model.EntryLot
	var available int64
	for _, lot := range lots {
		if lot.RemainingQuantity < 0 || lot.RemainingQuantity > lot.OriginalQuantity {
			return nil, invalidLot(positionID, lot.ID, 0, lot.RemainingQuantity, "remaining quantity out of range")
		}
		if !lot.IsLive() {
			continue
		}
		switch {
		case s.resolver.SameDay(lot.EntryDate, exitDate):
			sameDay = append(sameDay, lot)
		case lot.EntryDate.Before(exitDate):
			priorDay = append(priorDay, lot)
		default:
			continue
		}
		available += lot.RemainingQuantity
	}

	if available < quantity {
		return nil, insufficient(positionID, quantity, available)
	}

	switch strategy {
	case model.StrategyFIFO:
		candidates := append(append([]model.EntryLot{}, sameDay...), priorDay...)
		sortLots(candidates, true)
		return s.take(candidates, quantity, exitDate, nil), nil
	case model.StrategyLIFO:
		candidates := append(append([]model.EntryLot{}, sameDay...), priorDay...)
		sortLots(candidates, false)
		return s.take(candidates, quantity, exitDate, nil), nil
	case model.StrategyAuto:
		return s.auto(sameDay, priorDay, quantity), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
}

// auto treats the exit as a day trade as far as same-day lots allow, newest
// first, and covers the rest from earlier lots oldest first.
func (s LotSelector) auto(sameDay, priorDay []model.EntryLot, quantity int64) []Selection {
	sortLots(sameDay, false)
	sortLots(priorDay, true)

	day := model.TradeTypeDay
	out := s.take(sameDay, quantity, time.Time{}, &day)

	var taken int64
	for _, sel := range out {
		taken += sel.Quantity
	}
	if taken == quantity {
		return out
	}

	swing := model.TradeTypeSwing
	return append(out, s.take(priorDay, quantity-taken, time.Time{}, &swing)...)
}

func (s LotSelector) take(lots []model.EntryLot, quantity int64, exitDate time.Time, forced *model.TradeType) []Selection {
	var out []Selection
	left := quantity
	for _, lot := range lots {
		if left == 0 {
			break
		}
		qty := lot.RemainingQuantity
		if qty > left {
			qty = left
		}
		var tradeType model.TradeType
		if forced != nil {
			tradeType = *forced
		} else {
			tradeType = s.resolver.Resolve(lot.EntryDate, exitDate)
		}
		out = append(out, Selection{Lot: lot, Quantity: qty, TradeType: tradeType})
		left -= qty
	}
	return out
}

func sortLots(lots []model.EntryLot, ascending bool) {
	sort.SliceStable(lots, func(i, j int) bool {
		a, b := lots[i], lots[j]
		if !a.EntryDate.Equal(b.EntryDate) {
			if ascending {
				return a.EntryDate.Before(b.EntryDate)
			}
			return a.EntryDate.After(b.EntryDate)
		}
		if ascending {
			return a.Sequence < b.Sequence
		}
		return a.Sequence > b.Sequence
	})
}
