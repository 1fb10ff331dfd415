package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"golang-options/internal/engine"
	"golang-options/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyExit_Strategies(t *testing.T) {
	tests := []struct {
		name     string
		strategy model.Strategy
		wantPL   string
		wantPct  string
		wantLot  int64
	}{
		{name: "fifo", strategy: model.StrategyFIFO, wantPL: "20", wantPct: "40", wantLot: 1},
		{name: "lifo", strategy: model.StrategyLIFO, wantPL: "10", wantPct: "16.666667", wantLot: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			first := f.enter(t, seriesA, 10, "5", day(2024, 1, 1))
			f.enter(t, seriesA, 10, "6", day(2024, 1, 10))

			res, err := f.exit(first.Position.ID, 10, "7", day(2024, 1, 20), tt.strategy)
			require.NoError(t, err)
			require.Len(t, res.Operations, 1)
			op := res.Operations[0]
			assert.Equal(t, model.OperationKindExit, op.Kind)
			assert.Equal(t, model.TradeTypeSwing, op.TradeType)
			assertDecimal(t, tt.wantPL, op.ProfitLoss)
			assertDecimal(t, tt.wantPct, op.ProfitPercentage)
			assert.Equal(t, string(engine.ScenarioSingleLotPartial), res.Scenario)
			assert.Equal(t, model.RolePartialExit, res.Role)

			assert.Equal(t, model.PositionStatusPartial, res.Position.Status)
			assert.Equal(t, int64(10), res.Position.RemainingQuantity)
			assertDecimal(t, tt.wantPL, res.Position.RealizedProfit)

			snap := f.snapshot(t, first.Position.ID)
			for _, lot := range snap.Lots {
				if int64(lot.Sequence) == tt.wantLot {
					assert.Zero(t, lot.RemainingQuantity)
				} else {
					assert.Equal(t, int64(10), lot.RemainingQuantity)
				}
			}
			require.Len(t, snap.Records, 1)
			assert.Equal(t, op.ID, snap.Records[0].OperationID)
			require.NoError(t, f.svc.PositionQuery.Verify(context.Background(), first.Position.ID))
		})
	}
}

func TestApplyExit_ComplexSplitsDayAndSwing(t *testing.T) {
	f := newFixture(t)
	first := f.enter(t, seriesA, 5, "10", day(2024, 2, 1))
	f.enter(t, seriesA, 5, "12", day(2024, 2, 5))

	res, err := f.exit(first.Position.ID, 8, "15", day(2024, 2, 5), model.StrategyAuto)
	require.NoError(t, err)
	assert.Equal(t, string(engine.ScenarioComplex), res.Scenario)
	require.Len(t, res.Operations, 2)

	dayOp, swingOp := res.Operations[0], res.Operations[1]
	assert.Equal(t, model.TradeTypeDay, dayOp.TradeType)
	assert.Equal(t, int64(5), dayOp.Quantity)
	assertDecimal(t, "15", dayOp.ProfitLoss)
	assertDecimal(t, "12", dayOp.EntryPrice)
	assertDecimal(t, "25", dayOp.ProfitPercentage)

	assert.Equal(t, model.TradeTypeSwing, swingOp.TradeType)
	assert.Equal(t, int64(3), swingOp.Quantity)
	assertDecimal(t, "15", swingOp.ProfitLoss)
	assertDecimal(t, "10", swingOp.EntryPrice)
	assertDecimal(t, "50", swingOp.ProfitPercentage)

	var details model.OperationDetails
	require.NoError(t, json.Unmarshal(swingOp.Details, &details))
	assert.Equal(t, string(engine.ScenarioComplex), details.Scenario)
	require.Len(t, details.Slices, 1)
	assert.Equal(t, int64(3), details.Slices[0].Quantity)

	require.NotNil(t, res.ConsolidatedResult)
	cr := res.ConsolidatedResult
	assert.Equal(t, model.TradeTypeMixed, cr.TradeType)
	assert.Equal(t, int64(8), cr.Quantity)
	assertDecimal(t, "30", cr.ProfitLoss)
	assertDecimal(t, "11.25", cr.EntryPrice)
	assertDecimal(t, "33.333333", cr.ProfitPercentage)

	snap := f.snapshot(t, first.Position.ID)
	group := snap.Ledger.Group
	assert.Equal(t, int64(5), group.DayTradeQuantity)
	assertDecimal(t, "15", group.DayTradeProfit)
	assert.Equal(t, int64(3), group.SwingTradeQuantity)
	assertDecimal(t, "15", group.SwingTradeProfit)
	assert.Len(t, snap.Ledger.ItemsWithRole(model.RolePartialExit), 2)
	assert.Len(t, snap.Records, 2)
	require.NoError(t, f.svc.PositionQuery.Verify(context.Background(), first.Position.ID))
}

func TestApplyExit_FullExitCloses(t *testing.T) {
	f := newFixture(t)
	first := f.enter(t, seriesA, 10, "5", day(2024, 1, 1))

	res, err := f.exit(first.Position.ID, 10, "6", day(2024, 1, 2), "")
	require.NoError(t, err)
	assert.Equal(t, model.PositionStatusClosed, res.Position.Status)
	assert.Zero(t, res.Position.RemainingQuantity)
	require.NotNil(t, res.Position.CloseDate)
	assert.Equal(t, model.RoleTotalExit, res.Role)
	assert.Equal(t, string(engine.ScenarioSingleLotTotal), res.Scenario)
	assert.Nil(t, res.ConsolidatedEntry)

	snap := f.snapshot(t, first.Position.ID)
	require.Len(t, snap.Ledger.ItemsWithRole(model.RoleTotalExit), 1)
	crItems := snap.Ledger.LiveItems(model.RoleConsolidatedResult)
	require.Len(t, crItems, 1)
	assert.True(t, crItems[0].Final)
	assert.Empty(t, snap.Ledger.ItemsWithRole(model.RoleConsolidatedEntry))
	assert.Equal(t, model.PositionStatusClosed, snap.Ledger.Group.Status)
	assert.Equal(t, int64(10), snap.Ledger.Group.ClosedQuantity)
	assert.Equal(t, []model.OperationKind{model.OperationKindConsolidatedResult}, visibleKinds(snap.Operations))
	require.NoError(t, f.svc.PositionQuery.Verify(context.Background(), first.Position.ID))
}

func TestApplyExit_FullExitAfterConsolidatedEntry(t *testing.T) {
	f := newFixture(t)
	first := f.enter(t, seriesA, 10, "5", day(2024, 1, 1))
	f.enter(t, seriesA, 10, "7", day(2024, 1, 3))

	_, err := f.exit(first.Position.ID, 12, "8", day(2024, 1, 4), model.StrategyFIFO)
	require.NoError(t, err)
	res, err := f.exit(first.Position.ID, 8, "9", day(2024, 1, 5), model.StrategyFIFO)
	require.NoError(t, err)
	assert.Equal(t, model.PositionStatusClosed, res.Position.Status)
	assertDecimal(t, "48", res.Position.RealizedProfit)

	require.NotNil(t, res.ConsolidatedEntry)
	assert.Zero(t, res.ConsolidatedEntry.Quantity)
	assertDecimal(t, "0", res.ConsolidatedEntry.EntryPrice)
	assert.Equal(t, model.VisibilityHidden, res.ConsolidatedEntry.Visibility)
	var details model.OperationDetails
	require.NoError(t, json.Unmarshal(res.ConsolidatedEntry.Details, &details))
	require.NotNil(t, details.OpenValue)
	assertDecimal(t, "0", *details.OpenValue)

	snap := f.snapshot(t, first.Position.ID)
	assert.Len(t, snap.Ledger.LiveItems(model.RoleConsolidatedEntry), 1)
	assert.Len(t, snap.Ledger.LiveItems(model.RoleConsolidatedResult), 1)
	assert.Equal(t, []model.OperationKind{model.OperationKindConsolidatedResult}, visibleKinds(snap.Operations))
	require.NoError(t, f.svc.PositionQuery.Verify(context.Background(), first.Position.ID))
}

func TestApplyExit_OverExitLeavesStateUntouched(t *testing.T) {
	f := newFixture(t)
	first := f.enter(t, seriesA, 10, "5", day(2024, 1, 1))
	f.enter(t, seriesA, 10, "6", day(2024, 1, 10))
	_, err := f.exit(first.Position.ID, 3, "7", day(2024, 1, 11), model.StrategyFIFO)
	require.NoError(t, err)

	before := f.snapshot(t, first.Position.ID)

	_, err = f.exit(first.Position.ID, 18, "7", day(2024, 1, 12), model.StrategyFIFO)
	require.Error(t, err)
	assert.True(t, errors.Is(err, engine.ErrInsufficientQuantity))
	var posErr *engine.PositionError
	require.True(t, errors.As(err, &posErr))
	assert.Equal(t, int64(18), posErr.Requested)
	assert.Equal(t, int64(17), posErr.Available)

	assert.Equal(t, before, f.snapshot(t, first.Position.ID))
}

func TestApplyExit_Rejections(t *testing.T) {
	f := newFixture(t)
	first := f.enter(t, seriesA, 10, "5", day(2024, 1, 10))

	_, err := f.exit(first.Position.ID, 1, "5", day(2024, 1, 11), "RANDOM")
	assert.True(t, errors.Is(err, engine.ErrUnknownStrategy))

	_, err = f.exit(first.Position.ID, 1, "-5", day(2024, 1, 11), model.StrategyFIFO)
	assert.True(t, errors.Is(err, engine.ErrArithmeticPolicyViolation))

	// the only lot is dated after the exit
	_, err = f.exit(first.Position.ID, 1, "5", day(2024, 1, 9), model.StrategyFIFO)
	assert.True(t, errors.Is(err, engine.ErrInsufficientQuantity))

	_, err = f.exit(first.Position.ID+100, 1, "5", day(2024, 1, 11), model.StrategyFIFO)
	assert.Error(t, err)

	_, err = f.exit(first.Position.ID, 10, "4", day(2024, 1, 11), model.StrategyFIFO)
	require.NoError(t, err)
	_, err = f.exit(first.Position.ID, 1, "4", day(2024, 1, 12), model.StrategyFIFO)
	assert.True(t, errors.Is(err, engine.ErrInsufficientQuantity))
}

func TestApplyExit_SellDirection(t *testing.T) {
	f := newFixture(t)
	short := seriesA
	short.Direction = model.DirectionSell
	first := f.enter(t, short, 4, "2.5", day(2024, 3, 1))

	res, err := f.exit(first.Position.ID, 4, "1", day(2024, 3, 8), model.StrategyFIFO)
	require.NoError(t, err)
	assertDecimal(t, "6", res.Position.RealizedProfit)
	assertDecimal(t, "60", res.Position.RealizedPercentage)
}

func TestApplyExit_ConcurrentExitsSerialize(t *testing.T) {
	f := newFixture(t)
	first := f.enter(t, seriesA, 10, "5", day(2024, 1, 1))

	var wg sync.WaitGroup
	errs := make([]error, 12)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.exit(first.Position.ID, 1, "6", day(2024, 1, 2), model.StrategyFIFO)
		}(i)
	}
	wg.Wait()

	var ok, insufficient int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, engine.ErrInsufficientQuantity):
			insufficient++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 10, ok)
	assert.Equal(t, 2, insufficient)

	snap := f.snapshot(t, first.Position.ID)
	assert.Equal(t, model.PositionStatusClosed, snap.Position.Status)
	assertDecimal(t, "10", snap.Position.RealizedProfit)
	assert.Len(t, snap.Records, 10)
	require.NoError(t, f.svc.PositionQuery.Verify(context.Background(), first.Position.ID))
}

func TestApplyExit_ConservationAcrossSequence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.enter(t, seriesA, 7, "3", day(2024, 4, 1))
	id := first.Position.ID

	steps := []func() error{
		func() error { _, err := f.exit(id, 2, "3.5", day(2024, 4, 2), model.StrategyFIFO); return err },
		func() error { f.enter(t, seriesA, 4, "2.8", day(2024, 4, 2)); return nil },
		func() error { _, err := f.exit(id, 5, "3.1", day(2024, 4, 2), model.StrategyAuto); return err },
		func() error { f.enter(t, seriesA, 6, "3.3", day(2024, 4, 3)); return nil },
		func() error { _, err := f.exit(id, 3, "2.9", day(2024, 4, 4), model.StrategyLIFO); return err },
		func() error { _, err := f.exit(id, 7, "3.6", day(2024, 4, 5), model.StrategyFIFO); return err },
	}
	for i, step := range steps {
		require.NoError(t, step(), "step %d", i)
		snap := f.snapshot(t, id)
		var sum int64
		for _, lot := range snap.Lots {
			sum += lot.RemainingQuantity
		}
		assert.Equal(t, snap.Position.RemainingQuantity, sum, "step %d", i)
		assert.Equal(t, engine.StatusFor(snap.Position.TotalQuantity, snap.Position.RemainingQuantity), snap.Position.Status, "step %d", i)
		require.NoError(t, f.svc.PositionQuery.Verify(ctx, id), "step %d", i)
	}

	snap := f.snapshot(t, id)
	assert.Equal(t, model.PositionStatusClosed, snap.Position.Status)
	assert.Equal(t, int64(17), snap.Position.TotalQuantity)
}
