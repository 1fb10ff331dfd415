package engine

import (
	"errors"
	"testing"

	"golang-options/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		total, remaining int64
		want             model.PositionStatus
	}{
		{10, 10, model.PositionStatusOpen},
		{10, 4, model.PositionStatusPartial},
		{10, 0, model.PositionStatusClosed},
		{1, 1, model.PositionStatusOpen},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.total, tt.remaining), "total=%d remaining=%d", tt.total, tt.remaining)
	}
}

func TestPositionStateMachine_Open(t *testing.T) {
	m := NewPositionStateMachine()
	ref := model.SeriesRef{AccountID: "acc", Broker: "xp", OptionSeries: "PETRA100", Direction: model.DirectionBuy}

	pos, err := m.Open(ref, 10, d("1.5"), day(2024, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, model.PositionStatusOpen, pos.Status)
	assert.Equal(t, int64(10), pos.TotalQuantity)
	assert.Equal(t, int64(10), pos.RemainingQuantity)
	assertDecimal(t, "1.5", pos.AveragePrice)
	assert.Equal(t, 1, pos.LotSequence)

	_, err = m.Open(ref, 0, d("1.5"), day(2024, 1, 1))
	assert.True(t, errors.Is(err, ErrArithmeticPolicyViolation))

	_, err = m.Open(ref, 1, d("-1"), day(2024, 1, 1))
	assert.True(t, errors.Is(err, ErrArithmeticPolicyViolation))

	_, err = m.Open(ref, 1, d("0"), day(2024, 1, 1))
	assert.True(t, errors.Is(err, ErrArithmeticPolicyViolation))

	ref.Direction = "HOLD"
	_, err = m.Open(ref, 1, d("1"), day(2024, 1, 1))
	assert.True(t, errors.Is(err, ErrArithmeticPolicyViolation))
}

func TestPositionStateMachine_ApplyEntryRecomputesAverage(t *testing.T) {
	m := NewPositionStateMachine()
	first := lot(1, day(2024, 1, 1), 10, "10", 1)
	first.RemainingQuantity = 6
	position := model.Position{
		ID:                1,
		Direction:         model.DirectionBuy,
		Status:            model.PositionStatusPartial,
		TotalQuantity:     10,
		RemainingQuantity: 6,
		AveragePrice:      d("10"),
		LotSequence:       2,
	}

	require.NoError(t, m.ApplyEntry(&position, []model.EntryLot{first}, 10, d("20")))

	assertDecimal(t, "16.25", position.AveragePrice)
	assert.Equal(t, int64(20), position.TotalQuantity)
	assert.Equal(t, int64(16), position.RemainingQuantity)
	assert.Equal(t, model.PositionStatusPartial, position.Status)
	assert.Equal(t, 3, position.LotSequence)

	next := m.NewLot(position, 9, 10, d("20"), day(2024, 1, 3))
	assert.Equal(t, 3, next.Sequence)
	assert.Equal(t, int64(10), next.RemainingQuantity)
}

func TestPositionStateMachine_ApplyEntryRejections(t *testing.T) {
	m := NewPositionStateMachine()
	l := lot(1, day(2024, 1, 1), 10, "10", 1)
	position := model.Position{ID: 1, Status: model.PositionStatusOpen, TotalQuantity: 10, RemainingQuantity: 10, LotSequence: 2}

	assert.True(t, errors.Is(m.ApplyEntry(&position, []model.EntryLot{l}, 0, d("1")), ErrArithmeticPolicyViolation))
	assert.True(t, errors.Is(m.ApplyEntry(&position, []model.EntryLot{l}, 1, d("0")), ErrArithmeticPolicyViolation))

	drifted := position
	drifted.RemainingQuantity = 9
	drifted.Status = model.PositionStatusPartial
	assert.True(t, errors.Is(m.ApplyEntry(&drifted, []model.EntryLot{l}, 1, d("1")), ErrInvalidLotState))

	closed := model.Position{ID: 1, Status: model.PositionStatusClosed, TotalQuantity: 10}
	assert.True(t, errors.Is(m.ApplyEntry(&closed, nil, 1, d("1")), ErrInvalidLotState))
}

func TestPositionStateMachine_ApplyExit(t *testing.T) {
	m := NewPositionStateMachine()
	lots := []model.EntryLot{
		lot(1, day(2024, 1, 1), 10, "5", 1),
		lot(2, day(2024, 1, 10), 10, "6", 2),
	}
	position := openPosition(model.DirectionBuy, lots...)
	position.AveragePrice = d("5.5")

	lots[0].RemainingQuantity = 0
	require.NoError(t, m.ApplyExit(&position, lots, 10, d("20"), d("50"), day(2024, 1, 20)))
	assert.Equal(t, model.PositionStatusPartial, position.Status)
	assert.Equal(t, int64(10), position.RemainingQuantity)
	assertDecimal(t, "6", position.AveragePrice)
	assertDecimal(t, "20", position.RealizedProfit)
	assertDecimal(t, "40", position.RealizedPercentage)
	assert.Nil(t, position.CloseDate)
	require.NoError(t, m.CheckInvariants(position, lots))

	lots[1].RemainingQuantity = 0
	require.NoError(t, m.ApplyExit(&position, lots, 10, d("-10"), d("60"), day(2024, 1, 21)))
	assert.Equal(t, model.PositionStatusClosed, position.Status)
	assert.Zero(t, position.RemainingQuantity)
	assertDecimal(t, "10", position.RealizedProfit)
	assertDecimal(t, "9.090909", position.RealizedPercentage)
	require.NotNil(t, position.CloseDate)
	assert.True(t, position.CloseDate.Equal(day(2024, 1, 21)))
	require.NoError(t, m.CheckInvariants(position, lots))
}

func TestPositionStateMachine_ApplyExitLeavesPositionOnError(t *testing.T) {
	m := NewPositionStateMachine()
	lots := []model.EntryLot{lot(1, day(2024, 1, 1), 10, "5", 1)}
	position := openPosition(model.DirectionBuy, lots...)
	before := position

	err := m.ApplyExit(&position, lots, 11, d("1"), d("1"), day(2024, 1, 2))
	assert.True(t, errors.Is(err, ErrInsufficientQuantity))
	assert.Equal(t, before, position)

	// lots not decremented: conservation fails
	err = m.ApplyExit(&position, lots, 5, d("1"), d("1"), day(2024, 1, 2))
	assert.True(t, errors.Is(err, ErrInvalidLotState))
	assert.Equal(t, before, position)

	err = m.ApplyExit(&position, lots, 0, d("1"), d("1"), day(2024, 1, 2))
	assert.True(t, errors.Is(err, ErrArithmeticPolicyViolation))
}

func TestPositionStateMachine_CheckInvariants(t *testing.T) {
	m := NewPositionStateMachine()
	lots := []model.EntryLot{lot(1, day(2024, 1, 1), 10, "5", 1)}

	wrongStatus := openPosition(model.DirectionBuy, lots...)
	wrongStatus.Status = model.PositionStatusPartial
	assert.True(t, errors.Is(m.CheckInvariants(wrongStatus, lots), ErrInvalidLotState))

	closedNoDate := model.Position{ID: 1, Status: model.PositionStatusClosed, TotalQuantity: 10}
	drained := []model.EntryLot{lots[0]}
	drained[0].RemainingQuantity = 0
	assert.True(t, errors.Is(m.CheckInvariants(closedNoDate, drained), ErrInvalidLotState))
}
