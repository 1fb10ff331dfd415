package service

import (
	"context"
	"errors"
	"testing"

	"golang-options/internal/dto"
	"golang-options/internal/engine"
	"golang-options/internal/model"
	"golang-options/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchService_Apply(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seriesB := seriesA
	seriesB.OptionSeries = "VALEC700"
	seriesB.Underlying = "VALE3"

	a := f.enter(t, seriesA, 10, "5", day(2024, 1, 1))
	b := f.enter(t, seriesB, 5, "2", day(2024, 1, 1))

	exitCmd := func(id uint, qty int64, price string, dd int) dto.BatchCommand {
		return dto.BatchCommand{Exit: &dto.ExitCommand{
			PositionID: id,
			Quantity:   qty,
			ExitPrice:  d(price),
			ExitDate:   day(2024, 1, dd),
			Strategy:   model.StrategyFIFO,
		}}
	}
	commands := []dto.BatchCommand{
		exitCmd(a.Position.ID, 4, "6", 3),
		{Entry: &dto.EntryCommand{Series: seriesA, Quantity: 5, UnitPrice: d("6"), EntryDate: day(2024, 1, 2)}},
		exitCmd(b.Position.ID, 10, "3", 3),
		exitCmd(a.Position.ID, 11, "7", 4),
		exitCmd(a.Position.ID+b.Position.ID+100, 1, "1", 4),
		{},
	}

	outcomes, err := f.svc.BatchService.Apply(ctx, commands)
	require.NoError(t, err)
	require.Len(t, outcomes, len(commands))
	for i, outcome := range outcomes {
		assert.Equal(t, i, outcome.Index)
	}

	// the entry dated 2024-01-02 ran before both exits on series A
	require.NoError(t, outcomes[1].Err)
	require.NotNil(t, outcomes[1].Entry)
	assert.False(t, outcomes[1].Entry.Created)
	assert.Equal(t, int64(15), outcomes[1].Entry.Position.RemainingQuantity)

	require.NoError(t, outcomes[0].Err)
	assert.Equal(t, int64(11), outcomes[0].Exit.Position.RemainingQuantity)

	require.NoError(t, outcomes[3].Err)
	assert.Equal(t, model.PositionStatusClosed, outcomes[3].Exit.Position.Status)

	assert.True(t, errors.Is(outcomes[2].Err, engine.ErrInsufficientQuantity))
	assert.NotEmpty(t, outcomes[2].Error)
	assert.True(t, errors.Is(outcomes[4].Err, repository.ErrNotFound))
	assert.Error(t, outcomes[5].Err)

	snapB := f.snapshot(t, b.Position.ID)
	assert.Equal(t, int64(5), snapB.Position.RemainingQuantity)
	require.NoError(t, f.svc.PositionQuery.Verify(ctx, a.Position.ID))
	require.NoError(t, f.svc.PositionQuery.Verify(ctx, b.Position.ID))
}
