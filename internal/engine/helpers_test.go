package engine

import (
	"testing"
	"time"

	"golang-options/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(y int, m time.Month, dd int) time.Time {
	return time.Date(y, m, dd, 10, 0, 0, 0, time.UTC)
}

func lot(id uint, entry time.Time, qty int64, price string, seq int) model.EntryLot {
	return model.EntryLot{
		ID:                id,
		PositionID:        1,
		EntryDate:         entry,
		UnitPrice:         d(price),
		OriginalQuantity:  qty,
		RemainingQuantity: qty,
		Sequence:          seq,
	}
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Truef(t, d(want).Equal(got), "want %s, got %s %v", want, got.String(), msgAndArgs)
}
