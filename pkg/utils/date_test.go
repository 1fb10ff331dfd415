package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTradeDate(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)

	got, err := ParseTradeDate("2024-02-05", loc)
	require.NoError(t, err)
	assert.Equal(t, loc, got.Location())
	assert.Equal(t, 5, got.Day())

	got, err = ParseTradeDate("2024-02-05T13:45:00Z", loc)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2024, 2, 5, 13, 45, 0, 0, time.UTC)))

	_, err = ParseTradeDate("05/02/2024", loc)
	assert.Error(t, err)
}

func TestMarketDay(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)

	// 01:00 UTC on the 6th is still the 5th in Sao Paulo.
	got := MarketDay(time.Date(2024, 2, 6, 1, 0, 0, 0, time.UTC), loc)
	assert.Equal(t, time.Date(2024, 2, 5, 0, 0, 0, 0, loc), got)
}
