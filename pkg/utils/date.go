package utils

import (
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

// ParseTradeDate accepts RFC3339 timestamps or plain dates. Plain dates are
// read in loc so that day-trade classification uses the market calendar.
func ParseTradeDate(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(DateLayout, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid trade date %q, expected %s or RFC3339", value, DateLayout)
	}
	return t, nil
}

// MarketDay truncates t to midnight of its calendar day in loc.
func MarketDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
