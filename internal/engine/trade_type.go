package engine

import (
	"time"

	"golang-options/internal/model"
)

// TradeTypeResolver decides day vs swing from calendar dates in the market
// location, not from elapsed time.
type TradeTypeResolver struct {
	loc *time.Location
}

func NewTradeTypeResolver(loc *time.Location) TradeTypeResolver {
	if loc == nil {
		loc = time.UTC
	}
	return TradeTypeResolver{loc: loc}
}

func (r TradeTypeResolver) Resolve(entryDate, exitDate time.Time) model.TradeType {
	if r.SameDay(entryDate, exitDate) {
		return model.TradeTypeDay
	}
	return model.TradeTypeSwing
}

func (r TradeTypeResolver) SameDay(a, b time.Time) bool {
	ay, am, ad := a.In(r.loc).Date()
	by, bm, bd := b.In(r.loc).Date()
	return ay == by && am == bm && ad == bd
}

func (r TradeTypeResolver) Location() *time.Location {
	return r.loc
}
