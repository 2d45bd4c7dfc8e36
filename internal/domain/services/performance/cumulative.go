package performance

import (
	"github.com/shopspring/decimal"

	"github.com/folio-service/folio_service/internal/domain/entities"
)

// CumulativeReturn geometrically links a date-ordered snapshot series into a
// single cumulative return. With excludeCash set, each day's return is
// recomputed over invested equity (total equity minus cash) against the
// prior day's invested equity, so cash drag is stripped from the figure; a
// zero invested base contributes zero for that day. Empty input returns 0.
func CumulativeReturn(snapshots []entities.DailyPerformance, excludeCash bool) decimal.Decimal {
	one := decimal.NewFromInt(1)
	cumulative := decimal.Zero

	if !excludeCash {
		for _, snap := range snapshots {
			cumulative = one.Add(cumulative).Mul(one.Add(snap.DailyReturnPct)).Sub(one)
		}
		return cumulative
	}

	priorInvested := decimal.Zero
	for _, snap := range snapshots {
		r := dailyReturn(priorInvested, snap.InvestedEquity(), snap.NetCashFlow)
		cumulative = one.Add(cumulative).Mul(one.Add(r)).Sub(one)
		priorInvested = snap.InvestedEquity()
	}
	return cumulative
}
