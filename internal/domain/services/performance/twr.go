package performance

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/folio-service/folio_service/internal/domain/entities"
	"github.com/folio-service/folio_service/internal/domain/services/ledger"
	"github.com/folio-service/folio_service/pkg/errors"
)

// DayKey is the canonical string form of a calendar day, used as the inner
// key of batched price maps.
const DayKey = "2006-01-02"

// priceFn resolves a ticker's close price for a day, reporting presence.
// Implementations back onto either a per-day query or a prefetched map.
type priceFn func(ticker string, day time.Time) (decimal.Decimal, bool)

// dailyReturn is the time-weighted return for one day. External flow is
// credited before measuring growth so a deposit does not read as gain. A
// zero denominator yields exactly zero, never a division error.
func dailyReturn(startEquity, endEquity, netCashFlow decimal.Decimal) decimal.Decimal {
	denominator := startEquity.Add(netCashFlow)
	if denominator.IsZero() {
		return decimal.Zero
	}
	return endEquity.Sub(startEquity).Sub(netCashFlow).Div(denominator)
}

// computeSnapshot values the portfolio at end-of-day and derives the TWR
// entry for that day. txns is the full ledger in replay order; entries dated
// after the day are ignored. A held non-CASH ticker with no close price for
// the day fails with a missing-market-data error; callers decide whether
// that is fatal or a skip.
func computeSnapshot(portfolioID uuid.UUID, day time.Time, txns []entities.Transaction, startEquity decimal.Decimal, price priceFn) (*entities.DailyPerformance, error) {
	dayStart := day.UTC().Truncate(24 * time.Hour)
	dayEnd := dayStart.Add(24 * time.Hour)

	inScope := make([]entities.Transaction, 0, len(txns))
	netCashFlow := decimal.Zero
	for _, txn := range txns {
		if !txn.TransactionDate.Before(dayEnd) {
			continue
		}
		inScope = append(inScope, txn)
		if txn.IsExternalFlow() && !txn.TransactionDate.Before(dayStart) {
			if txn.Type == entities.TransactionTypeDeposit {
				netCashFlow = netCashFlow.Add(txn.GrossAmount())
			} else {
				netCashFlow = netCashFlow.Sub(txn.GrossAmount())
			}
		}
	}

	positions := ledger.ReplayPositions(inScope)

	stockValue := decimal.Zero
	for ticker, quantity := range positions {
		if ticker == entities.CashTicker || quantity.IsZero() {
			continue
		}
		close, ok := price(ticker, dayStart)
		if !ok {
			return nil, errors.MissingMarketData(ticker, dayStart.Format(DayKey))
		}
		stockValue = stockValue.Add(quantity.Mul(close))
	}

	cashBalance := positions[entities.CashTicker]
	endEquity := stockValue.Add(cashBalance)

	return &entities.DailyPerformance{
		ID:             uuid.New(),
		PortfolioID:    portfolioID,
		Date:           dayStart,
		TotalEquity:    endEquity,
		CashBalance:    cashBalance,
		NetCashFlow:    netCashFlow,
		DailyReturnPct: dailyReturn(startEquity, endEquity, netCashFlow),
		CreatedAt:      time.Now().UTC(),
	}, nil
}
