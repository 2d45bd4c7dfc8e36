package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DailyPerformance is one persisted snapshot of a portfolio's equity and
// time-weighted daily return for a single calendar day.
type DailyPerformance struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	PortfolioID    uuid.UUID       `json:"portfolio_id" db:"portfolio_id"`
	Date           time.Time       `json:"date" db:"date"`
	TotalEquity    decimal.Decimal `json:"total_equity" db:"total_equity"`
	CashBalance    decimal.Decimal `json:"cash_balance" db:"cash_balance"`
	NetCashFlow    decimal.Decimal `json:"net_cash_flow" db:"net_cash_flow"`
	DailyReturnPct decimal.Decimal `json:"daily_return_pct" db:"daily_return_pct"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// InvestedEquity is total equity with the cash balance stripped out.
func (p *DailyPerformance) InvestedEquity() decimal.Decimal {
	return p.TotalEquity.Sub(p.CashBalance)
}

// MarketDataDaily is one close price for one ticker on one day. The table is
// append-only reference data and read-only from this service's perspective.
type MarketDataDaily struct {
	Ticker     string          `json:"ticker" db:"ticker"`
	Date       time.Time       `json:"date" db:"date"`
	ClosePrice decimal.Decimal `json:"close_price" db:"close_price"`
}
