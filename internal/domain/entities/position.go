package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Position is the materialized cache of a portfolio's net holding in one
// ticker. It is derived entirely from transaction replay and must never be
// written outside the materializer.
type Position struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	PortfolioID  uuid.UUID       `json:"portfolio_id" db:"portfolio_id"`
	Ticker       string          `json:"ticker" db:"ticker"`
	Quantity     decimal.Decimal `json:"quantity" db:"quantity"`
	AvgCostBasis decimal.Decimal `json:"avg_cost_basis" db:"avg_cost_basis"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// PricedPosition is a position enriched with the most recent close price for
// display. MarketValue and LastClose are nil when no market data is available.
type PricedPosition struct {
	Position
	LastClose   *decimal.Decimal `json:"last_close,omitempty"`
	MarketValue *decimal.Decimal `json:"market_value,omitempty"`
}
