package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// ErrorResponse is the error body every endpoint returns.
type ErrorResponse struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// CreatePortfolioRequest creates a new portfolio for the caller.
type CreatePortfolioRequest struct {
	Name         string `json:"name" binding:"required,min=1,max=120"`
	BaseCurrency string `json:"base_currency" binding:"omitempty,iso4217"`
}

// CreateTransactionRequest records one ledger entry. CASH entries carry an
// implicit price of 1 regardless of the submitted value.
type CreateTransactionRequest struct {
	Type            TransactionType `json:"type" binding:"required"`
	Ticker          string          `json:"ticker" binding:"required,ticker"`
	Quantity        decimal.Decimal `json:"quantity" binding:"required"`
	Price           decimal.Decimal `json:"price"`
	TransactionDate time.Time       `json:"transaction_date" binding:"required"`
}

// RecalculateRequest triggers a snapshot rebuild from a start date.
type RecalculateRequest struct {
	StartDate time.Time `json:"start_date" binding:"required"`
}

// CumulativeReturnResponse reports a linked return over a range.
type CumulativeReturnResponse struct {
	PortfolioID      string          `json:"portfolio_id"`
	From             string          `json:"from,omitempty"`
	To               string          `json:"to,omitempty"`
	ExcludeCash      bool            `json:"exclude_cash"`
	CumulativeReturn decimal.Decimal `json:"cumulative_return"`
}
