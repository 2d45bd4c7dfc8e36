package entities

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CashTicker is the reserved symbol for the portfolio's cash balance.
// Deposits, withdrawals and the mirrored legs of trades all book against it.
const CashTicker = "CASH"

type TransactionType string

const (
	TransactionTypeBuy        TransactionType = "BUY"
	TransactionTypeSell       TransactionType = "SELL"
	TransactionTypeDeposit    TransactionType = "DEPOSIT"
	TransactionTypeWithdrawal TransactionType = "WITHDRAWAL"
)

// Valid reports whether t is one of the four ledger transaction types.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeBuy, TransactionTypeSell, TransactionTypeDeposit, TransactionTypeWithdrawal:
		return true
	}
	return false
}

// Transaction is an immutable ledger entry. Rows are only ever appended or
// deleted, never updated; all derived state is rebuilt by replay.
type Transaction struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	PortfolioID     uuid.UUID       `json:"portfolio_id" db:"portfolio_id"`
	Type            TransactionType `json:"type" db:"type"`
	Ticker          string          `json:"ticker" db:"ticker"`
	Quantity        decimal.Decimal `json:"quantity" db:"quantity"`
	Price           decimal.Decimal `json:"price" db:"price"`
	TransactionDate time.Time       `json:"transaction_date" db:"transaction_date"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}

// IsCash reports whether the entry books against the reserved CASH symbol.
func (t *Transaction) IsCash() bool {
	return t.Ticker == CashTicker
}

// IsExternalFlow reports whether the entry represents money crossing the
// portfolio boundary, as opposed to an internal reallocation.
func (t *Transaction) IsExternalFlow() bool {
	return t.Type == TransactionTypeDeposit || t.Type == TransactionTypeWithdrawal
}

// GrossAmount is quantity times price.
func (t *Transaction) GrossAmount() decimal.Decimal {
	return t.Quantity.Mul(t.Price)
}

// NormalizeTicker uppercases and trims a ticker symbol.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}
