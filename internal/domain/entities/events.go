package entities

import (
	"time"

	"github.com/google/uuid"
)

// TransactionMutationEvent is emitted on every ledger create or delete,
// unconditionally, and asks for a snapshot recomputation from the mutated
// transaction's date forward.
type TransactionMutationEvent struct {
	PortfolioID     uuid.UUID `json:"portfolio_id"`
	TransactionDate time.Time `json:"transaction_date"`
}
