package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folio-service/folio_service/internal/domain/entities"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func txn(txType entities.TransactionType, ticker string, qty, price float64, date time.Time) entities.Transaction {
	return entities.Transaction{
		ID:              uuid.New(),
		PortfolioID:     uuid.New(),
		Type:            txType,
		Ticker:          ticker,
		Quantity:        decimal.NewFromFloat(qty),
		Price:           decimal.NewFromFloat(price),
		TransactionDate: date,
		CreatedAt:       date,
	}
}

func TestReplayPositions(t *testing.T) {
	t.Run("buys and deposits add, sells and withdrawals subtract", func(t *testing.T) {
		txns := []entities.Transaction{
			txn(entities.TransactionTypeDeposit, "CASH", 10000, 1, day(1)),
			txn(entities.TransactionTypeBuy, "AAPL", 10, 150, day(2)),
			txn(entities.TransactionTypeSell, "CASH", 1500, 1, day(2)),
			txn(entities.TransactionTypeSell, "AAPL", 4, 160, day(3)),
			txn(entities.TransactionTypeBuy, "CASH", 640, 1, day(3)),
			txn(entities.TransactionTypeWithdrawal, "CASH", 2000, 1, day(4)),
		}

		positions := ReplayPositions(txns)

		assert.True(t, positions["AAPL"].Equal(decimal.NewFromInt(6)))
		assert.True(t, positions["CASH"].Equal(decimal.NewFromInt(7140)))
	})

	t.Run("empty ledger yields no positions", func(t *testing.T) {
		assert.Empty(t, ReplayPositions(nil))
	})

	t.Run("intermediate negative quantity is preserved", func(t *testing.T) {
		// A trade's CASH leg can be dated before the funding deposit; the
		// running balance goes negative and must not be clamped.
		txns := []entities.Transaction{
			txn(entities.TransactionTypeSell, "CASH", 500, 1, day(1)),
			txn(entities.TransactionTypeDeposit, "CASH", 2000, 1, day(2)),
		}

		assert.True(t, ReplayPositions(txns[:1])["CASH"].Equal(decimal.NewFromInt(-500)))
		assert.True(t, ReplayPositions(txns)["CASH"].Equal(decimal.NewFromInt(1500)))
	})
}

func TestReplayPositionsWithCostBasis(t *testing.T) {
	t.Run("weighted average cost across buys", func(t *testing.T) {
		txns := []entities.Transaction{
			txn(entities.TransactionTypeBuy, "MSFT", 10, 100, day(1)),
			txn(entities.TransactionTypeBuy, "MSFT", 10, 200, day(2)),
		}

		lots := ReplayPositionsWithCostBasis(txns)

		require.Contains(t, lots, "MSFT")
		assert.True(t, lots["MSFT"].Quantity.Equal(decimal.NewFromInt(20)))
		assert.True(t, lots["MSFT"].AvgCostBasis.Equal(decimal.NewFromInt(150)))
	})

	t.Run("sells keep the average and reduce total cost", func(t *testing.T) {
		txns := []entities.Transaction{
			txn(entities.TransactionTypeBuy, "MSFT", 10, 100, day(1)),
			txn(entities.TransactionTypeSell, "MSFT", 4, 300, day(2)),
		}

		lots := ReplayPositionsWithCostBasis(txns)

		require.Contains(t, lots, "MSFT")
		assert.True(t, lots["MSFT"].Quantity.Equal(decimal.NewFromInt(6)))
		// Selling at a gain leaves the average cost untouched.
		assert.True(t, lots["MSFT"].AvgCostBasis.Equal(decimal.NewFromInt(100)))
	})

	t.Run("reduction from a non-positive lot subtracts at trade price", func(t *testing.T) {
		txns := []entities.Transaction{
			txn(entities.TransactionTypeSell, "CASH", 500, 1, day(1)),
			txn(entities.TransactionTypeDeposit, "CASH", 2000, 1, day(2)),
		}

		lots := ReplayPositionsWithCostBasis(txns)

		require.Contains(t, lots, "CASH")
		assert.True(t, lots["CASH"].Quantity.Equal(decimal.NewFromInt(1500)))
		assert.True(t, lots["CASH"].AvgCostBasis.Equal(decimal.NewFromInt(1)))
	})

	t.Run("fully closed positions are excluded", func(t *testing.T) {
		txns := []entities.Transaction{
			txn(entities.TransactionTypeBuy, "TSLA", 5, 200, day(1)),
			txn(entities.TransactionTypeSell, "TSLA", 5, 250, day(2)),
		}

		assert.NotContains(t, ReplayPositionsWithCostBasis(txns), "TSLA")
	})
}
