package position

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folio-service/folio_service/internal/domain/entities"
	"github.com/folio-service/folio_service/internal/domain/services/ledger"
)

func desiredLot(ticker string, qty, avg int64) ledger.CostBasisPosition {
	return ledger.CostBasisPosition{
		Ticker:       ticker,
		Quantity:     decimal.NewFromInt(qty),
		AvgCostBasis: decimal.NewFromInt(avg),
	}
}

func cachedPos(portfolioID uuid.UUID, ticker string, qty, avg int64) entities.Position {
	return entities.Position{
		ID:           uuid.New(),
		PortfolioID:  portfolioID,
		Ticker:       ticker,
		Quantity:     decimal.NewFromInt(qty),
		AvgCostBasis: decimal.NewFromInt(avg),
		UpdatedAt:    time.Now().UTC(),
	}
}

func TestDiff(t *testing.T) {
	portfolioID := uuid.New()

	t.Run("new tickers are inserted", func(t *testing.T) {
		desired := map[string]ledger.CostBasisPosition{
			"AAPL": desiredLot("AAPL", 10, 150),
		}

		plan := diff(portfolioID, desired, nil)

		require.Len(t, plan.inserts, 1)
		assert.Empty(t, plan.updates)
		assert.Empty(t, plan.deletes)
		assert.Equal(t, "AAPL", plan.inserts[0].Ticker)
		assert.Equal(t, portfolioID, plan.inserts[0].PortfolioID)
		assert.True(t, plan.inserts[0].Quantity.Equal(decimal.NewFromInt(10)))
	})

	t.Run("changed quantities are updated in place", func(t *testing.T) {
		have := cachedPos(portfolioID, "AAPL", 10, 150)
		desired := map[string]ledger.CostBasisPosition{
			"AAPL": desiredLot("AAPL", 6, 150),
		}

		plan := diff(portfolioID, desired, []entities.Position{have})

		require.Len(t, plan.updates, 1)
		assert.Empty(t, plan.inserts)
		assert.Empty(t, plan.deletes)
		// The row keeps its identity; only the replayed values move.
		assert.Equal(t, have.ID, plan.updates[0].ID)
		assert.True(t, plan.updates[0].Quantity.Equal(decimal.NewFromInt(6)))
	})

	t.Run("tickers absent from the replay are deleted", func(t *testing.T) {
		have := cachedPos(portfolioID, "TSLA", 5, 200)

		plan := diff(portfolioID, map[string]ledger.CostBasisPosition{}, []entities.Position{have})

		require.Len(t, plan.deletes, 1)
		assert.Equal(t, have.ID, plan.deletes[0])
	})

	t.Run("identical state is a no-op", func(t *testing.T) {
		have := cachedPos(portfolioID, "AAPL", 10, 150)
		desired := map[string]ledger.CostBasisPosition{
			"AAPL": desiredLot("AAPL", 10, 150),
		}

		plan := diff(portfolioID, desired, []entities.Position{have})

		assert.Empty(t, plan.inserts)
		assert.Empty(t, plan.updates)
		assert.Empty(t, plan.deletes)
	})
}
