package performance

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folio-service/folio_service/internal/domain/entities"
	"github.com/folio-service/folio_service/pkg/errors"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func txn(txType entities.TransactionType, ticker string, qty, price float64, date time.Time) entities.Transaction {
	return entities.Transaction{
		ID:              uuid.New(),
		Type:            txType,
		Ticker:          ticker,
		Quantity:        decimal.NewFromFloat(qty),
		Price:           decimal.NewFromFloat(price),
		TransactionDate: date,
		CreatedAt:       date,
	}
}

func priceMap(prices map[string]map[string]float64) priceFn {
	return func(ticker string, d time.Time) (decimal.Decimal, bool) {
		p, ok := prices[ticker][d.Format(DayKey)]
		if !ok {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(p), true
	}
}

func TestDailyReturn(t *testing.T) {
	t.Run("growth without flow", func(t *testing.T) {
		r := dailyReturn(decimal.NewFromInt(3200), decimal.NewFromInt(3300), decimal.Zero)
		assert.True(t, r.Equal(decimal.NewFromFloat(0.03125)), "got %s", r)
	})

	t.Run("deposit is not performance", func(t *testing.T) {
		// Equity doubles because of a deposit; the return is zero.
		r := dailyReturn(decimal.NewFromInt(10000), decimal.NewFromInt(20000), decimal.NewFromInt(10000))
		assert.True(t, r.IsZero())
	})

	t.Run("zero denominator yields exactly zero", func(t *testing.T) {
		r := dailyReturn(decimal.Zero, decimal.NewFromInt(10000), decimal.Zero)
		assert.True(t, r.IsZero())

		// First-ever day: deposit fully offsets in the denominator check.
		r = dailyReturn(decimal.NewFromInt(500), decimal.NewFromInt(700), decimal.NewFromInt(-500))
		assert.True(t, r.IsZero())
	})

	t.Run("withdrawal is credited back", func(t *testing.T) {
		// 10000 start, withdraw 1000, end 9180: organic return is 2%.
		r := dailyReturn(decimal.NewFromInt(10000), decimal.NewFromInt(9180), decimal.NewFromInt(-1000))
		assert.True(t, r.Equal(decimal.NewFromFloat(0.02)), "got %s", r)
	})
}

func TestComputeSnapshot(t *testing.T) {
	portfolioID := uuid.New()

	t.Run("first day deposit", func(t *testing.T) {
		txns := []entities.Transaction{
			txn(entities.TransactionTypeDeposit, "CASH", 10000, 1, day(1)),
		}

		snap, err := computeSnapshot(portfolioID, day(1), txns, decimal.Zero, priceMap(nil))

		require.NoError(t, err)
		assert.True(t, snap.TotalEquity.Equal(decimal.NewFromInt(10000)))
		assert.True(t, snap.CashBalance.Equal(decimal.NewFromInt(10000)))
		assert.True(t, snap.NetCashFlow.Equal(decimal.NewFromInt(10000)))
		assert.True(t, snap.DailyReturnPct.IsZero())
	})

	t.Run("positions valued at the day's close", func(t *testing.T) {
		txns := []entities.Transaction{
			txn(entities.TransactionTypeDeposit, "CASH", 10000, 1, day(1)),
			txn(entities.TransactionTypeBuy, "AAPL", 10, 880, day(2)),
			txn(entities.TransactionTypeSell, "CASH", 8800, 1, day(2)),
		}
		prices := priceMap(map[string]map[string]float64{
			"AAPL": {"2024-01-02": 900},
		})

		snap, err := computeSnapshot(portfolioID, day(2), txns, decimal.NewFromInt(10000), prices)

		require.NoError(t, err)
		// 10 shares at 900 plus 1200 cash.
		assert.True(t, snap.TotalEquity.Equal(decimal.NewFromInt(10200)))
		assert.True(t, snap.CashBalance.Equal(decimal.NewFromInt(1200)))
		assert.True(t, snap.NetCashFlow.IsZero())
		assert.True(t, snap.DailyReturnPct.Equal(decimal.NewFromFloat(0.02)), "got %s", snap.DailyReturnPct)
	})

	t.Run("missing close price fails", func(t *testing.T) {
		txns := []entities.Transaction{
			txn(entities.TransactionTypeDeposit, "CASH", 10000, 1, day(1)),
			txn(entities.TransactionTypeBuy, "AAPL", 10, 880, day(2)),
			txn(entities.TransactionTypeSell, "CASH", 8800, 1, day(2)),
		}

		_, err := computeSnapshot(portfolioID, day(2), txns, decimal.NewFromInt(10000), priceMap(nil))

		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.ErrCodeMissingMarketData))
	})

	t.Run("flows outside the day's window do not count", func(t *testing.T) {
		txns := []entities.Transaction{
			txn(entities.TransactionTypeDeposit, "CASH", 10000, 1, day(1)),
			txn(entities.TransactionTypeDeposit, "CASH", 500, 1, day(2)),
			txn(entities.TransactionTypeWithdrawal, "CASH", 200, 1, day(2)),
		}

		snap, err := computeSnapshot(portfolioID, day(2), txns, decimal.NewFromInt(10000), priceMap(nil))

		require.NoError(t, err)
		// Only day 2's deposit minus withdrawal.
		assert.True(t, snap.NetCashFlow.Equal(decimal.NewFromInt(300)), "got %s", snap.NetCashFlow)
	})

	t.Run("transactions after the day are ignored", func(t *testing.T) {
		txns := []entities.Transaction{
			txn(entities.TransactionTypeDeposit, "CASH", 10000, 1, day(1)),
			txn(entities.TransactionTypeWithdrawal, "CASH", 9999, 1, day(5)),
		}

		snap, err := computeSnapshot(portfolioID, day(1), txns, decimal.Zero, priceMap(nil))

		require.NoError(t, err)
		assert.True(t, snap.TotalEquity.Equal(decimal.NewFromInt(10000)))
	})

	t.Run("closed positions need no price", func(t *testing.T) {
		txns := []entities.Transaction{
			txn(entities.TransactionTypeDeposit, "CASH", 10000, 1, day(1)),
			txn(entities.TransactionTypeBuy, "AAPL", 10, 100, day(2)),
			txn(entities.TransactionTypeSell, "CASH", 1000, 1, day(2)),
			txn(entities.TransactionTypeSell, "AAPL", 10, 110, day(3)),
			txn(entities.TransactionTypeBuy, "CASH", 1100, 1, day(3)),
		}

		// AAPL has no close on day 4, but the position is flat.
		snap, err := computeSnapshot(portfolioID, day(4), txns, decimal.NewFromInt(10100), priceMap(nil))

		require.NoError(t, err)
		assert.True(t, snap.TotalEquity.Equal(decimal.NewFromInt(10100)))
	})
}
