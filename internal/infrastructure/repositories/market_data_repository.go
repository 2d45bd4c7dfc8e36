package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MarketDataRepository reads the market_data_daily reference table. Absence of
// a price is a normal outcome (non-trading day), not an error.
type MarketDataRepository struct {
	db     *sqlx.DB
	q      sqlx.ExtContext
	logger *zap.Logger
}

// NewMarketDataRepository creates a new market data repository
func NewMarketDataRepository(db *sqlx.DB, logger *zap.Logger) *MarketDataRepository {
	return &MarketDataRepository{db: db, q: db, logger: logger}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *MarketDataRepository) WithTx(tx *sqlx.Tx) *MarketDataRepository {
	c := *r
	c.q = tx
	return &c
}

// GetClosePrice returns the close price for one ticker on one day. The second
// return value is false when no row exists.
func (r *MarketDataRepository) GetClosePrice(ctx context.Context, ticker string, day time.Time) (decimal.Decimal, bool, error) {
	query := `SELECT close_price FROM market_data_daily WHERE ticker = $1 AND date = $2`

	var price decimal.Decimal
	err := sqlx.GetContext(ctx, r.q, &price, query, ticker, day.Format("2006-01-02"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, fmt.Errorf("failed to get close price: %w", err)
	}

	return price, true, nil
}

// GetClosePrices batch-fetches every close price for the given tickers across
// the whole date range in one query, keyed ticker -> "2006-01-02" -> price.
// This is the backfill's N+1 avoidance path.
func (r *MarketDataRepository) GetClosePrices(ctx context.Context, tickers []string, from, to time.Time) (map[string]map[string]decimal.Decimal, error) {
	out := make(map[string]map[string]decimal.Decimal, len(tickers))
	if len(tickers) == 0 {
		return out, nil
	}

	query := `
		SELECT ticker, date, close_price
		FROM market_data_daily
		WHERE ticker = ANY($1) AND date BETWEEN $2 AND $3
	`

	rows, err := r.q.QueryContext(ctx, query, pq.Array(tickers), from.Format("2006-01-02"), to.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("failed to batch fetch close prices: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ticker string
			day    time.Time
			price  decimal.Decimal
		)
		if err := rows.Scan(&ticker, &day, &price); err != nil {
			return nil, fmt.Errorf("failed to scan close price row: %w", err)
		}
		if _, ok := out[ticker]; !ok {
			out[ticker] = make(map[string]decimal.Decimal)
		}
		out[ticker][day.Format("2006-01-02")] = price
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return out, nil
}

// GetLatestCloses returns the most recent close per ticker, for display
// enrichment. Tickers with no market data are simply absent from the map.
func (r *MarketDataRepository) GetLatestCloses(ctx context.Context, tickers []string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(tickers))
	if len(tickers) == 0 {
		return out, nil
	}

	query := `
		SELECT DISTINCT ON (ticker) ticker, close_price
		FROM market_data_daily
		WHERE ticker = ANY($1)
		ORDER BY ticker, date DESC
	`

	rows, err := r.q.QueryContext(ctx, query, pq.Array(tickers))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest closes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ticker string
			price  decimal.Decimal
		)
		if err := rows.Scan(&ticker, &price); err != nil {
			return nil, fmt.Errorf("failed to scan latest close row: %w", err)
		}
		out[ticker] = price
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return out, nil
}

// UpsertCloses stores one day's close prices. Re-ingesting a day overwrites
// the stored close, so a corrected feed wins.
func (r *MarketDataRepository) UpsertCloses(ctx context.Context, day time.Time, closes map[string]decimal.Decimal) error {
	query := `
		INSERT INTO market_data_daily (ticker, date, close_price)
		VALUES ($1, $2, $3)
		ON CONFLICT (ticker, date) DO UPDATE SET close_price = EXCLUDED.close_price
	`

	for ticker, close := range closes {
		if _, err := r.q.ExecContext(ctx, query, ticker, day, close); err != nil {
			return fmt.Errorf("failed to upsert close for %s: %w", ticker, err)
		}
	}

	return nil
}
