package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/folio-service/folio_service/internal/domain/entities"
)

// PerformanceRepository handles daily performance snapshots. Rows are written
// by the snapshot calculator and range-deleted and regenerated by the backfill
// orchestrator; they are never edited individually.
type PerformanceRepository struct {
	db     *sqlx.DB
	q      sqlx.ExtContext
	logger *zap.Logger
	tracer trace.Tracer
}

// NewPerformanceRepository creates a new performance repository
func NewPerformanceRepository(db *sqlx.DB, logger *zap.Logger) *PerformanceRepository {
	return &PerformanceRepository{
		db:     db,
		q:      db,
		logger: logger,
		tracer: otel.Tracer("performance-repository"),
	}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *PerformanceRepository) WithTx(tx *sqlx.Tx) *PerformanceRepository {
	c := *r
	c.q = tx
	return &c
}

// GetLatestBefore returns the chronologically last snapshot strictly before
// the given day, or (nil, nil) when none exists.
func (r *PerformanceRepository) GetLatestBefore(ctx context.Context, portfolioID uuid.UUID, day time.Time) (*entities.DailyPerformance, error) {
	query := `
		SELECT id, portfolio_id, date, total_equity, cash_balance, net_cash_flow, daily_return_pct, created_at
		FROM portfolio_daily_performance
		WHERE portfolio_id = $1 AND date < $2
		ORDER BY date DESC
		LIMIT 1
	`

	var perf entities.DailyPerformance
	err := sqlx.GetContext(ctx, r.q, &perf, query, portfolioID, day.Format("2006-01-02"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest snapshot: %w", err)
	}

	return &perf, nil
}

// Upsert writes the snapshot for (portfolio, date), overwriting any existing
// row for that day.
func (r *PerformanceRepository) Upsert(ctx context.Context, perf *entities.DailyPerformance) error {
	ctx, span := r.tracer.Start(ctx, "performance_repo.upsert", trace.WithAttributes(
		attribute.String("portfolio_id", perf.PortfolioID.String()),
		attribute.String("date", perf.Date.Format("2006-01-02")),
	))
	defer span.End()

	query := `
		INSERT INTO portfolio_daily_performance
			(id, portfolio_id, date, total_equity, cash_balance, net_cash_flow, daily_return_pct, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (portfolio_id, date) DO UPDATE SET
			total_equity = EXCLUDED.total_equity,
			cash_balance = EXCLUDED.cash_balance,
			net_cash_flow = EXCLUDED.net_cash_flow,
			daily_return_pct = EXCLUDED.daily_return_pct
	`

	_, err := r.q.ExecContext(ctx, query,
		perf.ID,
		perf.PortfolioID,
		perf.Date.Format("2006-01-02"),
		perf.TotalEquity,
		perf.CashBalance,
		perf.NetCashFlow,
		perf.DailyReturnPct,
		perf.CreatedAt,
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to upsert snapshot: %w", err)
	}

	return nil
}

// DeleteUpTo removes every snapshot for the portfolio dated on or before the
// given day.
func (r *PerformanceRepository) DeleteUpTo(ctx context.Context, portfolioID uuid.UUID, day time.Time) (int64, error) {
	query := `DELETE FROM portfolio_daily_performance WHERE portfolio_id = $1 AND date <= $2`

	res, err := r.q.ExecContext(ctx, query, portfolioID, day.Format("2006-01-02"))
	if err != nil {
		return 0, fmt.Errorf("failed to delete snapshots: %w", err)
	}

	n, _ := res.RowsAffected()
	return n, nil
}

// ListRange returns snapshots for the portfolio in ascending date order. Zero
// from/to bounds are open.
func (r *PerformanceRepository) ListRange(ctx context.Context, portfolioID uuid.UUID, from, to time.Time) ([]entities.DailyPerformance, error) {
	ctx, span := r.tracer.Start(ctx, "performance_repo.list_range", trace.WithAttributes(
		attribute.String("portfolio_id", portfolioID.String()),
	))
	defer span.End()

	query := `
		SELECT id, portfolio_id, date, total_equity, cash_balance, net_cash_flow, daily_return_pct, created_at
		FROM portfolio_daily_performance
		WHERE portfolio_id = $1
		  AND ($2::date IS NULL OR date >= $2)
		  AND ($3::date IS NULL OR date <= $3)
		ORDER BY date ASC
	`

	var fromArg, toArg interface{}
	if !from.IsZero() {
		fromArg = from.Format("2006-01-02")
	}
	if !to.IsZero() {
		toArg = to.Format("2006-01-02")
	}

	var series []entities.DailyPerformance
	if err := sqlx.SelectContext(ctx, r.q, &series, query, portfolioID, fromArg, toArg); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	return series, nil
}
