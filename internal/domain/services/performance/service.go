package performance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/folio-service/folio_service/internal/domain/entities"
	"github.com/folio-service/folio_service/pkg/logger"
	"github.com/folio-service/folio_service/pkg/metrics"
)

// TransactionStore is the slice of the ledger the performance service reads.
type TransactionStore interface {
	ListByPortfolioBefore(ctx context.Context, portfolioID uuid.UUID, before time.Time) ([]entities.Transaction, error)
	DistinctTickers(ctx context.Context, portfolioID uuid.UUID) ([]string, error)
}

// SnapshotStore persists daily performance rows.
type SnapshotStore interface {
	GetLatestBefore(ctx context.Context, portfolioID uuid.UUID, day time.Time) (*entities.DailyPerformance, error)
	Upsert(ctx context.Context, perf *entities.DailyPerformance) error
	DeleteUpTo(ctx context.Context, portfolioID uuid.UUID, day time.Time) (int64, error)
	ListRange(ctx context.Context, portfolioID uuid.UUID, from, to time.Time) ([]entities.DailyPerformance, error)
}

// PriceStore serves close prices, singly and batched over a date range.
type PriceStore interface {
	GetClosePrice(ctx context.Context, ticker string, day time.Time) (decimal.Decimal, bool, error)
	GetClosePrices(ctx context.Context, tickers []string, from, to time.Time) (map[string]map[string]decimal.Decimal, error)
}

// TxBinder runs fn against stores bound to one database transaction, so a
// multi-step rewrite commits or rolls back as a unit.
type TxBinder interface {
	InTx(ctx context.Context, fn func(txns TransactionStore, snaps SnapshotStore, prices PriceStore) error) error
}

// SeriesCache caches performance series per portfolio and date range.
// Implementations must tolerate unavailability: a miss and a cache outage
// look the same to this service.
type SeriesCache interface {
	GetSeries(ctx context.Context, portfolioID uuid.UUID, from, to time.Time) ([]entities.DailyPerformance, bool)
	SetSeries(ctx context.Context, portfolioID uuid.UUID, from, to time.Time, series []entities.DailyPerformance)
	Invalidate(ctx context.Context, portfolioID uuid.UUID)
}

// Service computes and serves daily TWR snapshots.
type Service struct {
	txns   TransactionStore
	snaps  SnapshotStore
	prices PriceStore
	binder TxBinder
	cache  SeriesCache
	logger *logger.Logger
	tracer trace.Tracer
	now    func() time.Time
}

// NewService creates a new performance service
func NewService(txns TransactionStore, snaps SnapshotStore, prices PriceStore, binder TxBinder, cache SeriesCache, logger *logger.Logger) *Service {
	return &Service{
		txns:   txns,
		snaps:  snaps,
		prices: prices,
		binder: binder,
		cache:  cache,
		logger: logger,
		tracer: otel.Tracer("services.performance"),
		now:    time.Now,
	}
}

// CalculateDailySnapshot computes and persists the snapshot for one day. A
// held ticker without a close price for the day is a hard error here; the
// caller asked for this specific day and should see the gap.
func (s *Service) CalculateDailySnapshot(ctx context.Context, portfolioID uuid.UUID, day time.Time) (*entities.DailyPerformance, error) {
	ctx, span := s.tracer.Start(ctx, "performance.CalculateDailySnapshot",
		trace.WithAttributes(attribute.String("portfolio_id", portfolioID.String())))
	defer span.End()

	dayStart := day.UTC().Truncate(24 * time.Hour)

	startEquity := decimal.Zero
	prev, err := s.snaps.GetLatestBefore(ctx, portfolioID, dayStart)
	if err != nil {
		return nil, fmt.Errorf("failed to load prior snapshot: %w", err)
	}
	if prev != nil {
		startEquity = prev.TotalEquity
	}

	txns, err := s.txns.ListByPortfolioBefore(ctx, portfolioID, dayStart.Add(24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}

	var lookupErr error
	price := func(ticker string, d time.Time) (decimal.Decimal, bool) {
		close, ok, err := s.prices.GetClosePrice(ctx, ticker, d)
		if err != nil {
			lookupErr = err
			return decimal.Zero, false
		}
		return close, ok
	}

	snap, err := computeSnapshot(portfolioID, dayStart, txns, startEquity, price)
	if lookupErr != nil {
		return nil, fmt.Errorf("failed to load close price: %w", lookupErr)
	}
	if err != nil {
		return nil, err
	}

	if err := s.snaps.Upsert(ctx, snap); err != nil {
		return nil, fmt.Errorf("failed to persist snapshot: %w", err)
	}

	metrics.SnapshotsWritten.Inc()
	s.cache.Invalidate(ctx, portfolioID)

	s.logger.WithContext(ctx).Infow("daily snapshot written",
		"portfolio_id", portfolioID.String(),
		"date", dayStart.Format(DayKey),
		"total_equity", snap.TotalEquity.String(),
	)
	return snap, nil
}

// GetDailyPerformance returns the stored snapshot series for a date range,
// consulting the cache first. Zero-valued bounds mean an open range.
func (s *Service) GetDailyPerformance(ctx context.Context, portfolioID uuid.UUID, from, to time.Time) ([]entities.DailyPerformance, error) {
	if series, ok := s.cache.GetSeries(ctx, portfolioID, from, to); ok {
		return series, nil
	}

	series, err := s.snaps.ListRange(ctx, portfolioID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	s.cache.SetSeries(ctx, portfolioID, from, to, series)
	return series, nil
}

// GetCumulativeReturn geometrically links the range's daily returns.
func (s *Service) GetCumulativeReturn(ctx context.Context, portfolioID uuid.UUID, from, to time.Time, excludeCash bool) (decimal.Decimal, error) {
	series, err := s.GetDailyPerformance(ctx, portfolioID, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	return CumulativeReturn(series, excludeCash), nil
}
