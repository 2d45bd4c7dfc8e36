package performance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/folio-service/folio_service/pkg/errors"
	"github.com/folio-service/folio_service/pkg/metrics"
)

// RecalculateFromDate rebuilds the portfolio's snapshot history from
// startDate through today inside one transaction: either the whole range is
// rewritten or nothing changes. Days where a held ticker has no close price
// are treated as non-trading days and skipped rather than failing the run.
// Prices for the whole range are prefetched in a single query.
func (s *Service) RecalculateFromDate(ctx context.Context, portfolioID uuid.UUID, startDate time.Time) error {
	ctx, span := s.tracer.Start(ctx, "performance.RecalculateFromDate",
		trace.WithAttributes(
			attribute.String("portfolio_id", portfolioID.String()),
			attribute.String("start_date", startDate.UTC().Format(DayKey)),
		))
	defer span.End()

	began := time.Now()
	first := startDate.UTC().Truncate(24 * time.Hour)
	today := s.now().UTC().Truncate(24 * time.Hour)

	var written, skipped int
	err := s.binder.InTx(ctx, func(txRepo TransactionStore, perfRepo SnapshotStore, mktRepo PriceStore) error {
		deleted, err := perfRepo.DeleteUpTo(ctx, portfolioID, today)
		if err != nil {
			return fmt.Errorf("failed to clear snapshot range: %w", err)
		}

		tickers, err := txRepo.DistinctTickers(ctx, portfolioID)
		if err != nil {
			return fmt.Errorf("failed to collect tickers: %w", err)
		}

		// One query for every (ticker, day) in the range.
		prices := map[string]map[string]decimal.Decimal{}
		if len(tickers) > 0 {
			prices, err = mktRepo.GetClosePrices(ctx, tickers, first, today)
			if err != nil {
				return fmt.Errorf("failed to prefetch close prices: %w", err)
			}
		}
		price := func(ticker string, day time.Time) (decimal.Decimal, bool) {
			close, ok := prices[ticker][day.Format(DayKey)]
			return close, ok
		}

		txns, err := txRepo.ListByPortfolioBefore(ctx, portfolioID, today.Add(24*time.Hour))
		if err != nil {
			return fmt.Errorf("failed to load ledger: %w", err)
		}

		// Each day's start equity is the last snapshot written in this run;
		// everything at or before today was just deleted, so the first
		// computed day starts from zero.
		startEquity := decimal.Zero
		for day := first; !day.After(today); day = day.AddDate(0, 0, 1) {
			snap, err := computeSnapshot(portfolioID, day, txns, startEquity, price)
			if err != nil {
				if errors.HasCode(err, errors.ErrCodeMissingMarketData) {
					skipped++
					continue
				}
				return err
			}
			if err := perfRepo.Upsert(ctx, snap); err != nil {
				return fmt.Errorf("failed to write snapshot for %s: %w", day.Format(DayKey), err)
			}
			startEquity = snap.TotalEquity
			written++
		}

		s.logger.WithContext(ctx).Infow("backfill computed",
			"portfolio_id", portfolioID.String(),
			"from", first.Format(DayKey),
			"to", today.Format(DayKey),
			"deleted", deleted,
			"written", written,
			"skipped", skipped,
		)
		return nil
	})
	if err != nil {
		metrics.BackfillFailures.Inc()
		return err
	}

	metrics.BackfillDuration.Observe(time.Since(began).Seconds())
	metrics.BackfillDays.Observe(float64(written))
	metrics.SnapshotsWritten.Add(float64(written))
	s.cache.Invalidate(ctx, portfolioID)
	return nil
}
