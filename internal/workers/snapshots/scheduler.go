package snapshots

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/folio-service/folio_service/internal/domain/entities"
	"github.com/folio-service/folio_service/pkg/errors"
)

// PortfolioLister enumerates portfolios for the nightly run
type PortfolioLister interface {
	ListAll(ctx context.Context) ([]entities.Portfolio, error)
}

// TickerLister returns the distinct non-CASH tickers a portfolio has traded
type TickerLister interface {
	DistinctTickers(ctx context.Context, portfolioID uuid.UUID) ([]string, error)
}

// QuoteFetcher pulls end-of-day closes from the external provider
type QuoteFetcher interface {
	GetDailyCloses(ctx context.Context, tickers []string, day time.Time) (map[string]decimal.Decimal, error)
}

// CloseStore persists ingested close prices
type CloseStore interface {
	UpsertCloses(ctx context.Context, day time.Time, closes map[string]decimal.Decimal) error
}

// SnapshotCalculator computes one portfolio-day snapshot
type SnapshotCalculator interface {
	CalculateDailySnapshot(ctx context.Context, portfolioID uuid.UUID, day time.Time) (*entities.DailyPerformance, error)
}

// Scheduler runs the nightly close ingestion and snapshot pass. It ingests
// the prior day's closes for every traded ticker, then computes that day's
// snapshot for each portfolio. Portfolios whose tickers have no close for
// the day (weekends, holidays) are logged and skipped.
type Scheduler struct {
	cron       *cron.Cron
	schedule   string
	portfolios PortfolioLister
	tickers    TickerLister
	quotes     QuoteFetcher
	closes     CloseStore
	calculator SnapshotCalculator
	logger     *zap.Logger
}

// NewScheduler creates a new snapshot scheduler
func NewScheduler(schedule string, portfolios PortfolioLister, tickers TickerLister, quotes QuoteFetcher, closes CloseStore, calculator SnapshotCalculator, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:       cron.New(),
		schedule:   schedule,
		portfolios: portfolios,
		tickers:    tickers,
		quotes:     quotes,
		closes:     closes,
		calculator: calculator,
		logger:     logger,
	}
}

// Start registers the cron entry and starts the scheduler.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		s.RunOnce(ctx)
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("snapshot scheduler started", zap.String("schedule", s.schedule))
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("snapshot scheduler stopped")
}

// RunOnce executes one full ingestion-and-snapshot pass for the prior
// calendar day. Exported so an operator can trigger it out of schedule.
func (s *Scheduler) RunOnce(ctx context.Context) {
	day := time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, -1)

	portfolios, err := s.portfolios.ListAll(ctx)
	if err != nil {
		s.logger.Error("nightly run aborted, cannot list portfolios", zap.Error(err))
		return
	}

	s.ingestCloses(ctx, portfolios, day)

	var written, skipped, failed int
	for _, p := range portfolios {
		if _, err := s.calculator.CalculateDailySnapshot(ctx, p.ID, day); err != nil {
			if errors.HasCode(err, errors.ErrCodeMissingMarketData) {
				skipped++
				continue
			}
			failed++
			s.logger.Error("nightly snapshot failed",
				zap.String("portfolio_id", p.ID.String()),
				zap.Error(err),
			)
			continue
		}
		written++
	}

	s.logger.Info("nightly snapshot pass finished",
		zap.String("date", day.Format("2006-01-02")),
		zap.Int("portfolios", len(portfolios)),
		zap.Int("written", written),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
	)
}

func (s *Scheduler) ingestCloses(ctx context.Context, portfolios []entities.Portfolio, day time.Time) {
	seen := map[string]struct{}{}
	var tickers []string
	for _, p := range portfolios {
		ts, err := s.tickers.DistinctTickers(ctx, p.ID)
		if err != nil {
			s.logger.Warn("cannot list tickers for ingestion",
				zap.String("portfolio_id", p.ID.String()),
				zap.Error(err),
			)
			continue
		}
		for _, t := range ts {
			if _, ok := seen[t]; !ok {
				seen[t] = struct{}{}
				tickers = append(tickers, t)
			}
		}
	}
	if len(tickers) == 0 {
		return
	}

	closes, err := s.quotes.GetDailyCloses(ctx, tickers, day)
	if err != nil {
		// Quote provider outages are tolerated; snapshots for the day are
		// skipped and picked up by a later backfill.
		s.logger.Warn("close ingestion failed", zap.Error(err))
		return
	}
	if err := s.closes.UpsertCloses(ctx, day, closes); err != nil {
		s.logger.Error("failed to store ingested closes", zap.Error(err))
		return
	}

	s.logger.Info("closes ingested",
		zap.String("date", day.Format("2006-01-02")),
		zap.Int("tickers", len(closes)),
	)
}
