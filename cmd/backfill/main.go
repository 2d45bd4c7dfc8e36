// Command backfill rebuilds performance snapshots from the command line,
// for operational recovery when the in-process worker is not an option.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/folio-service/folio_service/internal/domain/entities"
	"github.com/folio-service/folio_service/internal/domain/services/performance"
	"github.com/folio-service/folio_service/internal/infrastructure/config"
	"github.com/folio-service/folio_service/internal/infrastructure/database"
	"github.com/folio-service/folio_service/internal/infrastructure/repositories"
	"github.com/folio-service/folio_service/pkg/logger"
)

// noopCache satisfies the performance cache without a Redis connection;
// a CLI run has no warm cache to protect.
type noopCache struct{}

func (noopCache) GetSeries(context.Context, uuid.UUID, time.Time, time.Time) ([]entities.DailyPerformance, bool) {
	return nil, false
}
func (noopCache) SetSeries(context.Context, uuid.UUID, time.Time, time.Time, []entities.DailyPerformance) {
}
func (noopCache) Invalidate(context.Context, uuid.UUID) {}

func main() {
	portfolioFlag := flag.String("portfolio", "", "portfolio ID to rebuild (required)")
	fromFlag := flag.String("from", "", "start date YYYY-MM-DD (required)")
	flag.Parse()

	portfolioID, err := uuid.Parse(*portfolioFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid -portfolio:", err)
		os.Exit(2)
	}
	startDate, err := time.Parse("2006-01-02", *fromFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid -from:", err)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, cfg.Environment)

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		log.Fatalw("Failed to connect to database", "error", err)
	}
	defer db.Close()

	zapLog := log.Zap()
	txRepo := repositories.NewTransactionRepository(db, zapLog)
	perfRepo := repositories.NewPerformanceRepository(db, zapLog)
	mktRepo := repositories.NewMarketDataRepository(db, zapLog)
	svc := performance.NewService(
		txRepo,
		perfRepo,
		mktRepo,
		performance.NewTxBinder(db, txRepo, perfRepo, mktRepo),
		noopCache{},
		log.Named("backfill"),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	began := time.Now()
	if err := svc.RecalculateFromDate(ctx, portfolioID, startDate); err != nil {
		log.Fatalw("Backfill failed", "portfolio_id", portfolioID.String(), "error", err)
	}

	log.Infow("Backfill finished",
		"portfolio_id", portfolioID.String(),
		"from", startDate.Format("2006-01-02"),
		"took", time.Since(began).String(),
	)
}
