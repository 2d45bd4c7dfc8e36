package di

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/folio-service/folio_service/internal/adapters/marketdata"
	"github.com/folio-service/folio_service/internal/domain/services/ledger"
	"github.com/folio-service/folio_service/internal/domain/services/performance"
	"github.com/folio-service/folio_service/internal/domain/services/portfolio"
	"github.com/folio-service/folio_service/internal/domain/services/position"
	"github.com/folio-service/folio_service/internal/infrastructure/cache"
	"github.com/folio-service/folio_service/internal/infrastructure/config"
	"github.com/folio-service/folio_service/internal/infrastructure/repositories"
	"github.com/folio-service/folio_service/internal/workers/recalculation"
	"github.com/folio-service/folio_service/internal/workers/snapshots"
	"github.com/folio-service/folio_service/pkg/logger"
)

// Container holds all application dependencies
type Container struct {
	Config *config.Config
	DB     *sqlx.DB
	Redis  *redis.Client
	Logger *logger.Logger
	ZapLog *zap.Logger

	// Repositories
	PortfolioRepo   *repositories.PortfolioRepository
	TransactionRepo *repositories.TransactionRepository
	PositionRepo    *repositories.PositionRepository
	PerformanceRepo *repositories.PerformanceRepository
	MarketDataRepo  *repositories.MarketDataRepository

	// External clients
	QuoteClient *marketdata.Client

	// Domain services
	PortfolioService   *portfolio.Service
	LedgerService      *ledger.Service
	PositionService    *position.Service
	PerformanceService *performance.Service

	// Workers
	RecalculationWorker *recalculation.Worker
	SnapshotScheduler   *snapshots.Scheduler
}

// NewContainer wires the dependency graph.
func NewContainer(cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, log *logger.Logger) *Container {
	zapLog := log.Zap()

	c := &Container{
		Config: cfg,
		DB:     db,
		Redis:  redisClient,
		Logger: log,
		ZapLog: zapLog,
	}

	c.PortfolioRepo = repositories.NewPortfolioRepository(db, zapLog)
	c.TransactionRepo = repositories.NewTransactionRepository(db, zapLog)
	c.PositionRepo = repositories.NewPositionRepository(db, zapLog)
	c.PerformanceRepo = repositories.NewPerformanceRepository(db, zapLog)
	c.MarketDataRepo = repositories.NewMarketDataRepository(db, zapLog)

	c.QuoteClient = marketdata.NewClient(marketdata.Config{
		BaseURL: cfg.MarketData.BaseURL,
		APIKey:  cfg.MarketData.APIKey,
		Timeout: time.Duration(cfg.MarketData.TimeoutSeconds) * time.Second,
	}, zapLog)

	perfCache := cache.NewPerformanceCache(redisClient,
		time.Duration(cfg.Redis.PerformanceTTL)*time.Second, zapLog)

	c.PortfolioService = portfolio.NewService(c.PortfolioRepo, log.Named("portfolio"))
	c.PositionService = position.NewService(db, c.TransactionRepo, c.PositionRepo, c.MarketDataRepo, log.Named("position"))
	perfBinder := performance.NewTxBinder(db, c.TransactionRepo, c.PerformanceRepo, c.MarketDataRepo)
	c.PerformanceService = performance.NewService(c.TransactionRepo, c.PerformanceRepo, c.MarketDataRepo, perfBinder, perfCache, log.Named("performance"))

	c.RecalculationWorker = recalculation.NewWorker(c.PerformanceService, zapLog.Named("recalculation"))

	c.LedgerService = ledger.NewService(c.TransactionRepo, c.PositionService, c.RecalculationWorker, log.Named("ledger"))

	c.SnapshotScheduler = snapshots.NewScheduler(
		cfg.Worker.SnapshotSchedule,
		c.PortfolioRepo,
		c.TransactionRepo,
		c.QuoteClient,
		c.MarketDataRepo,
		c.PerformanceService,
		zapLog.Named("snapshots"),
	)

	return c
}

// StartWorkers launches the recalculation worker and the nightly scheduler.
func (c *Container) StartWorkers(ctx context.Context) error {
	c.RecalculationWorker.Start(ctx)
	return c.SnapshotScheduler.Start()
}

// StopWorkers shuts the workers down, waiting for in-flight work.
func (c *Container) StopWorkers() {
	c.SnapshotScheduler.Stop()
	c.RecalculationWorker.Stop()
}
