package position

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/folio-service/folio_service/internal/domain/entities"
	"github.com/folio-service/folio_service/internal/domain/services/ledger"
	"github.com/folio-service/folio_service/internal/infrastructure/database"
	"github.com/folio-service/folio_service/internal/infrastructure/repositories"
	"github.com/folio-service/folio_service/pkg/logger"
)

// Service maintains the positions table as a pure materialization of the
// transaction ledger. Recalculate is the only writer; it can be re-run at
// any time and always converges to the same rows for the same ledger.
type Service struct {
	db      *sqlx.DB
	txRepo  *repositories.TransactionRepository
	posRepo *repositories.PositionRepository
	mktRepo *repositories.MarketDataRepository
	logger  *logger.Logger
}

// NewService creates a new position service
func NewService(db *sqlx.DB, txRepo *repositories.TransactionRepository, posRepo *repositories.PositionRepository, mktRepo *repositories.MarketDataRepository, logger *logger.Logger) *Service {
	return &Service{
		db:      db,
		txRepo:  txRepo,
		posRepo: posRepo,
		mktRepo: mktRepo,
		logger:  logger,
	}
}

// Recalculate replays the portfolio's full ledger and reconciles the cached
// position rows against the replay result inside a single transaction.
func (s *Service) Recalculate(ctx context.Context, portfolioID uuid.UUID) error {
	return database.WithinTx(ctx, s.db, func(tx *sqlx.Tx) error {
		txRepo := s.txRepo.WithTx(tx)
		posRepo := s.posRepo.WithTx(tx)

		txns, err := txRepo.ListByPortfolioBefore(ctx, portfolioID, farFuture)
		if err != nil {
			return fmt.Errorf("failed to load ledger: %w", err)
		}

		desired := ledger.ReplayPositionsWithCostBasis(txns)

		cached, err := posRepo.ListByPortfolio(ctx, portfolioID)
		if err != nil {
			return fmt.Errorf("failed to load cached positions: %w", err)
		}

		plan := diff(portfolioID, desired, cached)

		for _, pos := range plan.inserts {
			if err := posRepo.Insert(ctx, &pos); err != nil {
				return fmt.Errorf("failed to insert position %s: %w", pos.Ticker, err)
			}
		}
		for _, pos := range plan.updates {
			if err := posRepo.Update(ctx, &pos); err != nil {
				return fmt.Errorf("failed to update position %s: %w", pos.Ticker, err)
			}
		}
		for _, id := range plan.deletes {
			if err := posRepo.Delete(ctx, id); err != nil {
				return fmt.Errorf("failed to delete stale position: %w", err)
			}
		}

		s.logger.WithContext(ctx).Debugw("positions resynced",
			"portfolio_id", portfolioID.String(),
			"inserted", len(plan.inserts),
			"updated", len(plan.updates),
			"deleted", len(plan.deletes),
		)
		return nil
	})
}

// ListPriced returns the portfolio's positions enriched with the most recent
// stored close and the implied market value. Tickers without stored prices
// come back with nil enrichment fields rather than failing the call.
func (s *Service) ListPriced(ctx context.Context, portfolioID uuid.UUID) ([]entities.PricedPosition, error) {
	positions, err := s.posRepo.ListByPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}

	tickers := make([]string, 0, len(positions))
	for _, pos := range positions {
		if pos.Ticker != entities.CashTicker {
			tickers = append(tickers, pos.Ticker)
		}
	}

	closes := map[string]decimal.Decimal{}
	if len(tickers) > 0 {
		closes, err = s.mktRepo.GetLatestCloses(ctx, tickers)
		if err != nil {
			return nil, fmt.Errorf("failed to load latest closes: %w", err)
		}
	}

	priced := make([]entities.PricedPosition, 0, len(positions))
	for _, pos := range positions {
		pp := entities.PricedPosition{Position: pos}
		if pos.Ticker == entities.CashTicker {
			one := decimal.NewFromInt(1)
			value := pos.Quantity
			pp.LastClose = &one
			pp.MarketValue = &value
		} else if close, ok := closes[pos.Ticker]; ok {
			value := pos.Quantity.Mul(close)
			pp.LastClose = &close
			pp.MarketValue = &value
		}
		priced = append(priced, pp)
	}

	return priced, nil
}

// farFuture bounds "the whole ledger" for date-bounded list queries.
var farFuture = time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)

type reconcilePlan struct {
	inserts []entities.Position
	updates []entities.Position
	deletes []uuid.UUID
}

// diff computes the row-level changes that make cached match desired.
func diff(portfolioID uuid.UUID, desired map[string]ledger.CostBasisPosition, cached []entities.Position) reconcilePlan {
	now := time.Now().UTC()
	byTicker := make(map[string]entities.Position, len(cached))
	for _, pos := range cached {
		byTicker[pos.Ticker] = pos
	}

	var plan reconcilePlan
	for ticker, want := range desired {
		if have, ok := byTicker[ticker]; ok {
			if !have.Quantity.Equal(want.Quantity) || !have.AvgCostBasis.Equal(want.AvgCostBasis) {
				have.Quantity = want.Quantity
				have.AvgCostBasis = want.AvgCostBasis
				have.UpdatedAt = now
				plan.updates = append(plan.updates, have)
			}
			continue
		}
		plan.inserts = append(plan.inserts, entities.Position{
			ID:           uuid.New(),
			PortfolioID:  portfolioID,
			Ticker:       ticker,
			Quantity:     want.Quantity,
			AvgCostBasis: want.AvgCostBasis,
			UpdatedAt:    now,
		})
	}
	for ticker, have := range byTicker {
		if _, ok := desired[ticker]; !ok {
			plan.deletes = append(plan.deletes, have.ID)
		}
	}
	return plan
}
