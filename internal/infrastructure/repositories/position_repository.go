package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/folio-service/folio_service/internal/domain/entities"
)

// PositionRepository handles the materialized position cache. Rows are only
// written by the position materializer, always inside its transaction.
type PositionRepository struct {
	db     *sqlx.DB
	q      sqlx.ExtContext
	logger *zap.Logger
}

// NewPositionRepository creates a new position repository
func NewPositionRepository(db *sqlx.DB, logger *zap.Logger) *PositionRepository {
	return &PositionRepository{db: db, q: db, logger: logger}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *PositionRepository) WithTx(tx *sqlx.Tx) *PositionRepository {
	c := *r
	c.q = tx
	return &c
}

// ListByPortfolio returns the cached positions for a portfolio ordered by
// ticker.
func (r *PositionRepository) ListByPortfolio(ctx context.Context, portfolioID uuid.UUID) ([]entities.Position, error) {
	query := `
		SELECT id, portfolio_id, ticker, quantity, avg_cost_basis, updated_at
		FROM positions
		WHERE portfolio_id = $1
		ORDER BY ticker
	`

	var positions []entities.Position
	if err := sqlx.SelectContext(ctx, r.q, &positions, query, portfolioID); err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}

	return positions, nil
}

// Insert creates one cached position row.
func (r *PositionRepository) Insert(ctx context.Context, p *entities.Position) error {
	query := `
		INSERT INTO positions (id, portfolio_id, ticker, quantity, avg_cost_basis, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.q.ExecContext(ctx, query, p.ID, p.PortfolioID, p.Ticker, p.Quantity, p.AvgCostBasis, p.UpdatedAt)
	if err != nil {
		r.logger.Error("failed to insert position",
			zap.Error(err),
			zap.String("portfolio_id", p.PortfolioID.String()),
			zap.String("ticker", p.Ticker),
		)
		return fmt.Errorf("failed to insert position: %w", err)
	}

	return nil
}

// Update overwrites quantity and cost basis for one cached position row.
func (r *PositionRepository) Update(ctx context.Context, p *entities.Position) error {
	query := `
		UPDATE positions
		SET quantity = $1, avg_cost_basis = $2, updated_at = $3
		WHERE id = $4
	`

	_, err := r.q.ExecContext(ctx, query, p.Quantity, p.AvgCostBasis, p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update position: %w", err)
	}

	return nil
}

// Delete removes one cached position row.
func (r *PositionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM positions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete position: %w", err)
	}
	return nil
}
