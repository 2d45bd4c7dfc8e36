package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/folio-service/folio_service/internal/domain/entities"
)

// PortfolioRepository handles portfolio persistence.
type PortfolioRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewPortfolioRepository creates a new portfolio repository
func NewPortfolioRepository(db *sqlx.DB, logger *zap.Logger) *PortfolioRepository {
	return &PortfolioRepository{db: db, logger: logger}
}

// Create persists a new portfolio.
func (r *PortfolioRepository) Create(ctx context.Context, p *entities.Portfolio) error {
	query := `
		INSERT INTO portfolios (id, owner_id, name, base_currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query, p.ID, p.OwnerID, p.Name, p.BaseCurrency, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		r.logger.Error("failed to create portfolio",
			zap.Error(err),
			zap.String("portfolio_id", p.ID.String()),
		)
		return fmt.Errorf("failed to create portfolio: %w", err)
	}

	return nil
}

// GetByID returns one portfolio, or (nil, nil) when it does not exist.
func (r *PortfolioRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Portfolio, error) {
	query := `
		SELECT id, owner_id, name, base_currency, created_at, updated_at
		FROM portfolios
		WHERE id = $1
	`

	var p entities.Portfolio
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get portfolio: %w", err)
	}

	return &p, nil
}

// ListByOwner returns the owner's portfolios, newest first.
func (r *PortfolioRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]entities.Portfolio, error) {
	query := `
		SELECT id, owner_id, name, base_currency, created_at, updated_at
		FROM portfolios
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`

	var portfolios []entities.Portfolio
	if err := r.db.SelectContext(ctx, &portfolios, query, ownerID); err != nil {
		return nil, fmt.Errorf("failed to list portfolios: %w", err)
	}

	return portfolios, nil
}

// ListAll returns every portfolio, for the nightly snapshot job.
func (r *PortfolioRepository) ListAll(ctx context.Context) ([]entities.Portfolio, error) {
	query := `
		SELECT id, owner_id, name, base_currency, created_at, updated_at
		FROM portfolios
		ORDER BY created_at
	`

	var portfolios []entities.Portfolio
	if err := r.db.SelectContext(ctx, &portfolios, query); err != nil {
		return nil, fmt.Errorf("failed to list all portfolios: %w", err)
	}

	return portfolios, nil
}

// Delete removes a portfolio; the ledger, positions and snapshots cascade.
func (r *PortfolioRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM portfolios WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete portfolio: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
