package portfolio

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/folio-service/folio_service/internal/domain/entities"
	"github.com/folio-service/folio_service/pkg/errors"
	"github.com/folio-service/folio_service/pkg/logger"
)

// Repository interface for portfolio persistence
type Repository interface {
	Create(ctx context.Context, p *entities.Portfolio) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Portfolio, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]entities.Portfolio, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Service owns portfolio lifecycle and ownership checks.
type Service struct {
	repo   Repository
	logger *logger.Logger
}

// NewService creates a new portfolio service
func NewService(repo Repository, logger *logger.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Create creates a portfolio owned by the caller.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, req entities.CreatePortfolioRequest) (*entities.Portfolio, error) {
	currency := req.BaseCurrency
	if currency == "" {
		currency = "USD"
	}

	now := time.Now().UTC()
	p := &entities.Portfolio{
		ID:           uuid.New(),
		OwnerID:      ownerID,
		Name:         req.Name,
		BaseCurrency: currency,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create portfolio: %w", err)
	}

	s.logger.WithContext(ctx).Infow("portfolio created",
		"portfolio_id", p.ID.String(),
		"owner_id", ownerID.String(),
	)
	return p, nil
}

// GetOwned loads a portfolio and verifies the caller owns it. A portfolio
// owned by someone else reads as not found, so existence is not leaked.
func (s *Service) GetOwned(ctx context.Context, id, ownerID uuid.UUID) (*entities.Portfolio, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load portfolio: %w", err)
	}
	if p == nil || p.OwnerID != ownerID {
		return nil, errors.NotFound("portfolio")
	}
	return p, nil
}

// ListByOwner returns the caller's portfolios.
func (s *Service) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]entities.Portfolio, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

// Delete removes a portfolio the caller owns, with its ledger, positions
// and snapshots removed by cascading constraints.
func (s *Service) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	if _, err := s.GetOwned(ctx, id, ownerID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete portfolio: %w", err)
	}
	s.logger.WithContext(ctx).Infow("portfolio deleted", "portfolio_id", id.String())
	return nil
}
