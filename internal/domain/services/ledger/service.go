package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/folio-service/folio_service/internal/domain/entities"
	"github.com/folio-service/folio_service/pkg/errors"
	"github.com/folio-service/folio_service/pkg/logger"
	"github.com/folio-service/folio_service/pkg/metrics"
)

// Service is the ledger's only write path. It enforces the double-entry
// invariant: every BUY or SELL of a non-CASH ticker carries an offsetting
// CASH leg dated identically, created and deleted together with the trade.
type Service struct {
	txRepo    TransactionRepository
	positions PositionSyncer
	events    EventPublisher
	logger    *logger.Logger
}

// TransactionRepository interface for ledger persistence
type TransactionRepository interface {
	CreatePair(ctx context.Context, primary, mirror *entities.Transaction) error
	GetByID(ctx context.Context, id, portfolioID uuid.UUID) (*entities.Transaction, error)
	DeleteMany(ctx context.Context, ids []uuid.UUID) error
	ListByPortfolioAndTicker(ctx context.Context, portfolioID uuid.UUID, ticker string) ([]entities.Transaction, error)
	ListByPortfolioBefore(ctx context.Context, portfolioID uuid.UUID, before time.Time) ([]entities.Transaction, error)
	FindMirror(ctx context.Context, portfolioID uuid.UUID, mirrorType entities.TransactionType, date time.Time, quantity decimal.Decimal) (*entities.Transaction, error)
}

// PositionSyncer rebuilds the materialized position cache after a mutation
type PositionSyncer interface {
	Recalculate(ctx context.Context, portfolioID uuid.UUID) error
}

// EventPublisher emits the downstream recalculation request
type EventPublisher interface {
	PublishTransactionMutation(event entities.TransactionMutationEvent)
}

// NewService creates a new ledger service
func NewService(txRepo TransactionRepository, positions PositionSyncer, events EventPublisher, logger *logger.Logger) *Service {
	return &Service{
		txRepo:    txRepo,
		positions: positions,
		events:    events,
		logger:    logger,
	}
}

// CreateTransactionInput describes a requested ledger entry.
type CreateTransactionInput struct {
	Type            entities.TransactionType
	Ticker          string
	Quantity        decimal.Decimal
	Price           decimal.Decimal
	TransactionDate time.Time
}

// CreateTransaction validates the request, enforces cash and share
// sufficiency, writes the entry with its mirrored CASH leg where one is
// required, resyncs positions and emits the recalculation event.
func (s *Service) CreateTransaction(ctx context.Context, portfolioID uuid.UUID, input CreateTransactionInput) (*entities.Transaction, error) {
	input.Ticker = entities.NormalizeTicker(input.Ticker)

	if err := s.validate(input); err != nil {
		return nil, err
	}

	txn := &entities.Transaction{
		ID:              uuid.New(),
		PortfolioID:     portfolioID,
		Type:            input.Type,
		Ticker:          input.Ticker,
		Quantity:        input.Quantity,
		Price:           input.Price,
		TransactionDate: input.TransactionDate.UTC(),
		CreatedAt:       time.Now().UTC(),
	}
	if txn.IsCash() {
		// CASH is the unit of account; its price is 1 by definition.
		txn.Price = decimal.NewFromInt(1)
	}

	mirror, err := s.checkAndMirror(ctx, txn)
	if err != nil {
		return nil, err
	}

	if err := s.txRepo.CreatePair(ctx, txn, mirror); err != nil {
		return nil, fmt.Errorf("failed to persist ledger entries: %w", err)
	}

	metrics.TransactionsRecorded.WithLabelValues(string(txn.Type), "create").Inc()
	s.logger.WithContext(ctx).Infow("transaction created",
		"portfolio_id", portfolioID.String(),
		"transaction_id", txn.ID.String(),
		"type", txn.Type,
		"ticker", txn.Ticker,
		"mirrored", mirror != nil,
	)

	if err := s.positions.Recalculate(ctx, portfolioID); err != nil {
		return nil, fmt.Errorf("failed to resync positions: %w", err)
	}

	s.events.PublishTransactionMutation(entities.TransactionMutationEvent{
		PortfolioID:     portfolioID,
		TransactionDate: txn.TransactionDate,
	})

	return txn, nil
}

// DeleteTransaction removes a ledger entry and, for non-CASH trades, its
// offsetting CASH leg, matched by field equality rather than a stored link.
// Positions are resynced and a recalculation event is emitted from the
// deleted entry's date.
func (s *Service) DeleteTransaction(ctx context.Context, id, portfolioID uuid.UUID) error {
	txn, err := s.txRepo.GetByID(ctx, id, portfolioID)
	if err != nil {
		return fmt.Errorf("failed to load transaction: %w", err)
	}
	if txn == nil {
		return errors.NotFound("transaction")
	}

	ids := []uuid.UUID{txn.ID}

	if !txn.IsCash() {
		mirror, err := s.txRepo.FindMirror(ctx, portfolioID, mirrorTypeFor(txn.Type), txn.TransactionDate, txn.GrossAmount())
		if err != nil {
			return fmt.Errorf("failed to locate mirror leg: %w", err)
		}
		if mirror != nil {
			ids = append(ids, mirror.ID)
		} else {
			// Best-effort match: a missing mirror is logged, not fatal.
			s.logger.WithContext(ctx).Warnw("no mirror CASH leg found for trade",
				"transaction_id", txn.ID.String(),
				"ticker", txn.Ticker,
			)
		}
	}

	if err := s.txRepo.DeleteMany(ctx, ids); err != nil {
		return fmt.Errorf("failed to delete ledger entries: %w", err)
	}

	metrics.TransactionsRecorded.WithLabelValues(string(txn.Type), "delete").Inc()
	s.logger.WithContext(ctx).Infow("transaction deleted",
		"portfolio_id", portfolioID.String(),
		"transaction_id", txn.ID.String(),
		"legs_removed", len(ids),
	)

	if err := s.positions.Recalculate(ctx, portfolioID); err != nil {
		return fmt.Errorf("failed to resync positions: %w", err)
	}

	s.events.PublishTransactionMutation(entities.TransactionMutationEvent{
		PortfolioID:     portfolioID,
		TransactionDate: txn.TransactionDate,
	})

	return nil
}

func (s *Service) validate(input CreateTransactionInput) error {
	if !input.Type.Valid() {
		return errors.ValidationError(fmt.Sprintf("unknown transaction type %q", input.Type))
	}
	if input.Ticker == "" {
		return errors.ValidationError("ticker is required")
	}
	if input.Quantity.Sign() <= 0 {
		return errors.ValidationError("quantity must be positive")
	}
	if input.Price.Sign() < 0 {
		return errors.ValidationError("price must not be negative")
	}
	if input.TransactionDate.IsZero() {
		return errors.ValidationError("transaction date is required")
	}

	switch input.Type {
	case entities.TransactionTypeDeposit, entities.TransactionTypeWithdrawal:
		if input.Ticker != entities.CashTicker {
			return errors.ValidationError("deposits and withdrawals must use the CASH ticker")
		}
	}

	return nil
}

// checkAndMirror enforces sufficiency rules and returns the offsetting CASH
// leg for trades that need one. Sufficiency is computed by replaying the
// relevant slice of the ledger, never by reading the position cache.
func (s *Service) checkAndMirror(ctx context.Context, txn *entities.Transaction) (*entities.Transaction, error) {
	switch {
	case txn.Type == entities.TransactionTypeWithdrawal:
		cash, err := s.tickerBalance(ctx, txn.PortfolioID, entities.CashTicker)
		if err != nil {
			return nil, err
		}
		if cash.LessThan(txn.Quantity) {
			return nil, errors.InsufficientFunds(fmt.Sprintf(
				"withdrawal of %s exceeds cash balance %s", txn.Quantity, cash))
		}
		return nil, nil

	case txn.Type == entities.TransactionTypeDeposit:
		return nil, nil

	case txn.IsCash():
		// Direct CASH trades (initial funding) have no offsetting leg.
		return nil, nil

	case txn.Type == entities.TransactionTypeBuy:
		cost := txn.GrossAmount()
		cash, err := s.tickerBalance(ctx, txn.PortfolioID, entities.CashTicker)
		if err != nil {
			return nil, err
		}
		if cash.LessThan(cost) {
			return nil, errors.InsufficientFunds(fmt.Sprintf(
				"buy of %s %s costs %s, cash balance is %s", txn.Quantity, txn.Ticker, cost, cash))
		}
		return s.mirrorFor(txn), nil

	default: // SELL of a non-CASH ticker
		held, err := s.tickerBalance(ctx, txn.PortfolioID, txn.Ticker)
		if err != nil {
			return nil, err
		}
		if held.LessThan(txn.Quantity) {
			return nil, errors.InsufficientShares(fmt.Sprintf(
				"sell of %s %s exceeds held quantity %s", txn.Quantity, txn.Ticker, held))
		}
		return s.mirrorFor(txn), nil
	}
}

func (s *Service) tickerBalance(ctx context.Context, portfolioID uuid.UUID, ticker string) (decimal.Decimal, error) {
	txns, err := s.txRepo.ListByPortfolioAndTicker(ctx, portfolioID, ticker)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to replay %s balance: %w", ticker, err)
	}
	return ReplayPositions(txns)[ticker], nil
}

func (s *Service) mirrorFor(txn *entities.Transaction) *entities.Transaction {
	return &entities.Transaction{
		ID:              uuid.New(),
		PortfolioID:     txn.PortfolioID,
		Type:            mirrorTypeFor(txn.Type),
		Ticker:          entities.CashTicker,
		Quantity:        txn.GrossAmount(),
		Price:           decimal.NewFromInt(1),
		TransactionDate: txn.TransactionDate,
		CreatedAt:       txn.CreatedAt,
	}
}

func mirrorTypeFor(t entities.TransactionType) entities.TransactionType {
	if t == entities.TransactionTypeBuy {
		return entities.TransactionTypeSell
	}
	return entities.TransactionTypeBuy
}

// ListTransactions returns the portfolio's full ledger in replay order.
func (s *Service) ListTransactions(ctx context.Context, portfolioID uuid.UUID) ([]entities.Transaction, error) {
	txns, err := s.txRepo.ListByPortfolioBefore(ctx, portfolioID, ledgerHorizon)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txns, nil
}

// ledgerHorizon bounds "everything" for the date-bounded list query.
var ledgerHorizon = time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)
