package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/folio-service/folio_service/internal/domain/entities"
	"github.com/folio-service/folio_service/internal/infrastructure/database"
)

// TransactionRepository handles ledger persistence. The transactions table is
// append/delete only; there is no update path.
type TransactionRepository struct {
	db     *sqlx.DB
	q      sqlx.ExtContext
	logger *zap.Logger
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *sqlx.DB, logger *zap.Logger) *TransactionRepository {
	return &TransactionRepository{db: db, q: db, logger: logger}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *TransactionRepository) WithTx(tx *sqlx.Tx) *TransactionRepository {
	c := *r
	c.q = tx
	return &c
}

// Create appends one ledger entry.
func (r *TransactionRepository) Create(ctx context.Context, txn *entities.Transaction) error {
	query := `
		INSERT INTO transactions (id, portfolio_id, type, ticker, quantity, price, transaction_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.q.ExecContext(ctx, query,
		txn.ID,
		txn.PortfolioID,
		txn.Type,
		txn.Ticker,
		txn.Quantity,
		txn.Price,
		txn.TransactionDate,
		txn.CreatedAt,
	)
	if err != nil {
		r.logger.Error("failed to create transaction",
			zap.Error(err),
			zap.String("transaction_id", txn.ID.String()),
			zap.String("ticker", txn.Ticker),
		)
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// GetByID fetches one ledger entry scoped to a portfolio. Returns (nil, nil)
// when no row exists.
func (r *TransactionRepository) GetByID(ctx context.Context, id, portfolioID uuid.UUID) (*entities.Transaction, error) {
	query := `
		SELECT id, portfolio_id, type, ticker, quantity, price, transaction_date, created_at
		FROM transactions
		WHERE id = $1 AND portfolio_id = $2
	`

	var txn entities.Transaction
	if err := sqlx.GetContext(ctx, r.q, &txn, query, id, portfolioID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return &txn, nil
}

// Delete removes one ledger entry by id.
func (r *TransactionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListByPortfolioBefore returns every ledger entry for the portfolio dated
// strictly before the given instant, in replay order: ascending
// (transaction_date, created_at, id). The secondary keys make same-day replay
// deterministic.
func (r *TransactionRepository) ListByPortfolioBefore(ctx context.Context, portfolioID uuid.UUID, before time.Time) ([]entities.Transaction, error) {
	query := `
		SELECT id, portfolio_id, type, ticker, quantity, price, transaction_date, created_at
		FROM transactions
		WHERE portfolio_id = $1 AND transaction_date < $2
		ORDER BY transaction_date ASC, created_at ASC, id ASC
	`

	var txns []entities.Transaction
	if err := sqlx.SelectContext(ctx, r.q, &txns, query, portfolioID, before); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	return txns, nil
}

// FindMirror locates the offsetting CASH leg of a trade by field equality:
// same portfolio and date, mirrored type, quantity equal to the trade's gross
// amount, price 1. Returns (nil, nil) when no candidate exists.
func (r *TransactionRepository) FindMirror(ctx context.Context, portfolioID uuid.UUID, mirrorType entities.TransactionType, date time.Time, quantity decimal.Decimal) (*entities.Transaction, error) {
	query := `
		SELECT id, portfolio_id, type, ticker, quantity, price, transaction_date, created_at
		FROM transactions
		WHERE portfolio_id = $1 AND type = $2 AND ticker = $3
		  AND transaction_date = $4 AND quantity = $5 AND price = 1
		ORDER BY created_at ASC
		LIMIT 1
	`

	var txn entities.Transaction
	err := sqlx.GetContext(ctx, r.q, &txn, query, portfolioID, mirrorType, entities.CashTicker, date, quantity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find mirror transaction: %w", err)
	}

	return &txn, nil
}

// DistinctTickers returns every non-CASH ticker the portfolio has ever
// transacted, for the backfill's batched price prefetch.
func (r *TransactionRepository) DistinctTickers(ctx context.Context, portfolioID uuid.UUID) ([]string, error) {
	query := `
		SELECT DISTINCT ticker
		FROM transactions
		WHERE portfolio_id = $1 AND ticker <> $2
		ORDER BY ticker
	`

	var tickers []string
	if err := sqlx.SelectContext(ctx, r.q, &tickers, query, portfolioID, entities.CashTicker); err != nil {
		return nil, fmt.Errorf("failed to list distinct tickers: %w", err)
	}

	return tickers, nil
}

// CreatePair appends a trade and its offsetting CASH leg atomically. The
// mirror may be nil for single-leg entries (deposits, withdrawals and direct
// CASH trades); the insert still runs inside a transaction.
func (r *TransactionRepository) CreatePair(ctx context.Context, primary, mirror *entities.Transaction) error {
	return database.WithinTx(ctx, r.db, func(tx *sqlx.Tx) error {
		bound := r.WithTx(tx)
		if err := bound.Create(ctx, primary); err != nil {
			return err
		}
		if mirror != nil {
			if err := bound.Create(ctx, mirror); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteMany removes the given ledger entries atomically.
func (r *TransactionRepository) DeleteMany(ctx context.Context, ids []uuid.UUID) error {
	return database.WithinTx(ctx, r.db, func(tx *sqlx.Tx) error {
		bound := r.WithTx(tx)
		for _, id := range ids {
			if err := bound.Delete(ctx, id); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListByPortfolioAndTicker returns the portfolio's full ledger for one ticker
// in replay order, with no date bound.
func (r *TransactionRepository) ListByPortfolioAndTicker(ctx context.Context, portfolioID uuid.UUID, ticker string) ([]entities.Transaction, error) {
	query := `
		SELECT id, portfolio_id, type, ticker, quantity, price, transaction_date, created_at
		FROM transactions
		WHERE portfolio_id = $1 AND ticker = $2
		ORDER BY transaction_date ASC, created_at ASC, id ASC
	`

	var txns []entities.Transaction
	if err := sqlx.SelectContext(ctx, r.q, &txns, query, portfolioID, ticker); err != nil {
		return nil, fmt.Errorf("failed to list transactions for ticker %s: %w", ticker, err)
	}

	return txns, nil
}
