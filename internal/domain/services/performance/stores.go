package performance

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/folio-service/folio_service/internal/infrastructure/database"
	"github.com/folio-service/folio_service/internal/infrastructure/repositories"
)

// sqlBinder rebinds the production repositories to one shared transaction
// through their WithTx variants.
type sqlBinder struct {
	db     *sqlx.DB
	txns   *repositories.TransactionRepository
	snaps  *repositories.PerformanceRepository
	prices *repositories.MarketDataRepository
}

// NewTxBinder wires the Postgres repositories into a TxBinder.
func NewTxBinder(db *sqlx.DB, txns *repositories.TransactionRepository, snaps *repositories.PerformanceRepository, prices *repositories.MarketDataRepository) TxBinder {
	return &sqlBinder{db: db, txns: txns, snaps: snaps, prices: prices}
}

func (b *sqlBinder) InTx(ctx context.Context, fn func(TransactionStore, SnapshotStore, PriceStore) error) error {
	return database.WithinTx(ctx, b.db, func(tx *sqlx.Tx) error {
		return fn(b.txns.WithTx(tx), b.snaps.WithTx(tx), b.prices.WithTx(tx))
	})
}
