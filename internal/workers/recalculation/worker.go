package recalculation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/folio-service/folio_service/internal/domain/entities"
	"github.com/folio-service/folio_service/pkg/metrics"
)

// Recalculator rebuilds a portfolio's snapshot history from a start date.
type Recalculator interface {
	RecalculateFromDate(ctx context.Context, portfolioID uuid.UUID, startDate time.Time) error
}

// Worker consumes transaction-mutation events and runs backfills. Events
// for the same portfolio coalesce to the earliest requested start date, so
// a burst of edits produces one backfill instead of one per edit. A single
// consumer goroutine keeps per-portfolio backfills strictly sequential.
type Worker struct {
	recalc Recalculator
	logger *zap.Logger

	mu      sync.Mutex
	pending map[uuid.UUID]time.Time
	notify  chan struct{}

	cancel context.CancelFunc
	done   chan struct{}
}

// NewWorker creates a new recalculation worker
func NewWorker(recalc Recalculator, logger *zap.Logger) *Worker {
	return &Worker{
		recalc:  recalc,
		logger:  logger,
		pending: make(map[uuid.UUID]time.Time),
		notify:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// PublishTransactionMutation enqueues a recomputation request. Every ledger
// mutation lands here unconditionally; coalescing keeps the earliest date
// per portfolio so no snapshot gap can survive a burst of edits.
func (w *Worker) PublishTransactionMutation(event entities.TransactionMutationEvent) {
	w.mu.Lock()
	existing, ok := w.pending[event.PortfolioID]
	if !ok || event.TransactionDate.Before(existing) {
		w.pending[event.PortfolioID] = event.TransactionDate
	}
	metrics.RecalculationQueueDepth.Set(float64(len(w.pending)))
	w.mu.Unlock()

	select {
	case w.notify <- struct{}{}:
	default:
	}
}

// Start launches the consumer goroutine.
func (w *Worker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	go w.run(ctx)
	w.logger.Info("recalculation worker started")
}

// Stop signals the consumer and waits for the in-flight backfill to finish.
// A worker that was never started has no consumer to wait for.
func (w *Worker) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.done
	w.logger.Info("recalculation worker stopped")
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.notify:
			w.drain(ctx)
		}
	}
}

// drain processes pending requests until the queue is empty. Failures are
// logged and dropped; the next mutation on that portfolio re-enqueues it.
func (w *Worker) drain(ctx context.Context) {
	for {
		portfolioID, startDate, ok := w.pop()
		if !ok {
			return
		}
		if ctx.Err() != nil {
			return
		}

		if err := w.recalc.RecalculateFromDate(ctx, portfolioID, startDate); err != nil {
			w.logger.Error("backfill failed",
				zap.String("portfolio_id", portfolioID.String()),
				zap.Time("start_date", startDate),
				zap.Error(err),
			)
		}
	}
}

func (w *Worker) pop() (uuid.UUID, time.Time, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for portfolioID, startDate := range w.pending {
		delete(w.pending, portfolioID)
		metrics.RecalculationQueueDepth.Set(float64(len(w.pending)))
		return portfolioID, startDate, true
	}
	return uuid.Nil, time.Time{}, false
}
