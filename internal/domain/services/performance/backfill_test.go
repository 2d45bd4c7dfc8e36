package performance

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/folio-service/folio_service/internal/domain/entities"
	"github.com/folio-service/folio_service/pkg/errors"
	"github.com/folio-service/folio_service/pkg/logger"
)

type MockTransactionStore struct {
	mock.Mock
}

func (m *MockTransactionStore) ListByPortfolioBefore(ctx context.Context, portfolioID uuid.UUID, before time.Time) ([]entities.Transaction, error) {
	args := m.Called(ctx, portfolioID, before)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.Transaction), args.Error(1)
}

func (m *MockTransactionStore) DistinctTickers(ctx context.Context, portfolioID uuid.UUID) ([]string, error) {
	args := m.Called(ctx, portfolioID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockSnapshotStore struct {
	mock.Mock
}

func (m *MockSnapshotStore) GetLatestBefore(ctx context.Context, portfolioID uuid.UUID, day time.Time) (*entities.DailyPerformance, error) {
	args := m.Called(ctx, portfolioID, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.DailyPerformance), args.Error(1)
}

func (m *MockSnapshotStore) Upsert(ctx context.Context, perf *entities.DailyPerformance) error {
	args := m.Called(ctx, perf)
	return args.Error(0)
}

func (m *MockSnapshotStore) DeleteUpTo(ctx context.Context, portfolioID uuid.UUID, day time.Time) (int64, error) {
	args := m.Called(ctx, portfolioID, day)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSnapshotStore) ListRange(ctx context.Context, portfolioID uuid.UUID, from, to time.Time) ([]entities.DailyPerformance, error) {
	args := m.Called(ctx, portfolioID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.DailyPerformance), args.Error(1)
}

type MockPriceStore struct {
	mock.Mock
}

func (m *MockPriceStore) GetClosePrice(ctx context.Context, ticker string, day time.Time) (decimal.Decimal, bool, error) {
	args := m.Called(ctx, ticker, day)
	return args.Get(0).(decimal.Decimal), args.Bool(1), args.Error(2)
}

func (m *MockPriceStore) GetClosePrices(ctx context.Context, tickers []string, from, to time.Time) (map[string]map[string]decimal.Decimal, error) {
	args := m.Called(ctx, tickers, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]map[string]decimal.Decimal), args.Error(1)
}

type MockSeriesCache struct {
	mock.Mock
}

func (m *MockSeriesCache) GetSeries(ctx context.Context, portfolioID uuid.UUID, from, to time.Time) ([]entities.DailyPerformance, bool) {
	args := m.Called(ctx, portfolioID, from, to)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).([]entities.DailyPerformance), args.Bool(1)
}

func (m *MockSeriesCache) SetSeries(ctx context.Context, portfolioID uuid.UUID, from, to time.Time, series []entities.DailyPerformance) {
	m.Called(ctx, portfolioID, from, to, series)
}

func (m *MockSeriesCache) Invalidate(ctx context.Context, portfolioID uuid.UUID) {
	m.Called(ctx, portfolioID)
}

// passthroughBinder hands the mocks straight to the transactional scope; an
// error returned by the scope stands in for a rolled-back transaction.
type passthroughBinder struct {
	txns   TransactionStore
	snaps  SnapshotStore
	prices PriceStore
	fnErr  error
}

func (b *passthroughBinder) InTx(_ context.Context, fn func(TransactionStore, SnapshotStore, PriceStore) error) error {
	b.fnErr = fn(b.txns, b.snaps, b.prices)
	return b.fnErr
}

type backfillFixture struct {
	svc    *Service
	txns   *MockTransactionStore
	snaps  *MockSnapshotStore
	prices *MockPriceStore
	cache  *MockSeriesCache
	binder *passthroughBinder
}

func newBackfillFixture(today time.Time) *backfillFixture {
	f := &backfillFixture{
		txns:   new(MockTransactionStore),
		snaps:  new(MockSnapshotStore),
		prices: new(MockPriceStore),
		cache:  new(MockSeriesCache),
	}
	f.binder = &passthroughBinder{txns: f.txns, snaps: f.snaps, prices: f.prices}
	f.svc = NewService(f.txns, f.snaps, f.prices, f.binder, f.cache, logger.New("error", "test"))
	f.svc.now = func() time.Time { return today }
	return f
}

func TestRecalculateFromDate_SkipsDaysWithoutPrices(t *testing.T) {
	portfolioID := uuid.New()
	f := newBackfillFixture(day(3))

	ledger := []entities.Transaction{
		txn(entities.TransactionTypeDeposit, "CASH", 10000, 1, day(1)),
		txn(entities.TransactionTypeBuy, "AAPL", 10, 500, day(2)),
		txn(entities.TransactionTypeSell, "CASH", 5000, 1, day(2)),
	}
	// AAPL closed at 510 on day 2 and has no close for day 3.
	priced := map[string]map[string]decimal.Decimal{
		"AAPL": {day(2).Format(DayKey): decimal.NewFromInt(510)},
	}

	f.snaps.On("DeleteUpTo", mock.Anything, portfolioID, day(3)).Return(int64(0), nil)
	f.txns.On("DistinctTickers", mock.Anything, portfolioID).Return([]string{"AAPL"}, nil)
	f.prices.On("GetClosePrices", mock.Anything, []string{"AAPL"}, day(1), day(3)).Return(priced, nil)
	f.txns.On("ListByPortfolioBefore", mock.Anything, portfolioID, day(4)).Return(ledger, nil)

	var written []entities.DailyPerformance
	f.snaps.On("Upsert", mock.Anything, mock.AnythingOfType("*entities.DailyPerformance")).
		Run(func(args mock.Arguments) {
			written = append(written, *args.Get(1).(*entities.DailyPerformance))
		}).Return(nil)
	f.cache.On("Invalidate", mock.Anything, portfolioID).Return()

	err := f.svc.RecalculateFromDate(context.Background(), portfolioID, day(1))

	require.NoError(t, err)
	require.Len(t, written, 2, "day 3 has a held ticker without a close and must be skipped")
	assert.True(t, written[0].Date.Equal(day(1)))
	assert.True(t, written[0].TotalEquity.Equal(decimal.NewFromInt(10000)))
	assert.True(t, written[1].Date.Equal(day(2)))
	assert.True(t, written[1].TotalEquity.Equal(decimal.NewFromInt(10100)))

	f.prices.AssertNumberOfCalls(t, "GetClosePrices", 1)
	f.prices.AssertNotCalled(t, "GetClosePrice", mock.Anything, mock.Anything, mock.Anything)
	f.cache.AssertCalled(t, "Invalidate", mock.Anything, portfolioID)
}

func TestRecalculateFromDate_WriteFailureAbortsTheRun(t *testing.T) {
	portfolioID := uuid.New()
	f := newBackfillFixture(day(2))

	ledger := []entities.Transaction{
		txn(entities.TransactionTypeDeposit, "CASH", 10000, 1, day(1)),
	}

	f.snaps.On("DeleteUpTo", mock.Anything, portfolioID, day(2)).Return(int64(2), nil)
	f.txns.On("DistinctTickers", mock.Anything, portfolioID).Return([]string{}, nil)
	f.txns.On("ListByPortfolioBefore", mock.Anything, portfolioID, day(3)).Return(ledger, nil)
	f.snaps.On("Upsert", mock.Anything, mock.Anything).Return(nil).Once()
	f.snaps.On("Upsert", mock.Anything, mock.Anything).Return(fmt.Errorf("connection reset")).Once()

	err := f.svc.RecalculateFromDate(context.Background(), portfolioID, day(1))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write snapshot")
	// The failure surfaced out of the transactional scope, which is what
	// rolls every write of this run back.
	assert.Error(t, f.binder.fnErr)
	f.cache.AssertNotCalled(t, "Invalidate", mock.Anything, mock.Anything)
	f.prices.AssertNotCalled(t, "GetClosePrices", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRecalculateFromDate_PrefetchFailureAbortsTheRun(t *testing.T) {
	portfolioID := uuid.New()
	f := newBackfillFixture(day(2))

	f.snaps.On("DeleteUpTo", mock.Anything, portfolioID, day(2)).Return(int64(0), nil)
	f.txns.On("DistinctTickers", mock.Anything, portfolioID).Return([]string{"AAPL"}, nil)
	f.prices.On("GetClosePrices", mock.Anything, []string{"AAPL"}, day(1), day(2)).
		Return(nil, fmt.Errorf("connection refused"))

	err := f.svc.RecalculateFromDate(context.Background(), portfolioID, day(1))

	require.Error(t, err)
	f.snaps.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	f.cache.AssertNotCalled(t, "Invalidate", mock.Anything, mock.Anything)
}

func TestCalculateDailySnapshot_MissingPriceIsFatal(t *testing.T) {
	portfolioID := uuid.New()
	f := newBackfillFixture(day(3))

	ledger := []entities.Transaction{
		txn(entities.TransactionTypeDeposit, "CASH", 10000, 1, day(1)),
		txn(entities.TransactionTypeBuy, "AAPL", 10, 500, day(2)),
		txn(entities.TransactionTypeSell, "CASH", 5000, 1, day(2)),
	}

	f.snaps.On("GetLatestBefore", mock.Anything, portfolioID, day(3)).Return(nil, nil)
	f.txns.On("ListByPortfolioBefore", mock.Anything, portfolioID, day(4)).Return(ledger, nil)
	f.prices.On("GetClosePrice", mock.Anything, "AAPL", day(3)).Return(decimal.Zero, false, nil)

	_, err := f.svc.CalculateDailySnapshot(context.Background(), portfolioID, day(3))

	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeMissingMarketData),
		"the single-day path must fail on a gap, not skip it")
	f.snaps.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}
