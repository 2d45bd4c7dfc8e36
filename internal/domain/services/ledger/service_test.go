package ledger

import (
	"context"
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

// MockTransactionRepository is a mock implementation of TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) CreatePair(ctx context.Context, primary, mirror *entities.Transaction) error {
	args := m.Called(ctx, primary, mirror)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id, portfolioID uuid.UUID) (*entities.Transaction, error) {
	args := m.Called(ctx, id, portfolioID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) DeleteMany(ctx context.Context, ids []uuid.UUID) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

func (m *MockTransactionRepository) ListByPortfolioAndTicker(ctx context.Context, portfolioID uuid.UUID, ticker string) ([]entities.Transaction, error) {
	args := m.Called(ctx, portfolioID, ticker)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) ListByPortfolioBefore(ctx context.Context, portfolioID uuid.UUID, before time.Time) ([]entities.Transaction, error) {
	args := m.Called(ctx, portfolioID, before)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) FindMirror(ctx context.Context, portfolioID uuid.UUID, mirrorType entities.TransactionType, date time.Time, quantity decimal.Decimal) (*entities.Transaction, error) {
	args := m.Called(ctx, portfolioID, mirrorType, date, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Transaction), args.Error(1)
}

// MockPositionSyncer is a mock implementation of PositionSyncer
type MockPositionSyncer struct {
	mock.Mock
}

func (m *MockPositionSyncer) Recalculate(ctx context.Context, portfolioID uuid.UUID) error {
	args := m.Called(ctx, portfolioID)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishTransactionMutation(event entities.TransactionMutationEvent) {
	m.Called(event)
}

func newTestService(t *testing.T) (*Service, *MockTransactionRepository, *MockPositionSyncer, *MockEventPublisher) {
	t.Helper()
	txRepo := new(MockTransactionRepository)
	syncer := new(MockPositionSyncer)
	events := new(MockEventPublisher)
	svc := NewService(txRepo, syncer, events, logger.New("error", "test"))
	return svc, txRepo, syncer, events
}

func TestCreateTransaction_Deposit(t *testing.T) {
	svc, txRepo, syncer, events := newTestService(t)
	portfolioID := uuid.New()

	txRepo.On("CreatePair", mock.Anything, mock.Anything, (*entities.Transaction)(nil)).Return(nil)
	syncer.On("Recalculate", mock.Anything, portfolioID).Return(nil)
	events.On("PublishTransactionMutation", mock.Anything).Return()

	created, err := svc.CreateTransaction(context.Background(), portfolioID, CreateTransactionInput{
		Type:            entities.TransactionTypeDeposit,
		Ticker:          "cash",
		Quantity:        decimal.NewFromInt(10000),
		Price:           decimal.NewFromInt(1),
		TransactionDate: day(1),
	})

	require.NoError(t, err)
	assert.Equal(t, "CASH", created.Ticker)
	assert.True(t, created.Price.Equal(decimal.NewFromInt(1)))
	txRepo.AssertExpectations(t)
	syncer.AssertExpectations(t)
	events.AssertCalled(t, "PublishTransactionMutation", entities.TransactionMutationEvent{
		PortfolioID:     portfolioID,
		TransactionDate: day(1),
	})
}

func TestCreateTransaction_BuyCreatesMirrorCashLeg(t *testing.T) {
	svc, txRepo, syncer, events := newTestService(t)
	portfolioID := uuid.New()

	cashLedger := []entities.Transaction{
		txn(entities.TransactionTypeDeposit, "CASH", 10000, 1, day(1)),
	}
	txRepo.On("ListByPortfolioAndTicker", mock.Anything, portfolioID, "CASH").Return(cashLedger, nil)

	var mirror *entities.Transaction
	txRepo.On("CreatePair", mock.Anything, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		mirror = args.Get(2).(*entities.Transaction)
	}).Return(nil)
	syncer.On("Recalculate", mock.Anything, portfolioID).Return(nil)
	events.On("PublishTransactionMutation", mock.Anything).Return()

	created, err := svc.CreateTransaction(context.Background(), portfolioID, CreateTransactionInput{
		Type:            entities.TransactionTypeBuy,
		Ticker:          "AAPL",
		Quantity:        decimal.NewFromInt(10),
		Price:           decimal.NewFromInt(150),
		TransactionDate: day(2),
	})

	require.NoError(t, err)
	require.NotNil(t, mirror)
	assert.Equal(t, entities.TransactionTypeSell, mirror.Type)
	assert.Equal(t, "CASH", mirror.Ticker)
	assert.True(t, mirror.Quantity.Equal(decimal.NewFromInt(1500)))
	assert.True(t, mirror.Price.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, created.TransactionDate, mirror.TransactionDate)
}

func TestCreateTransaction_BuyInsufficientFunds(t *testing.T) {
	svc, txRepo, _, _ := newTestService(t)
	portfolioID := uuid.New()

	cashLedger := []entities.Transaction{
		txn(entities.TransactionTypeDeposit, "CASH", 100, 1, day(1)),
	}
	txRepo.On("ListByPortfolioAndTicker", mock.Anything, portfolioID, "CASH").Return(cashLedger, nil)

	_, err := svc.CreateTransaction(context.Background(), portfolioID, CreateTransactionInput{
		Type:            entities.TransactionTypeBuy,
		Ticker:          "AAPL",
		Quantity:        decimal.NewFromInt(10),
		Price:           decimal.NewFromInt(150),
		TransactionDate: day(2),
	})

	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInsufficientFunds))
	txRepo.AssertNotCalled(t, "CreatePair", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateTransaction_SellCreatesBuyCashLeg(t *testing.T) {
	svc, txRepo, syncer, events := newTestService(t)
	portfolioID := uuid.New()

	held := []entities.Transaction{
		txn(entities.TransactionTypeBuy, "AAPL", 10, 150, day(1)),
	}
	txRepo.On("ListByPortfolioAndTicker", mock.Anything, portfolioID, "AAPL").Return(held, nil)

	var mirror *entities.Transaction
	txRepo.On("CreatePair", mock.Anything, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		mirror = args.Get(2).(*entities.Transaction)
	}).Return(nil)
	syncer.On("Recalculate", mock.Anything, portfolioID).Return(nil)
	events.On("PublishTransactionMutation", mock.Anything).Return()

	_, err := svc.CreateTransaction(context.Background(), portfolioID, CreateTransactionInput{
		Type:            entities.TransactionTypeSell,
		Ticker:          "AAPL",
		Quantity:        decimal.NewFromInt(4),
		Price:           decimal.NewFromInt(160),
		TransactionDate: day(3),
	})

	require.NoError(t, err)
	require.NotNil(t, mirror)
	assert.Equal(t, entities.TransactionTypeBuy, mirror.Type)
	assert.True(t, mirror.Quantity.Equal(decimal.NewFromInt(640)))
}

func TestCreateTransaction_SellInsufficientShares(t *testing.T) {
	svc, txRepo, _, _ := newTestService(t)
	portfolioID := uuid.New()

	held := []entities.Transaction{
		txn(entities.TransactionTypeBuy, "AAPL", 2, 150, day(1)),
	}
	txRepo.On("ListByPortfolioAndTicker", mock.Anything, portfolioID, "AAPL").Return(held, nil)

	_, err := svc.CreateTransaction(context.Background(), portfolioID, CreateTransactionInput{
		Type:            entities.TransactionTypeSell,
		Ticker:          "AAPL",
		Quantity:        decimal.NewFromInt(4),
		Price:           decimal.NewFromInt(160),
		TransactionDate: day(2),
	})

	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInsufficientShares))
}

func TestCreateTransaction_WithdrawalChecksCashBalance(t *testing.T) {
	svc, txRepo, _, _ := newTestService(t)
	portfolioID := uuid.New()

	cashLedger := []entities.Transaction{
		txn(entities.TransactionTypeDeposit, "CASH", 500, 1, day(1)),
	}
	txRepo.On("ListByPortfolioAndTicker", mock.Anything, portfolioID, "CASH").Return(cashLedger, nil)

	_, err := svc.CreateTransaction(context.Background(), portfolioID, CreateTransactionInput{
		Type:            entities.TransactionTypeWithdrawal,
		Ticker:          "CASH",
		Quantity:        decimal.NewFromInt(2000),
		Price:           decimal.NewFromInt(1),
		TransactionDate: day(2),
	})

	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInsufficientFunds))
}

func TestCreateTransaction_Validation(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	portfolioID := uuid.New()

	tests := []struct {
		name  string
		input CreateTransactionInput
	}{
		{
			name: "withdrawal must use CASH",
			input: CreateTransactionInput{
				Type:            entities.TransactionTypeWithdrawal,
				Ticker:          "AAPL",
				Quantity:        decimal.NewFromInt(1),
				Price:           decimal.NewFromInt(1),
				TransactionDate: day(1),
			},
		},
		{
			name: "quantity must be positive",
			input: CreateTransactionInput{
				Type:            entities.TransactionTypeBuy,
				Ticker:          "AAPL",
				Quantity:        decimal.NewFromInt(-5),
				Price:           decimal.NewFromInt(100),
				TransactionDate: day(1),
			},
		},
		{
			name: "unknown type",
			input: CreateTransactionInput{
				Type:            entities.TransactionType("TRANSFER"),
				Ticker:          "AAPL",
				Quantity:        decimal.NewFromInt(1),
				Price:           decimal.NewFromInt(1),
				TransactionDate: day(1),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateTransaction(context.Background(), portfolioID, tt.input)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.ErrCodeValidation))
		})
	}
}

func TestDeleteTransaction_RemovesMirrorLeg(t *testing.T) {
	svc, txRepo, syncer, events := newTestService(t)
	portfolioID := uuid.New()

	trade := txn(entities.TransactionTypeBuy, "AAPL", 10, 150, day(2))
	trade.PortfolioID = portfolioID
	cashLeg := txn(entities.TransactionTypeSell, "CASH", 1500, 1, day(2))
	cashLeg.PortfolioID = portfolioID

	txRepo.On("GetByID", mock.Anything, trade.ID, portfolioID).Return(&trade, nil)
	txRepo.On("FindMirror", mock.Anything, portfolioID, entities.TransactionTypeSell, trade.TransactionDate, mock.MatchedBy(func(q decimal.Decimal) bool {
		return q.Equal(decimal.NewFromInt(1500))
	})).Return(&cashLeg, nil)

	var deleted []uuid.UUID
	txRepo.On("DeleteMany", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		deleted = args.Get(1).([]uuid.UUID)
	}).Return(nil)
	syncer.On("Recalculate", mock.Anything, portfolioID).Return(nil)
	events.On("PublishTransactionMutation", mock.Anything).Return()

	err := svc.DeleteTransaction(context.Background(), trade.ID, portfolioID)

	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{trade.ID, cashLeg.ID}, deleted)
	events.AssertCalled(t, "PublishTransactionMutation", entities.TransactionMutationEvent{
		PortfolioID:     portfolioID,
		TransactionDate: trade.TransactionDate,
	})
}

func TestDeleteTransaction_CashEntryHasNoMirror(t *testing.T) {
	svc, txRepo, syncer, events := newTestService(t)
	portfolioID := uuid.New()

	deposit := txn(entities.TransactionTypeDeposit, "CASH", 10000, 1, day(1))
	deposit.PortfolioID = portfolioID

	txRepo.On("GetByID", mock.Anything, deposit.ID, portfolioID).Return(&deposit, nil)
	txRepo.On("DeleteMany", mock.Anything, []uuid.UUID{deposit.ID}).Return(nil)
	syncer.On("Recalculate", mock.Anything, portfolioID).Return(nil)
	events.On("PublishTransactionMutation", mock.Anything).Return()

	err := svc.DeleteTransaction(context.Background(), deposit.ID, portfolioID)

	require.NoError(t, err)
	txRepo.AssertNotCalled(t, "FindMirror", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleteTransaction_NotFound(t *testing.T) {
	svc, txRepo, _, _ := newTestService(t)
	portfolioID := uuid.New()
	id := uuid.New()

	txRepo.On("GetByID", mock.Anything, id, portfolioID).Return(nil, nil)

	err := svc.DeleteTransaction(context.Background(), id, portfolioID)

	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeNotFound))
}
