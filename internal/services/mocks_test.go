package services

import (
	"context"

	"github.com/fortebank/backend/internal/ledger"
	"github.com/fortebank/backend/internal/models"
	"github.com/fortebank/backend/internal/queue"
	"github.com/stretchr/testify/mock"
)

type MockPoster struct {
	mock.Mock
}

func (m *MockPoster) Post(ctx context.Context, req ledger.PostRequest) (*models.Transaction, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

type MockTransferor struct {
	mock.Mock
}

func (m *MockTransferor) Transfer(ctx context.Context, fromAccountID, toAccountNumber string, amount int64, transferType models.TransferType, description string) (string, error) {
	args := m.Called(ctx, fromAccountID, toAccountNumber, amount, transferType, description)
	return args.String(0), args.Error(1)
}

type MockAdjuster struct {
	mock.Mock
}

func (m *MockAdjuster) Adjust(ctx context.Context, accountID string, op ledger.AdjustOperation, amount int64, description string) (*models.Transaction, error) {
	args := m.Called(ctx, accountID, op, amount, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishPosting(ctx context.Context, msg queue.PostingMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

type MockAccountStore struct {
	mock.Mock
}

func (m *MockAccountStore) GetForUpdate(ctx context.Context, accountID string) (*models.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountStore) CompareAndSetBalance(ctx context.Context, accountID string, expected, newBalance int64) error {
	args := m.Called(ctx, accountID, expected, newBalance)
	return args.Error(0)
}

func (m *MockAccountStore) FindByAccountNumber(ctx context.Context, accountNumber string) (*models.Account, error) {
	args := m.Called(ctx, accountNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

type MockTransactionStore struct {
	mock.Mock
}

func (m *MockTransactionStore) Create(ctx context.Context, tx *models.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionStore) FindByReference(ctx context.Context, accountID, reference, subtype string) (*models.Transaction, error) {
	args := m.Called(ctx, accountID, reference, subtype)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *MockTransactionStore) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]models.Transaction, error) {
	args := m.Called(ctx, accountID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Transaction), args.Error(1)
}
