package service

import (
	"context"
	"testing"

	"tambola/events"
	"tambola/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newLedgerMocks() (*MockUnitOfWorkFactory, *MockUnitOfWork, *MockUserRepository, *MockTransactionRepository) {
	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockUserRepo := new(MockUserRepository)
	mockTxnRepo := new(MockTransactionRepository)

	mockUoW.SetRepositories(mockUserRepo, mockTxnRepo, new(MockRoomRepository), new(MockTicketRepository), new(MockWinnerRepository))
	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", mock.Anything).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	return mockFactory, mockUoW, mockUserRepo, mockTxnRepo
}

func TestLedgerService_Credit(t *testing.T) {
	ctx := context.Background()
	mockFactory, mockUoW, mockUserRepo, mockTxnRepo := newLedgerMocks()
	mockUoW.On("Commit").Return(nil)

	svc := NewLedgerService(mockFactory)

	mockUserRepo.On("AddPoints", ctx, "user-1", 25.0).Return(125.0, nil)
	mockTxnRepo.On("Record", ctx, mock.MatchedBy(func(txn *models.Transaction) bool {
		return txn.UserID == "user-1" &&
			txn.Amount == 25.0 &&
			txn.Type == models.TransactionCredit &&
			txn.BalanceAfter == 125.0 &&
			txn.Description == "top up"
	})).Return(nil)

	balance, err := svc.Credit(ctx, "user-1", 25, "top up", nil, nil)

	assert.NoError(t, err)
	assert.Equal(t, 125.0, balance)

	published := mockUoW.Published().EventsOfType(events.EventTypePointsChanged)
	assert.Len(t, published, 1)
	assert.Equal(t, 125.0, published[0].(events.PointsChangedEvent).NewBalance)

	mockUserRepo.AssertExpectations(t)
	mockTxnRepo.AssertExpectations(t)
	mockUoW.AssertExpectations(t)
}

func TestLedgerService_Credit_RejectsNonPositive(t *testing.T) {
	mockFactory, _, _, _ := newLedgerMocks()
	svc := NewLedgerService(mockFactory)

	_, err := svc.Credit(context.Background(), "user-1", 0, "nothing", nil, nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Credit(context.Background(), "user-1", -5, "nothing", nil, nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestLedgerService_Debit(t *testing.T) {
	ctx := context.Background()
	mockFactory, mockUoW, mockUserRepo, mockTxnRepo := newLedgerMocks()
	mockUoW.On("Commit").Return(nil)

	svc := NewLedgerService(mockFactory)

	roomID := "room-1"
	mockUserRepo.On("DeductPoints", ctx, "user-1", 40.0).Return(60.0, nil)
	mockTxnRepo.On("Record", ctx, mock.MatchedBy(func(txn *models.Transaction) bool {
		return txn.Type == models.TransactionDebit &&
			txn.Amount == 40.0 &&
			txn.BalanceAfter == 60.0 &&
			txn.RoomID != nil && *txn.RoomID == roomID
	})).Return(nil)

	balance, err := svc.Debit(ctx, "user-1", 40, "ticket purchase", &roomID, nil)

	assert.NoError(t, err)
	assert.Equal(t, 60.0, balance)
	mockUserRepo.AssertExpectations(t)
	mockTxnRepo.AssertExpectations(t)
}

func TestLedgerService_Debit_InsufficientBalance(t *testing.T) {
	ctx := context.Background()
	mockFactory, mockUoW, mockUserRepo, mockTxnRepo := newLedgerMocks()

	svc := NewLedgerService(mockFactory)

	mockUserRepo.On("DeductPoints", ctx, "user-1", 500.0).Return(0.0, ErrInsufficientBalance)

	_, err := svc.Debit(ctx, "user-1", 500, "ticket purchase", nil, nil)

	assert.ErrorIs(t, err, ErrInsufficientBalance)
	// No audit row and no commit for a failed debit
	mockTxnRepo.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	mockUoW.AssertNotCalled(t, "Commit")
	assert.Empty(t, mockUoW.Published().Events)
}
