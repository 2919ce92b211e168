package service

import (
	"context"
	"fmt"

	"tambola/events"
	"tambola/models"

	"github.com/google/uuid"
)

type ledgerService struct {
	uowFactory UnitOfWorkFactory
}

// NewLedgerService creates a new ledger service
func NewLedgerService(uowFactory UnitOfWorkFactory) LedgerService {
	return &ledgerService{uowFactory: uowFactory}
}

// Credit adds points to a user's balance and records the matching
// transaction in the same database transaction.
func (s *ledgerService) Credit(ctx context.Context, userID string, amount float64, description string, roomID, ticketID *string) (float64, error) {
	if amount <= 0 {
		return 0, validationf("credit amount must be positive, got %.2f", amount)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	balance, err := creditInUow(ctx, uow, userID, amount, description, roomID, ticketID)
	if err != nil {
		return 0, err
	}

	if err := uow.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return balance, nil
}

// Debit removes points from a user's balance. The balance check is atomic,
// so a concurrent debit can never push the account negative; the loser
// gets ErrInsufficientBalance and no state changes.
func (s *ledgerService) Debit(ctx context.Context, userID string, amount float64, description string, roomID, ticketID *string) (float64, error) {
	if amount <= 0 {
		return 0, validationf("debit amount must be positive, got %.2f", amount)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	balance, err := debitInUow(ctx, uow, userID, amount, description, roomID, ticketID)
	if err != nil {
		return 0, err
	}

	if err := uow.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return balance, nil
}

// GetBalance returns the user's current points balance
func (s *ledgerService) GetBalance(ctx context.Context, userID string) (float64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return 0, ErrNotFound
	}
	return user.PointsBalance, nil
}

// GetHistory returns the user's most recent ledger entries
func (s *ledgerService) GetHistory(ctx context.Context, userID string, limit int) ([]*models.Transaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	txns, err := uow.TransactionRepository().GetByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	return txns, nil
}

// creditInUow performs a credit plus audit row inside an open unit of work.
// Game flows that bundle a ledger mutation with other writes call this
// directly so everything commits or rolls back together.
func creditInUow(ctx context.Context, uow UnitOfWork, userID string, amount float64, description string, roomID, ticketID *string) (float64, error) {
	balance, err := uow.UserRepository().AddPoints(ctx, userID, amount)
	if err != nil {
		return 0, fmt.Errorf("failed to credit user %s: %w", userID, err)
	}

	txn := &models.Transaction{
		ID:           uuid.NewString(),
		UserID:       userID,
		Amount:       amount,
		Type:         models.TransactionCredit,
		Description:  description,
		BalanceAfter: balance,
		RoomID:       roomID,
		TicketID:     ticketID,
	}
	if err := uow.TransactionRepository().Record(ctx, txn); err != nil {
		return 0, fmt.Errorf("failed to record credit: %w", err)
	}

	uow.EventBus().Publish(events.PointsChangedEvent{
		UserID:     userID,
		NewBalance: balance,
		Reason:     description,
	})

	return balance, nil
}

// debitInUow performs a debit plus audit row inside an open unit of work.
func debitInUow(ctx context.Context, uow UnitOfWork, userID string, amount float64, description string, roomID, ticketID *string) (float64, error) {
	balance, err := uow.UserRepository().DeductPoints(ctx, userID, amount)
	if err != nil {
		return 0, err
	}

	txn := &models.Transaction{
		ID:           uuid.NewString(),
		UserID:       userID,
		Amount:       amount,
		Type:         models.TransactionDebit,
		Description:  description,
		BalanceAfter: balance,
		RoomID:       roomID,
		TicketID:     ticketID,
	}
	if err := uow.TransactionRepository().Record(ctx, txn); err != nil {
		return 0, fmt.Errorf("failed to record debit: %w", err)
	}

	uow.EventBus().Publish(events.PointsChangedEvent{
		UserID:     userID,
		NewBalance: balance,
		Reason:     description,
	})

	return balance, nil
}
