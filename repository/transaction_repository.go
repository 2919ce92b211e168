package repository

import (
	"context"
	"fmt"

	"tambola/database"
	"tambola/models"
)

// TransactionRepository implements the service.TransactionRepository interface
type TransactionRepository struct {
	q queryable
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *database.DB) *TransactionRepository {
	return &TransactionRepository{q: db.Pool}
}

// NewTransactionRepositoryScoped creates a new transaction repository bound to a transaction
func NewTransactionRepositoryScoped(tx queryable) *TransactionRepository {
	return &TransactionRepository{q: tx}
}

// Record appends one entry to the ledger's audit trail
func (r *TransactionRepository) Record(ctx context.Context, txn *models.Transaction) error {
	query := `
		INSERT INTO transactions (id, user_id, amount, type, description, balance_after, room_id, ticket_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`

	err := r.q.QueryRow(ctx, query,
		txn.ID,
		txn.UserID,
		txn.Amount,
		txn.Type,
		txn.Description,
		txn.BalanceAfter,
		txn.RoomID,
		txn.TicketID,
	).Scan(&txn.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record transaction for user %s: %w", txn.UserID, err)
	}
	return nil
}

// GetByUser returns a user's most recent transactions, newest first
func (r *TransactionRepository) GetByUser(ctx context.Context, userID string, limit int) ([]*models.Transaction, error) {
	query := `
		SELECT id, user_id, amount, type, description, balance_after, room_id, ticket_id, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions for user %s: %w", userID, err)
	}
	defer rows.Close()

	var txns []*models.Transaction
	for rows.Next() {
		var txn models.Transaction
		err := rows.Scan(
			&txn.ID,
			&txn.UserID,
			&txn.Amount,
			&txn.Type,
			&txn.Description,
			&txn.BalanceAfter,
			&txn.RoomID,
			&txn.TicketID,
			&txn.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, &txn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return txns, nil
}

// SumSignedByUser returns the signed sum of a user's transaction history.
// For a consistent ledger this equals the user's current balance minus
// their starting balance.
func (r *TransactionRepository) SumSignedByUser(ctx context.Context, userID string) (float64, error) {
	query := `
		SELECT COALESCE(SUM(CASE WHEN type = 'credit' THEN amount ELSE -amount END), 0)
		FROM transactions
		WHERE user_id = $1
	`

	var sum float64
	if err := r.q.QueryRow(ctx, query, userID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to sum transactions for user %s: %w", userID, err)
	}
	return sum, nil
}
