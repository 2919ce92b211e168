package models

import (
	"time"
)

// TransactionType represents the direction of a points mutation
type TransactionType string

const (
	TransactionCredit TransactionType = "credit"
	TransactionDebit  TransactionType = "debit"
)

// Transaction is one entry in a user's append-only ledger trail. Amount is
// always positive; Type carries the sign. BalanceAfter records the balance
// resulting from this mutation.
type Transaction struct {
	ID           string          `db:"id" json:"id"`
	UserID       string          `db:"user_id" json:"user_id"`
	Amount       float64         `db:"amount" json:"amount"`
	Type         TransactionType `db:"type" json:"type"`
	Description  string          `db:"description" json:"description"`
	BalanceAfter float64         `db:"balance_after" json:"balance_after"`
	RoomID       *string         `db:"room_id" json:"room_id,omitempty"`
	TicketID     *string         `db:"ticket_id" json:"ticket_id,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

// Signed returns the transaction amount with its direction applied.
func (t *Transaction) Signed() float64 {
	if t.Type == TransactionDebit {
		return -t.Amount
	}
	return t.Amount
}
