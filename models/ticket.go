package models

import (
	"time"

	"tambola/game"
)

// Ticket is one purchased ticket: a 3x9 grid plus auto-marked call matches.
// TicketNumber is sequential and unique within its room.
type Ticket struct {
	ID            string    `db:"id" json:"id"`
	RoomID        string    `db:"room_id" json:"room_id"`
	UserID        string    `db:"user_id" json:"user_id"`
	UserName      string    `db:"user_name" json:"user_name"`
	TicketNumber  int       `db:"ticket_number" json:"ticket_number"`
	Grid          game.Grid `db:"grid" json:"grid"`
	Numbers       []int     `db:"numbers" json:"numbers"`
	MarkedNumbers []int     `db:"marked_numbers" json:"marked_numbers"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// HasNumber reports whether n is one of the ticket's 15 values.
func (t *Ticket) HasNumber(n int) bool {
	for _, v := range t.Numbers {
		if v == n {
			return true
		}
	}
	return false
}

// IsMarked reports whether n has already been marked on this ticket.
func (t *Ticket) IsMarked(n int) bool {
	for _, v := range t.MarkedNumbers {
		if v == n {
			return true
		}
	}
	return false
}
