package models

import (
	"time"

	"tambola/game"
)

// Winner is an immutable claim record: one prize awarded to one ticket.
// AutoClaimed distinguishes server-driven detection from a manual claim.
type Winner struct {
	ID           string         `db:"id" json:"id"`
	RoomID       string         `db:"room_id" json:"room_id"`
	UserID       string         `db:"user_id" json:"user_id"`
	UserName     string         `db:"user_name" json:"user_name"`
	TicketID     string         `db:"ticket_id" json:"ticket_id"`
	TicketNumber int            `db:"ticket_number" json:"ticket_number"`
	PrizeType    game.PrizeType `db:"prize_type" json:"prize_type"`
	Amount       float64        `db:"amount" json:"amount"`
	AutoClaimed  bool           `db:"auto_claimed" json:"auto_claimed"`
	Rank         int            `db:"rank" json:"rank,omitempty"`
	ClaimedAt    time.Time      `db:"claimed_at" json:"claimed_at"`
}

// LeaderboardEntry is one row of a room's final standings, ranked by total
// winnings in that room.
type LeaderboardEntry struct {
	UserID   string  `json:"user_id"`
	UserName string  `json:"user_name"`
	Winnings float64 `json:"winnings"`
	Prizes   int     `json:"prizes"`
}
