package models

import (
	"time"
)

// User represents a registered player with a points balance
type User struct {
	ID            string     `db:"id" json:"id"`
	Name          string     `db:"name" json:"name"`
	Email         string     `db:"email" json:"email"`
	Mobile        string     `db:"mobile" json:"mobile"`
	PasswordHash  string     `db:"password_hash" json:"-"`
	PointsBalance float64    `db:"points_balance" json:"points_balance"`
	TotalGames    int        `db:"total_games" json:"total_games"`
	TotalWins     int        `db:"total_wins" json:"total_wins"`
	TotalWinnings float64    `db:"total_winnings" json:"total_winnings"`
	IsBanned      bool       `db:"is_banned" json:"is_banned"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	LastLogin     *time.Time `db:"last_login" json:"last_login,omitempty"`
}
