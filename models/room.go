package models

import (
	"time"

	"tambola/game"
)

// RoomStatus is the lifecycle state of a game room
type RoomStatus string

const (
	RoomWaiting   RoomStatus = "waiting"
	RoomActive    RoomStatus = "active"
	RoomCompleted RoomStatus = "completed"
	RoomCancelled RoomStatus = "cancelled"
)

// RoomType controls join visibility
type RoomType string

const (
	RoomPublic  RoomType = "public"
	RoomPrivate RoomType = "private"
)

// RoomPlayer is one roster entry, embedded in the room document
type RoomPlayer struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joined_at"`
}

// Room holds a game session's full state. All mutation goes through the game
// service, which serializes operations per room.
type Room struct {
	ID                string                     `db:"id" json:"id"`
	Name              string                     `db:"name" json:"name"`
	HostID            string                     `db:"host_id" json:"host_id"`
	HostName          string                     `db:"host_name" json:"host_name"`
	RoomType          RoomType                   `db:"room_type" json:"room_type"`
	Password          *string                    `db:"password" json:"-"`
	Status            RoomStatus                 `db:"status" json:"status"`
	TicketPrice       float64                    `db:"ticket_price" json:"ticket_price"`
	MinPlayers        int                        `db:"min_players" json:"min_players"`
	MaxPlayers        int                        `db:"max_players" json:"max_players"`
	PrizePercents     game.PrizePercents         `db:"prize_percents" json:"prize_percents"`
	Players           []RoomPlayer               `db:"players" json:"players"`
	CurrentPlayers    int                        `db:"current_players" json:"current_players"`
	TicketsSold       int                        `db:"tickets_sold" json:"tickets_sold"`
	PrizePool         float64                    `db:"prize_pool" json:"prize_pool"`
	PrizeDistribution map[game.PrizeType]float64 `db:"prize_distribution" json:"prize_distribution,omitempty"`
	CalledNumbers     []int                      `db:"called_numbers" json:"called_numbers"`
	CurrentNumber     *int                       `db:"current_number" json:"current_number,omitempty"`
	AutoCall          bool                       `db:"auto_call" json:"auto_call"`
	CreatedAt         time.Time                  `db:"created_at" json:"created_at"`
	StartedAt         *time.Time                 `db:"started_at" json:"started_at,omitempty"`
	CompletedAt       *time.Time                 `db:"completed_at" json:"completed_at,omitempty"`
}

// HasPlayer reports whether a user is on the room roster.
func (r *Room) HasPlayer(userID string) bool {
	for _, p := range r.Players {
		if p.ID == userID {
			return true
		}
	}
	return false
}

// HasCalled reports whether a number is already in the called log.
func (r *Room) HasCalled(n int) bool {
	for _, c := range r.CalledNumbers {
		if c == n {
			return true
		}
	}
	return false
}
