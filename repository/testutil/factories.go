package testutil

import (
	"math/rand"
	"time"

	"tambola/game"
	"tambola/models"

	"github.com/google/uuid"
)

// CreateTestUser creates a test user with default values
func CreateTestUser(name string) *models.User {
	return &models.User{
		ID:            uuid.NewString(),
		Name:          name,
		Email:         name + "@example.com",
		PasswordHash:  "$2a$10$test.hash.not.a.real.bcrypt.value.padding",
		PointsBalance: 1000,
	}
}

// CreateTestUserWithBalance creates a test user with a specific balance
func CreateTestUserWithBalance(name string, balance float64) *models.User {
	user := CreateTestUser(name)
	user.PointsBalance = balance
	return user
}

// CreateTestRoom creates a waiting room hosted by the given user
func CreateTestRoom(host *models.User) *models.Room {
	return &models.Room{
		ID:            uuid.NewString(),
		Name:          host.Name + "'s room",
		HostID:        host.ID,
		HostName:      host.Name,
		RoomType:      models.RoomPublic,
		Status:        models.RoomWaiting,
		TicketPrice:   10,
		MinPlayers:    2,
		MaxPlayers:    50,
		PrizePercents: game.DefaultPercents(),
		Players: []models.RoomPlayer{
			{ID: host.ID, Name: host.Name, JoinedAt: time.Now()},
		},
		CurrentPlayers: 1,
		CalledNumbers:  []int{},
	}
}

// CreateTestTicket generates a real ticket for a user in a room
func CreateTestTicket(room *models.Room, user *models.User, ticketNumber int, seed int64) *models.Ticket {
	grid, numbers := game.Generate(rand.New(rand.NewSource(seed)))
	return &models.Ticket{
		ID:            uuid.NewString(),
		RoomID:        room.ID,
		UserID:        user.ID,
		UserName:      user.Name,
		TicketNumber:  ticketNumber,
		Grid:          grid,
		Numbers:       numbers,
		MarkedNumbers: []int{},
	}
}

// CreateTestTransaction creates a credit entry for a user
func CreateTestTransaction(user *models.User, amount float64) *models.Transaction {
	return &models.Transaction{
		ID:           uuid.NewString(),
		UserID:       user.ID,
		Amount:       amount,
		Type:         models.TransactionCredit,
		Description:  "test credit",
		BalanceAfter: user.PointsBalance + amount,
	}
}
