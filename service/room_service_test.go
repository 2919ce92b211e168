package service

import (
	"context"
	"testing"
	"time"

	"tambola/events"
	"tambola/game"
	"tambola/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type roomMocks struct {
	factory  *MockUnitOfWorkFactory
	uow      *MockUnitOfWork
	userRepo *MockUserRepository
	txnRepo  *MockTransactionRepository
	roomRepo *MockRoomRepository
	tickRepo *MockTicketRepository
	winRepo  *MockWinnerRepository
}

func newRoomMocks() *roomMocks {
	m := &roomMocks{
		factory:  new(MockUnitOfWorkFactory),
		uow:      new(MockUnitOfWork),
		userRepo: new(MockUserRepository),
		txnRepo:  new(MockTransactionRepository),
		roomRepo: new(MockRoomRepository),
		tickRepo: new(MockTicketRepository),
		winRepo:  new(MockWinnerRepository),
	}
	m.uow.SetRepositories(m.userRepo, m.txnRepo, m.roomRepo, m.tickRepo, m.winRepo)
	m.factory.On("Create").Return(m.uow)
	m.uow.On("Begin", mock.Anything).Return(nil)
	m.uow.On("Rollback").Return(nil)
	return m
}

func host() *models.User {
	return &models.User{ID: "host-1", Name: "Host", Email: "host@example.com", PointsBalance: 500}
}

func waitingRoom() *models.Room {
	h := host()
	return &models.Room{
		ID:            "room-1",
		Name:          "Friday night",
		HostID:        h.ID,
		HostName:      h.Name,
		RoomType:      models.RoomPublic,
		Status:        models.RoomWaiting,
		TicketPrice:   10,
		MinPlayers:    2,
		MaxPlayers:    4,
		PrizePercents: game.DefaultPercents(),
		Players: []models.RoomPlayer{
			{ID: h.ID, Name: h.Name, JoinedAt: time.Now()},
		},
		CurrentPlayers: 1,
		CalledNumbers:  []int{},
	}
}

func TestRoomService_CreateRoom(t *testing.T) {
	ctx := context.Background()

	t.Run("success with defaults", func(t *testing.T) {
		m := newRoomMocks()
		m.uow.On("Commit").Return(nil)
		svc := NewRoomService(m.factory)

		m.userRepo.On("GetByID", ctx, "host-1").Return(host(), nil)
		m.roomRepo.On("Create", ctx, mock.MatchedBy(func(r *models.Room) bool {
			return r.Name == "Friday night" &&
				r.Status == models.RoomWaiting &&
				r.HostID == "host-1" &&
				r.CurrentPlayers == 1 &&
				len(r.Players) == 1 &&
				r.MinPlayers == 2 && r.MaxPlayers == 50 &&
				r.PrizePercents[game.PrizeFullHouse] == 50
		})).Return(nil)

		room, err := svc.CreateRoom(ctx, CreateRoomParams{
			HostID:      "host-1",
			Name:        "Friday night",
			TicketPrice: 10,
		})

		require.NoError(t, err)
		assert.Equal(t, models.RoomWaiting, room.Status)
		assert.Len(t, m.uow.Published().EventsOfType(events.EventTypeRoomCreated), 1)
		m.roomRepo.AssertExpectations(t)
	})

	t.Run("validation failures", func(t *testing.T) {
		m := newRoomMocks()
		svc := NewRoomService(m.factory)

		_, err := svc.CreateRoom(ctx, CreateRoomParams{HostID: "host-1", Name: "", TicketPrice: 10})
		assert.ErrorIs(t, err, ErrValidation)

		_, err = svc.CreateRoom(ctx, CreateRoomParams{HostID: "host-1", Name: "x", TicketPrice: 5000})
		assert.ErrorIs(t, err, ErrValidation)

		_, err = svc.CreateRoom(ctx, CreateRoomParams{HostID: "host-1", Name: "x", TicketPrice: 10, MinPlayers: 9, MaxPlayers: 3})
		assert.ErrorIs(t, err, ErrValidation)

		_, err = svc.CreateRoom(ctx, CreateRoomParams{HostID: "host-1", Name: "x", TicketPrice: 10, RoomType: models.RoomPrivate})
		assert.ErrorIs(t, err, ErrValidation)

		_, err = svc.CreateRoom(ctx, CreateRoomParams{
			HostID: "host-1", Name: "x", TicketPrice: 10,
			PrizePercents: game.PrizePercents{game.PrizeFullHouse: 100},
		})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("custom prize table must sum to 100", func(t *testing.T) {
		m := newRoomMocks()
		m.uow.On("Commit").Return(nil)
		svc := NewRoomService(m.factory)

		table := game.PrizePercents{
			game.PrizeEarlyFive:   15,
			game.PrizeTopLine:     15,
			game.PrizeMiddleLine:  15,
			game.PrizeBottomLine:  15,
			game.PrizeFourCorners: 10,
			game.PrizeFullHouse:   30,
		}

		m.userRepo.On("GetByID", ctx, "host-1").Return(host(), nil)
		m.roomRepo.On("Create", ctx, mock.MatchedBy(func(r *models.Room) bool {
			return r.PrizePercents[game.PrizeFullHouse] == 30
		})).Return(nil)

		_, err := svc.CreateRoom(ctx, CreateRoomParams{
			HostID: "host-1", Name: "custom", TicketPrice: 10, PrizePercents: table,
		})
		require.NoError(t, err)
	})
}

func TestRoomService_JoinRoom(t *testing.T) {
	ctx := context.Background()
	player := &models.User{ID: "player-1", Name: "Player"}

	t.Run("join adds roster entry", func(t *testing.T) {
		m := newRoomMocks()
		m.uow.On("Commit").Return(nil)
		svc := NewRoomService(m.factory)

		m.roomRepo.On("GetByID", ctx, "room-1").Return(waitingRoom(), nil)
		m.userRepo.On("GetByID", ctx, "player-1").Return(player, nil)
		m.roomRepo.On("AddPlayer", ctx, "room-1", mock.MatchedBy(func(p models.RoomPlayer) bool {
			return p.ID == "player-1" && p.Name == "Player"
		})).Return(nil)

		room, err := svc.JoinRoom(ctx, "room-1", "player-1", "")
		require.NoError(t, err)
		assert.Equal(t, 2, room.CurrentPlayers)
		assert.Len(t, m.uow.Published().EventsOfType(events.EventTypePlayerJoined), 1)
	})

	t.Run("rejoining is a no-op", func(t *testing.T) {
		m := newRoomMocks()
		svc := NewRoomService(m.factory)

		m.roomRepo.On("GetByID", ctx, "room-1").Return(waitingRoom(), nil)
		m.userRepo.On("GetByID", ctx, "host-1").Return(host(), nil)

		room, err := svc.JoinRoom(ctx, "room-1", "host-1", "")
		require.NoError(t, err)
		assert.Equal(t, 1, room.CurrentPlayers)
		m.roomRepo.AssertNotCalled(t, "AddPlayer", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("full room rejects join", func(t *testing.T) {
		m := newRoomMocks()
		svc := NewRoomService(m.factory)

		full := waitingRoom()
		full.CurrentPlayers = full.MaxPlayers

		m.roomRepo.On("GetByID", ctx, "room-1").Return(full, nil)
		m.userRepo.On("GetByID", ctx, "player-1").Return(player, nil)

		_, err := svc.JoinRoom(ctx, "room-1", "player-1", "")
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("private room requires the password", func(t *testing.T) {
		m := newRoomMocks()
		m.uow.On("Commit").Return(nil)
		svc := NewRoomService(m.factory)

		hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
		require.NoError(t, err)
		locked := waitingRoom()
		locked.RoomType = models.RoomPrivate
		h := string(hash)
		locked.Password = &h

		m.roomRepo.On("GetByID", ctx, "room-1").Return(locked, nil)
		m.userRepo.On("GetByID", ctx, "player-1").Return(player, nil)
		m.roomRepo.On("AddPlayer", ctx, "room-1", mock.Anything).Return(nil)

		_, err = svc.JoinRoom(ctx, "room-1", "player-1", "wrong")
		assert.ErrorIs(t, err, ErrNotAuthorized)

		_, err = svc.JoinRoom(ctx, "room-1", "player-1", "hunter2")
		assert.NoError(t, err)
	})

	t.Run("completed room rejects join", func(t *testing.T) {
		m := newRoomMocks()
		svc := NewRoomService(m.factory)

		done := waitingRoom()
		done.Status = models.RoomCompleted

		m.roomRepo.On("GetByID", ctx, "room-1").Return(done, nil)
		m.userRepo.On("GetByID", ctx, "player-1").Return(player, nil)

		_, err := svc.JoinRoom(ctx, "room-1", "player-1", "")
		assert.ErrorIs(t, err, ErrInvalidState)
	})
}

func TestRoomService_DeleteRoom(t *testing.T) {
	ctx := context.Background()

	t.Run("refunds every ticket before deleting", func(t *testing.T) {
		m := newRoomMocks()
		m.uow.On("Commit").Return(nil)
		svc := NewRoomService(m.factory)

		m.roomRepo.On("GetByID", ctx, "room-1").Return(waitingRoom(), nil)
		m.tickRepo.On("CountByRoomPerUser", ctx, "room-1").Return(map[string]int{
			"player-1": 3,
			"player-2": 1,
		}, nil)

		// 3 tickets at 10 points and 1 ticket at 10 points
		m.userRepo.On("AddPoints", ctx, "player-1", 30.0).Return(130.0, nil)
		m.userRepo.On("AddPoints", ctx, "player-2", 10.0).Return(60.0, nil)
		m.txnRepo.On("Record", ctx, mock.MatchedBy(func(txn *models.Transaction) bool {
			return txn.Type == models.TransactionCredit && txn.Description == "room cancelled refund"
		})).Return(nil).Times(2)

		m.roomRepo.On("Delete", ctx, "room-1").Return(nil)

		err := svc.DeleteRoom(ctx, "room-1", "host-1")
		require.NoError(t, err)
		assert.Len(t, m.uow.Published().EventsOfType(events.EventTypeRoomDeleted), 1)
		m.userRepo.AssertExpectations(t)
		m.roomRepo.AssertExpectations(t)
	})

	t.Run("only the host may delete", func(t *testing.T) {
		m := newRoomMocks()
		svc := NewRoomService(m.factory)

		m.roomRepo.On("GetByID", ctx, "room-1").Return(waitingRoom(), nil)

		err := svc.DeleteRoom(ctx, "room-1", "player-1")
		assert.ErrorIs(t, err, ErrNotAuthorized)
	})

	t.Run("active rooms cannot be deleted", func(t *testing.T) {
		m := newRoomMocks()
		svc := NewRoomService(m.factory)

		active := waitingRoom()
		active.Status = models.RoomActive

		m.roomRepo.On("GetByID", ctx, "room-1").Return(active, nil)

		err := svc.DeleteRoom(ctx, "room-1", "host-1")
		assert.ErrorIs(t, err, ErrInvalidState)
		m.roomRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}
