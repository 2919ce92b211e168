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
)

// fixtureGrid is a hand-built valid ticket used to drive prize settlement
// deterministically.
//
//	 1  .  22  .  41  .  60  .  88
//	 .  12  .  33  45  .  67  .  89
//	 3  .  25  .  49  .   .  71  90
func fixtureGrid() (game.Grid, []int) {
	grid := game.Grid{
		{1, 0, 22, 0, 41, 0, 60, 0, 88},
		{0, 12, 0, 33, 45, 0, 67, 0, 89},
		{3, 0, 25, 0, 49, 0, 0, 71, 90},
	}
	numbers := []int{1, 3, 12, 22, 25, 33, 41, 45, 49, 60, 67, 71, 88, 89, 90}
	return grid, numbers
}

func fixtureTicket(roomID, userID string) *models.Ticket {
	grid, numbers := fixtureGrid()
	return &models.Ticket{
		ID:            "ticket-1",
		RoomID:        roomID,
		UserID:        userID,
		UserName:      "Player",
		TicketNumber:  1,
		Grid:          grid,
		Numbers:       numbers,
		MarkedNumbers: []int{},
	}
}

func activeRoom() *models.Room {
	room := waitingRoom()
	room.Status = models.RoomActive
	room.TicketsSold = 4
	room.PrizePool = 40
	room.PrizeDistribution = game.ComputeDistribution(40, room.PrizePercents)
	now := time.Now()
	room.StartedAt = &now
	room.Players = append(room.Players, models.RoomPlayer{ID: "player-1", Name: "Player", JoinedAt: now})
	room.CurrentPlayers = 2
	return room
}

func TestGameService_BuyTickets(t *testing.T) {
	ctx := context.Background()

	t.Run("purchase debits and generates tickets", func(t *testing.T) {
		m := newRoomMocks()
		m.uow.On("Commit").Return(nil)
		svc := NewGameService(m.factory)

		m.roomRepo.On("GetByID", ctx, "room-1").Return(waitingRoom(), nil)
		m.userRepo.On("GetByID", ctx, "host-1").Return(host(), nil)
		m.userRepo.On("DeductPoints", ctx, "host-1", 20.0).Return(480.0, nil)
		m.txnRepo.On("Record", ctx, mock.MatchedBy(func(txn *models.Transaction) bool {
			return txn.Type == models.TransactionDebit && txn.Amount == 20.0
		})).Return(nil)
		m.tickRepo.On("CountByRoom", ctx, "room-1").Return(3, nil)
		m.tickRepo.On("CreateBatch", ctx, mock.MatchedBy(func(tickets []*models.Ticket) bool {
			if len(tickets) != 2 {
				return false
			}
			// ticket numbers continue the room sequence
			return tickets[0].TicketNumber == 4 &&
				tickets[1].TicketNumber == 5 &&
				len(tickets[0].Numbers) == 15 &&
				tickets[0].UserID == "host-1"
		})).Return(nil)
		m.roomRepo.On("IncrementTicketsSold", ctx, "room-1", 2).Return(nil)

		tickets, err := svc.BuyTickets(ctx, "room-1", "host-1", 2)

		require.NoError(t, err)
		require.Len(t, tickets, 2)
		assert.NotEqual(t, tickets[0].Grid, tickets[1].Grid)
		m.tickRepo.AssertExpectations(t)
		m.roomRepo.AssertExpectations(t)
	})

	t.Run("quantity bounds", func(t *testing.T) {
		m := newRoomMocks()
		svc := NewGameService(m.factory)

		_, err := svc.BuyTickets(ctx, "room-1", "host-1", 0)
		assert.ErrorIs(t, err, ErrValidation)

		_, err = svc.BuyTickets(ctx, "room-1", "host-1", 11)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("no purchases after start", func(t *testing.T) {
		m := newRoomMocks()
		svc := NewGameService(m.factory)

		m.roomRepo.On("GetByID", ctx, "room-1").Return(activeRoom(), nil)

		_, err := svc.BuyTickets(ctx, "room-1", "host-1", 1)
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("only roster members can buy", func(t *testing.T) {
		m := newRoomMocks()
		svc := NewGameService(m.factory)

		m.roomRepo.On("GetByID", ctx, "room-1").Return(waitingRoom(), nil)

		_, err := svc.BuyTickets(ctx, "room-1", "stranger", 1)
		assert.ErrorIs(t, err, ErrNotAuthorized)
	})

	t.Run("insufficient balance aborts the purchase", func(t *testing.T) {
		m := newRoomMocks()
		svc := NewGameService(m.factory)

		m.roomRepo.On("GetByID", ctx, "room-1").Return(waitingRoom(), nil)
		m.userRepo.On("GetByID", ctx, "host-1").Return(host(), nil)
		m.userRepo.On("DeductPoints", ctx, "host-1", 100.0).Return(0.0, ErrInsufficientBalance)

		_, err := svc.BuyTickets(ctx, "room-1", "host-1", 10)
		assert.ErrorIs(t, err, ErrInsufficientBalance)
		m.tickRepo.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)
		m.uow.AssertNotCalled(t, "Commit")
	})
}

func TestGameService_StartGame(t *testing.T) {
	ctx := context.Background()

	t.Run("freezes pool and distribution", func(t *testing.T) {
		m := newRoomMocks()
		m.uow.On("Commit").Return(nil)
		svc := NewGameService(m.factory)

		room := waitingRoom()
		room.CurrentPlayers = 2
		room.TicketsSold = 4
		room.PrizePool = 40

		m.roomRepo.On("GetByID", ctx, "room-1").Return(room, nil)
		m.roomRepo.On("SetActive", ctx, mock.MatchedBy(func(r *models.Room) bool {
			return r.PrizeDistribution[game.PrizeFullHouse] == 20.0 &&
				r.PrizeDistribution[game.PrizeEarlyFive] == 4.0
		})).Return(nil).Run(func(args mock.Arguments) {
			r := args.Get(1).(*models.Room)
			now := time.Now()
			r.Status = models.RoomActive
			r.StartedAt = &now
		})

		started, err := svc.StartGame(ctx, "room-1", "host-1")

		require.NoError(t, err)
		assert.Equal(t, models.RoomActive, started.Status)

		published := m.uow.Published().EventsOfType(events.EventTypeGameStarted)
		require.Len(t, published, 1)
		assert.Equal(t, 40.0, published[0].(events.GameStartedEvent).PrizePool)
	})

	t.Run("host only", func(t *testing.T) {
		m := newRoomMocks()
		svc := NewGameService(m.factory)

		m.roomRepo.On("GetByID", ctx, "room-1").Return(waitingRoom(), nil)

		_, err := svc.StartGame(ctx, "room-1", "player-1")
		assert.ErrorIs(t, err, ErrNotAuthorized)
	})

	t.Run("requires min players and sold tickets", func(t *testing.T) {
		m := newRoomMocks()
		svc := NewGameService(m.factory)

		short := waitingRoom()
		m.roomRepo.On("GetByID", ctx, "room-1").Return(short, nil).Once()
		_, err := svc.StartGame(ctx, "room-1", "host-1")
		assert.ErrorIs(t, err, ErrInvalidState)

		unsold := waitingRoom()
		unsold.CurrentPlayers = 2
		unsold.TicketsSold = 0
		m.roomRepo.On("GetByID", ctx, "room-1").Return(unsold, nil).Once()
		_, err = svc.StartGame(ctx, "room-1", "host-1")
		assert.ErrorIs(t, err, ErrInvalidState)
	})
}

func TestGameService_CallNumber(t *testing.T) {
	ctx := context.Background()

	t.Run("final call settles full house and completes the game", func(t *testing.T) {
		m := newRoomMocks()
		m.uow.On("Commit").Return(nil)
		svc := NewGameService(m.factory)

		room := activeRoom()
		// every number except 41 has been called, so the draw is forced
		for n := 1; n <= 90; n++ {
			if n != 41 {
				room.CalledNumbers = append(room.CalledNumbers, n)
			}
		}

		ticket := fixtureTicket("room-1", "player-1")
		for _, n := range ticket.Numbers {
			if n != 41 {
				ticket.MarkedNumbers = append(ticket.MarkedNumbers, n)
			}
		}

		// five prizes already claimed in earlier calls
		prior := make([]*models.Winner, 0, 5)
		for _, prize := range game.PrizeOrder[:5] {
			prior = append(prior, &models.Winner{
				ID:        "win-" + string(prize),
				RoomID:    "room-1",
				UserID:    "player-1",
				UserName:  "Player",
				TicketID:  ticket.ID,
				PrizeType: prize,
				Amount:    4,
			})
		}

		m.roomRepo.On("GetByID", ctx, "room-1").Return(room, nil)
		m.roomRepo.On("AppendCalledNumber", ctx, "room-1", 41).Return(nil)
		m.tickRepo.On("GetByRoom", ctx, "room-1").Return([]*models.Ticket{ticket}, nil)
		m.tickRepo.On("Mark", ctx, "ticket-1", 41).Return(nil)

		m.winRepo.On("GetByRoom", ctx, "room-1").Return(prior, nil).Once()
		m.winRepo.On("Create", ctx, mock.MatchedBy(func(w *models.Winner) bool {
			return w.PrizeType == game.PrizeFullHouse &&
				w.UserID == "player-1" &&
				w.Amount == 20.0 &&
				w.AutoClaimed
		})).Return(nil)
		m.userRepo.On("AddPoints", ctx, "player-1", 20.0).Return(120.0, nil)
		m.txnRepo.On("Record", ctx, mock.Anything).Return(nil)
		m.userRepo.On("RecordWin", ctx, "player-1", 20.0).Return(nil)

		// completion pass re-reads the winners and assigns ranks
		m.winRepo.On("GetByRoom", ctx, "room-1").Return(append(prior, &models.Winner{
			ID: "win-full", PrizeType: game.PrizeFullHouse, UserID: "player-1", UserName: "Player", Amount: 20,
		}), nil).Once()
		m.winRepo.On("SetRank", ctx, mock.Anything, mock.Anything).Return(nil).Times(6)
		m.userRepo.On("IncrementGamesPlayed", ctx, mock.Anything).Return(nil)
		m.roomRepo.On("SetCompleted", ctx, "room-1").Return(nil)

		result, err := svc.CallNumber(ctx, "room-1", "host-1", 0)

		require.NoError(t, err)
		assert.Equal(t, 41, result.Number)
		assert.Zero(t, result.Remaining)
		assert.True(t, result.GameComplete)
		require.Len(t, result.Winners, 1)
		assert.Equal(t, game.PrizeFullHouse, result.Winners[0].PrizeType)

		completed := m.uow.Published().EventsOfType(events.EventTypeGameCompleted)
		require.Len(t, completed, 1)
		leaderboard := completed[0].(events.GameCompletedEvent).Leaderboard
		require.Len(t, leaderboard, 1)
		assert.Equal(t, 40.0, leaderboard[0].Winnings)

		m.winRepo.AssertExpectations(t)
		m.roomRepo.AssertExpectations(t)
	})

	t.Run("host only", func(t *testing.T) {
		m := newRoomMocks()
		svc := NewGameService(m.factory)

		m.roomRepo.On("GetByID", ctx, "room-1").Return(activeRoom(), nil)

		_, err := svc.CallNumber(ctx, "room-1", "player-1", 0)
		assert.ErrorIs(t, err, ErrNotAuthorized)
	})

	t.Run("waiting room cannot call", func(t *testing.T) {
		m := newRoomMocks()
		svc := NewGameService(m.factory)

		m.roomRepo.On("GetByID", ctx, "room-1").Return(waitingRoom(), nil)

		_, err := svc.CallNumber(ctx, "room-1", "host-1", 0)
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("explicit number is called as given", func(t *testing.T) {
		m := newRoomMocks()
		m.uow.On("Commit").Return(nil)
		svc := NewGameService(m.factory)

		m.roomRepo.On("GetByID", ctx, "room-1").Return(activeRoom(), nil)
		m.roomRepo.On("AppendCalledNumber", ctx, "room-1", 17).Return(nil)
		m.tickRepo.On("GetByRoom", ctx, "room-1").Return([]*models.Ticket{}, nil)
		m.winRepo.On("GetByRoom", ctx, "room-1").Return([]*models.Winner{}, nil)

		result, err := svc.CallNumber(ctx, "room-1", "host-1", 17)

		require.NoError(t, err)
		assert.Equal(t, 17, result.Number)
		assert.False(t, result.GameComplete)
	})

	t.Run("explicit number rejects out of range and duplicates", func(t *testing.T) {
		m := newRoomMocks()
		svc := NewGameService(m.factory)

		room := activeRoom()
		room.CalledNumbers = []int{17}
		m.roomRepo.On("GetByID", ctx, "room-1").Return(room, nil)

		_, err := svc.CallNumber(ctx, "room-1", "host-1", 91)
		assert.ErrorIs(t, err, ErrValidation)

		_, err = svc.CallNumber(ctx, "room-1", "host-1", 17)
		assert.ErrorIs(t, err, ErrValidation)
		m.roomRepo.AssertNotCalled(t, "AppendCalledNumber", ctx, "room-1", 17)
	})
}

func TestGameService_ClaimPrize(t *testing.T) {
	ctx := context.Background()

	// calls that complete the fixture's top line
	topLineCalls := []int{22, 88, 5, 1, 60, 41}

	t.Run("valid manual claim pays out", func(t *testing.T) {
		m := newRoomMocks()
		m.uow.On("Commit").Return(nil)
		svc := NewGameService(m.factory)

		room := activeRoom()
		room.CalledNumbers = topLineCalls
		ticket := fixtureTicket("room-1", "player-1")

		m.roomRepo.On("GetByID", ctx, "room-1").Return(room, nil)
		m.tickRepo.On("GetByID", ctx, "ticket-1").Return(ticket, nil)
		m.winRepo.On("GetByRoomAndPrize", ctx, "room-1", "top_line").Return(nil, nil)
		m.winRepo.On("Create", ctx, mock.MatchedBy(func(w *models.Winner) bool {
			return w.PrizeType == game.PrizeTopLine && !w.AutoClaimed && w.Amount == 4.0
		})).Return(nil)
		m.userRepo.On("AddPoints", ctx, "player-1", 4.0).Return(104.0, nil)
		m.txnRepo.On("Record", ctx, mock.Anything).Return(nil)
		m.userRepo.On("RecordWin", ctx, "player-1", 4.0).Return(nil)

		winner, err := svc.ClaimPrize(ctx, "room-1", "player-1", "ticket-1", game.PrizeTopLine)

		require.NoError(t, err)
		assert.Equal(t, game.PrizeTopLine, winner.PrizeType)
		assert.Len(t, m.uow.Published().EventsOfType(events.EventTypePrizeClaimed), 1)
	})

	t.Run("bogus claim is rejected", func(t *testing.T) {
		m := newRoomMocks()
		svc := NewGameService(m.factory)

		room := activeRoom()
		room.CalledNumbers = []int{22, 88} // top line incomplete
		ticket := fixtureTicket("room-1", "player-1")

		m.roomRepo.On("GetByID", ctx, "room-1").Return(room, nil)
		m.tickRepo.On("GetByID", ctx, "ticket-1").Return(ticket, nil)
		m.winRepo.On("GetByRoomAndPrize", ctx, "room-1", "top_line").Return(nil, nil)

		_, err := svc.ClaimPrize(ctx, "room-1", "player-1", "ticket-1", game.PrizeTopLine)
		assert.ErrorIs(t, err, ErrValidation)
		m.winRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("cannot claim on another player's ticket", func(t *testing.T) {
		m := newRoomMocks()
		svc := NewGameService(m.factory)

		room := activeRoom()
		room.CalledNumbers = topLineCalls
		ticket := fixtureTicket("room-1", "player-1")

		m.roomRepo.On("GetByID", ctx, "room-1").Return(room, nil)
		m.tickRepo.On("GetByID", ctx, "ticket-1").Return(ticket, nil)

		_, err := svc.ClaimPrize(ctx, "room-1", "intruder", "ticket-1", game.PrizeTopLine)
		assert.ErrorIs(t, err, ErrNotAuthorized)
	})

	t.Run("second claim loses", func(t *testing.T) {
		m := newRoomMocks()
		svc := NewGameService(m.factory)

		room := activeRoom()
		room.CalledNumbers = topLineCalls
		ticket := fixtureTicket("room-1", "player-1")
		taken := &models.Winner{ID: "w1", RoomID: "room-1", TicketID: "other-ticket", PrizeType: game.PrizeTopLine}

		m.roomRepo.On("GetByID", ctx, "room-1").Return(room, nil)
		m.tickRepo.On("GetByID", ctx, "ticket-1").Return(ticket, nil)
		m.winRepo.On("GetByRoomAndPrize", ctx, "room-1", "top_line").Return(taken, nil)

		_, err := svc.ClaimPrize(ctx, "room-1", "player-1", "ticket-1", game.PrizeTopLine)
		assert.ErrorIs(t, err, ErrAlreadyClaimed)
	})

	t.Run("re-claiming your own prize is idempotent", func(t *testing.T) {
		m := newRoomMocks()
		svc := NewGameService(m.factory)

		room := activeRoom()
		room.CalledNumbers = topLineCalls
		ticket := fixtureTicket("room-1", "player-1")
		mine := &models.Winner{ID: "w1", RoomID: "room-1", TicketID: "ticket-1", UserID: "player-1", PrizeType: game.PrizeTopLine}

		m.roomRepo.On("GetByID", ctx, "room-1").Return(room, nil)
		m.tickRepo.On("GetByID", ctx, "ticket-1").Return(ticket, nil)
		m.winRepo.On("GetByRoomAndPrize", ctx, "room-1", "top_line").Return(mine, nil)

		winner, err := svc.ClaimPrize(ctx, "room-1", "player-1", "ticket-1", game.PrizeTopLine)
		require.NoError(t, err)
		assert.Equal(t, "w1", winner.ID)
		m.winRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("unknown prize type", func(t *testing.T) {
		m := newRoomMocks()
		svc := NewGameService(m.factory)

		_, err := svc.ClaimPrize(ctx, "room-1", "player-1", "ticket-1", "diagonal")
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestBuildLeaderboard(t *testing.T) {
	winners := []*models.Winner{
		{UserID: "a", UserName: "A", Amount: 4},
		{UserID: "b", UserName: "B", Amount: 4},
		{UserID: "a", UserName: "A", Amount: 20},
	}

	entries := buildLeaderboard(winners)

	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].UserID)
	assert.Equal(t, 24.0, entries[0].Winnings)
	assert.Equal(t, 2, entries[0].Prizes)
	assert.Equal(t, "b", entries[1].UserID)
	assert.Equal(t, 4.0, entries[1].Winnings)
}
