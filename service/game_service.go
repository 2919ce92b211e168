package service

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"tambola/config"
	"tambola/events"
	"tambola/game"
	"tambola/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type gameService struct {
	uowFactory UnitOfWorkFactory

	// roomLocks serializes all play operations per room. Buy, start, call
	// and claim for one room never interleave; different rooms proceed in
	// parallel.
	roomLocks sync.Map

	rngMu sync.Mutex
	rng   *rand.Rand

	// autoCallers tracks cancel functions for running auto-call loops
	autoCallers sync.Map
}

// NewGameService creates a new game service
func NewGameService(uowFactory UnitOfWorkFactory) GameService {
	return &gameService{
		uowFactory: uowFactory,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *gameService) lockRoom(roomID string) func() {
	v, _ := s.roomLocks.LoadOrStore(roomID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// BuyTickets sells freshly generated tickets to a roster member, debiting
// the full purchase price first. The debit, the tickets and the pool update
// commit together; a failed generation refunds by rollback.
func (s *gameService) BuyTickets(ctx context.Context, roomID, userID string, quantity int) ([]*models.Ticket, error) {
	cfg := config.Get()
	if quantity < 1 || quantity > cfg.MaxTicketsPerBuy {
		return nil, validationf("quantity must be between 1 and %d", cfg.MaxTicketsPerBuy)
	}

	unlock := s.lockRoom(roomID)
	defer unlock()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	room, err := uow.RoomRepository().GetByID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	if room == nil {
		return nil, ErrNotFound
	}
	if room.Status != models.RoomWaiting {
		return nil, statef("tickets can only be bought before the game starts")
	}
	if !room.HasPlayer(userID) {
		return nil, ErrNotAuthorized
	}

	user, err := uow.UserRepository().GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrNotFound
	}
	if user.IsBanned {
		return nil, ErrBanned
	}

	cost := float64(quantity) * room.TicketPrice
	if cost > 0 {
		description := fmt.Sprintf("bought %d ticket(s) in %s", quantity, room.Name)
		if _, err := debitInUow(ctx, uow, userID, cost, description, &roomID, nil); err != nil {
			return nil, err
		}
	}

	sold, err := uow.TicketRepository().CountByRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to count tickets: %w", err)
	}

	tickets := make([]*models.Ticket, 0, quantity)
	for i := 0; i < quantity; i++ {
		s.rngMu.Lock()
		grid, numbers := game.Generate(s.rng)
		s.rngMu.Unlock()

		tickets = append(tickets, &models.Ticket{
			ID:            uuid.NewString(),
			RoomID:        roomID,
			UserID:        user.ID,
			UserName:      user.Name,
			TicketNumber:  sold + i + 1,
			Grid:          grid,
			Numbers:       numbers,
			MarkedNumbers: []int{},
		})
	}
	if err := uow.TicketRepository().CreateBatch(ctx, tickets); err != nil {
		return nil, fmt.Errorf("failed to create tickets: %w", err)
	}

	if err := uow.RoomRepository().IncrementTicketsSold(ctx, roomID, quantity); err != nil {
		return nil, fmt.Errorf("failed to update tickets sold: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return tickets, nil
}

// StartGame transitions a waiting room into play. The prize pool and its
// per-prize distribution freeze at this moment; later joins cannot buy in.
func (s *gameService) StartGame(ctx context.Context, roomID, requesterID string) (*models.Room, error) {
	unlock := s.lockRoom(roomID)
	defer unlock()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	room, err := uow.RoomRepository().GetByID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	if room == nil {
		return nil, ErrNotFound
	}
	if room.HostID != requesterID {
		return nil, ErrNotAuthorized
	}
	if room.Status != models.RoomWaiting {
		return nil, statef("room is %s", room.Status)
	}
	if room.CurrentPlayers < room.MinPlayers {
		return nil, statef("need at least %d players, have %d", room.MinPlayers, room.CurrentPlayers)
	}
	if room.TicketsSold == 0 {
		return nil, statef("no tickets sold")
	}

	room.PrizeDistribution = game.ComputeDistribution(room.PrizePool, room.PrizePercents)
	if err := uow.RoomRepository().SetActive(ctx, room); err != nil {
		return nil, fmt.Errorf("failed to activate room: %w", err)
	}

	startedAt := time.Now()
	if room.StartedAt != nil {
		startedAt = *room.StartedAt
	}
	uow.EventBus().Publish(events.GameStartedEvent{
		RoomID:       roomID,
		PrizePool:    room.PrizePool,
		Distribution: room.PrizeDistribution,
		StartedAt:    startedAt.Format(time.RFC3339),
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if room.AutoCall {
		s.startAutoCaller(roomID, requesterID)
	}

	return room, nil
}

// CallNumber calls one number (random when number is zero), marks it on
// every ticket that carries it, and settles any prize that just completed.
// The game ends when the full house is claimed or all 90 numbers are out.
func (s *gameService) CallNumber(ctx context.Context, roomID, requesterID string, number int) (*CallResult, error) {
	unlock := s.lockRoom(roomID)
	defer unlock()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	room, err := uow.RoomRepository().GetByID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	if room == nil {
		return nil, ErrNotFound
	}
	if room.HostID != requesterID {
		return nil, ErrNotAuthorized
	}
	if room.Status != models.RoomActive {
		return nil, statef("room is %s", room.Status)
	}
	if len(room.CalledNumbers) >= game.MaxNumber {
		return nil, statef("all numbers have been called")
	}

	if number == 0 {
		number = s.drawNumber(room.CalledNumbers)
	} else {
		if number < 1 || number > game.MaxNumber {
			return nil, validationf("number must be between 1 and %d", game.MaxNumber)
		}
		if room.HasCalled(number) {
			return nil, validationf("number %d has already been called", number)
		}
	}
	if err := uow.RoomRepository().AppendCalledNumber(ctx, roomID, number); err != nil {
		return nil, fmt.Errorf("failed to record call: %w", err)
	}
	called := append(room.CalledNumbers, number)

	tickets, err := uow.TicketRepository().GetByRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tickets: %w", err)
	}

	// Auto-mark every ticket carrying the number
	for _, ticket := range tickets {
		if !ticket.HasNumber(number) || ticket.IsMarked(number) {
			continue
		}
		if err := uow.TicketRepository().Mark(ctx, ticket.ID, number); err != nil {
			return nil, fmt.Errorf("failed to mark ticket: %w", err)
		}
		ticket.MarkedNumbers = append(ticket.MarkedNumbers, number)
		uow.EventBus().Publish(events.TicketMarkedEvent{RoomID: roomID, Ticket: ticket, Number: number})
	}

	winners, err := s.settlePrizes(ctx, uow, room, tickets, called)
	if err != nil {
		return nil, err
	}

	fullHouseDone := false
	for _, w := range winners {
		if w.PrizeType == game.PrizeFullHouse {
			fullHouseDone = true
		}
	}

	complete := fullHouseDone || len(called) >= game.MaxNumber
	if complete {
		if err := s.completeGame(ctx, uow, room, called); err != nil {
			return nil, err
		}
	}

	uow.EventBus().Publish(events.NumberCalledEvent{
		RoomID:        roomID,
		Number:        number,
		CalledNumbers: called,
		Remaining:     game.MaxNumber - len(called),
		GameComplete:  complete,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if complete {
		s.stopAutoCaller(roomID)
	}

	return &CallResult{
		Number:        number,
		CalledNumbers: called,
		Remaining:     game.MaxNumber - len(called),
		Winners:       winners,
		GameComplete:  complete,
	}, nil
}

// drawNumber picks a uniformly random uncalled number
func (s *gameService) drawNumber(called []int) int {
	seen := make(map[int]bool, len(called))
	for _, n := range called {
		seen[n] = true
	}
	pool := make([]int, 0, game.MaxNumber-len(called))
	for n := 1; n <= game.MaxNumber; n++ {
		if !seen[n] {
			pool = append(pool, n)
		}
	}

	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return pool[s.rng.Intn(len(pool))]
}

// settlePrizes checks every unclaimed prize against every ticket, in prize
// precedence order. Ticket order breaks ties, so the lowest ticket number
// wins when one call completes the same pattern on several tickets.
func (s *gameService) settlePrizes(ctx context.Context, uow UnitOfWork, room *models.Room, tickets []*models.Ticket, called []int) ([]*models.Winner, error) {
	existing, err := uow.WinnerRepository().GetByRoom(ctx, room.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get winners: %w", err)
	}
	claimed := make(map[game.PrizeType]bool, len(existing))
	for _, w := range existing {
		claimed[w.PrizeType] = true
	}

	var winners []*models.Winner
	for _, prize := range game.PrizeOrder {
		if claimed[prize] {
			continue
		}
		for _, ticket := range tickets {
			if !game.IsWinner(ticket.Grid, ticket.Numbers, called, prize) {
				continue
			}
			winner, err := s.awardPrize(ctx, uow, room, ticket, prize, true)
			if err != nil {
				return nil, err
			}
			winners = append(winners, winner)
			break
		}
	}
	return winners, nil
}

// awardPrize records the claim and credits the payout in the open unit of
// work. The winners table's uniqueness on (room, prize) is the final
// arbiter when two paths race.
func (s *gameService) awardPrize(ctx context.Context, uow UnitOfWork, room *models.Room, ticket *models.Ticket, prize game.PrizeType, auto bool) (*models.Winner, error) {
	amount := room.PrizeDistribution[prize]

	winner := &models.Winner{
		ID:           uuid.NewString(),
		RoomID:       room.ID,
		UserID:       ticket.UserID,
		UserName:     ticket.UserName,
		TicketID:     ticket.ID,
		TicketNumber: ticket.TicketNumber,
		PrizeType:    prize,
		Amount:       amount,
		AutoClaimed:  auto,
	}
	if err := uow.WinnerRepository().Create(ctx, winner); err != nil {
		return nil, err
	}

	if amount > 0 {
		description := fmt.Sprintf("won %s in %s", prize, room.Name)
		if _, err := creditInUow(ctx, uow, ticket.UserID, amount, description, &room.ID, &ticket.ID); err != nil {
			return nil, err
		}
	}
	if err := uow.UserRepository().RecordWin(ctx, ticket.UserID, amount); err != nil {
		return nil, fmt.Errorf("failed to record win: %w", err)
	}

	uow.EventBus().Publish(events.PrizeClaimedEvent{RoomID: room.ID, Winner: winner})

	return winner, nil
}

// completeGame finalizes standings and closes the room
func (s *gameService) completeGame(ctx context.Context, uow UnitOfWork, room *models.Room, called []int) error {
	winners, err := uow.WinnerRepository().GetByRoom(ctx, room.ID)
	if err != nil {
		return fmt.Errorf("failed to get winners: %w", err)
	}

	// Final ranks follow prize precedence
	sort.SliceStable(winners, func(i, j int) bool {
		return game.PrizeRank(winners[i].PrizeType) < game.PrizeRank(winners[j].PrizeType)
	})
	for i, w := range winners {
		w.Rank = i + 1
		if err := uow.WinnerRepository().SetRank(ctx, w.ID, w.Rank); err != nil {
			return fmt.Errorf("failed to set rank: %w", err)
		}
	}

	playerIDs := make([]string, 0, len(room.Players))
	for _, p := range room.Players {
		playerIDs = append(playerIDs, p.ID)
	}
	if err := uow.UserRepository().IncrementGamesPlayed(ctx, playerIDs); err != nil {
		return fmt.Errorf("failed to update player stats: %w", err)
	}

	if err := uow.RoomRepository().SetCompleted(ctx, room.ID); err != nil {
		return fmt.Errorf("failed to complete room: %w", err)
	}

	uow.EventBus().Publish(events.GameCompletedEvent{
		RoomID:      room.ID,
		Winners:     winners,
		Leaderboard: buildLeaderboard(winners),
		PrizePool:   room.PrizePool,
		CompletedAt: time.Now().Format(time.RFC3339),
	})

	return nil
}

// ClaimPrize handles an explicit claim from a player. Valid claims produce
// the same award as auto-detection; a claim for a prize someone already
// holds returns ErrAlreadyClaimed.
func (s *gameService) ClaimPrize(ctx context.Context, roomID, userID, ticketID string, prize game.PrizeType) (*models.Winner, error) {
	if !game.ValidPrizeType(string(prize)) {
		return nil, validationf("unknown prize type %q", prize)
	}

	unlock := s.lockRoom(roomID)
	defer unlock()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	room, err := uow.RoomRepository().GetByID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	if room == nil {
		return nil, ErrNotFound
	}
	if room.Status != models.RoomActive {
		return nil, statef("room is %s", room.Status)
	}

	ticket, err := uow.TicketRepository().GetByID(ctx, ticketID)
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	if ticket == nil || ticket.RoomID != roomID {
		return nil, ErrNotFound
	}
	if ticket.UserID != userID {
		return nil, ErrNotAuthorized
	}

	existing, err := uow.WinnerRepository().GetByRoomAndPrize(ctx, roomID, string(prize))
	if err != nil {
		return nil, fmt.Errorf("failed to check existing claim: %w", err)
	}
	if existing != nil {
		// Re-claiming your own prize is idempotent
		if existing.TicketID == ticketID {
			return existing, nil
		}
		return nil, ErrAlreadyClaimed
	}

	if !game.IsWinner(ticket.Grid, ticket.Numbers, room.CalledNumbers, prize) {
		return nil, validationf("ticket %d does not complete %s", ticket.TicketNumber, prize)
	}

	winner, err := s.awardPrize(ctx, uow, room, ticket, prize, false)
	if err != nil {
		return nil, err
	}

	complete := prize == game.PrizeFullHouse
	if complete {
		if err := s.completeGame(ctx, uow, room, room.CalledNumbers); err != nil {
			return nil, err
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if complete {
		s.stopAutoCaller(roomID)
	}

	return winner, nil
}

// GetWinners returns the room's claim records
func (s *gameService) GetWinners(ctx context.Context, roomID string) ([]*models.Winner, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	winners, err := uow.WinnerRepository().GetByRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get winners: %w", err)
	}
	return winners, nil
}

// GetTickets returns one player's tickets in a room
func (s *gameService) GetTickets(ctx context.Context, roomID, userID string) ([]*models.Ticket, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	tickets, err := uow.TicketRepository().GetByRoomAndUser(ctx, roomID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tickets: %w", err)
	}
	return tickets, nil
}

// GetLeaderboard returns the room's standings by winnings
func (s *gameService) GetLeaderboard(ctx context.Context, roomID string) ([]*models.LeaderboardEntry, error) {
	winners, err := s.GetWinners(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return buildLeaderboard(winners), nil
}

// buildLeaderboard aggregates winners into per-user standings, ordered by
// winnings descending
func buildLeaderboard(winners []*models.Winner) []*models.LeaderboardEntry {
	byUser := make(map[string]*models.LeaderboardEntry)
	var order []string
	for _, w := range winners {
		entry, ok := byUser[w.UserID]
		if !ok {
			entry = &models.LeaderboardEntry{UserID: w.UserID, UserName: w.UserName}
			byUser[w.UserID] = entry
			order = append(order, w.UserID)
		}
		entry.Winnings += w.Amount
		entry.Prizes++
	}

	entries := make([]*models.LeaderboardEntry, 0, len(order))
	for _, id := range order {
		entries = append(entries, byUser[id])
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Winnings > entries[j].Winnings
	})
	return entries
}

// startAutoCaller launches a ticker loop that calls numbers on the host's
// behalf until the game completes
func (s *gameService) startAutoCaller(roomID, hostID string) {
	ctx, cancel := context.WithCancel(context.Background())
	if _, loaded := s.autoCallers.LoadOrStore(roomID, cancel); loaded {
		cancel()
		return
	}

	interval := config.Get().AutoCallInterval
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				result, err := s.CallNumber(ctx, roomID, hostID, 0)
				if err != nil {
					log.WithFields(log.Fields{
						"roomID": roomID,
						"error":  err,
					}).Warn("Auto caller stopping")
					s.stopAutoCaller(roomID)
					return
				}
				if result.GameComplete {
					return
				}
			}
		}
	}()
}

// stopAutoCaller cancels a room's auto-call loop if one is running
func (s *gameService) stopAutoCaller(roomID string) {
	if v, loaded := s.autoCallers.LoadAndDelete(roomID); loaded {
		v.(context.CancelFunc)()
	}
}
