package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tambola/config"
	"tambola/events"
	"tambola/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type roomService struct {
	uowFactory UnitOfWorkFactory
}

// NewRoomService creates a new room service
func NewRoomService(uowFactory UnitOfWorkFactory) RoomService {
	return &roomService{uowFactory: uowFactory}
}

// CreateRoom validates the host's settings and creates a waiting room with
// the host as its first player.
func (s *roomService) CreateRoom(ctx context.Context, params CreateRoomParams) (*models.Room, error) {
	cfg := config.Get()

	params.Name = strings.TrimSpace(params.Name)
	if params.Name == "" {
		return nil, validationf("room name is required")
	}
	if params.TicketPrice < cfg.TicketPriceMin || params.TicketPrice > cfg.TicketPriceMax {
		return nil, validationf("ticket price must be between %.0f and %.0f", cfg.TicketPriceMin, cfg.TicketPriceMax)
	}
	if params.MinPlayers <= 0 {
		params.MinPlayers = cfg.DefaultMinPlayers
	}
	if params.MaxPlayers <= 0 {
		params.MaxPlayers = cfg.DefaultMaxPlayers
	}
	if params.MinPlayers > params.MaxPlayers {
		return nil, validationf("min players %d exceeds max players %d", params.MinPlayers, params.MaxPlayers)
	}
	if params.RoomType == "" {
		params.RoomType = models.RoomPublic
	}
	if params.RoomType != models.RoomPublic && params.RoomType != models.RoomPrivate {
		return nil, validationf("unknown room type %q", params.RoomType)
	}
	if params.RoomType == models.RoomPrivate && params.Password == "" {
		return nil, validationf("private rooms require a password")
	}
	if params.PrizePercents == nil {
		params.PrizePercents = cfg.PrizePercents
	}
	if err := params.PrizePercents.Validate(); err != nil {
		return nil, validationf("invalid prize table: %v", err)
	}

	var passwordHash *string
	if params.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash room password: %w", err)
		}
		h := string(hash)
		passwordHash = &h
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	host, err := uow.UserRepository().GetByID(ctx, params.HostID)
	if err != nil {
		return nil, fmt.Errorf("failed to get host: %w", err)
	}
	if host == nil {
		return nil, ErrNotFound
	}
	if host.IsBanned {
		return nil, ErrBanned
	}

	room := &models.Room{
		ID:            uuid.NewString(),
		Name:          params.Name,
		HostID:        host.ID,
		HostName:      host.Name,
		RoomType:      params.RoomType,
		Password:      passwordHash,
		Status:        models.RoomWaiting,
		TicketPrice:   params.TicketPrice,
		MinPlayers:    params.MinPlayers,
		MaxPlayers:    params.MaxPlayers,
		PrizePercents: params.PrizePercents,
		Players: []models.RoomPlayer{
			{ID: host.ID, Name: host.Name, JoinedAt: time.Now()},
		},
		CurrentPlayers: 1,
		CalledNumbers:  []int{},
		AutoCall:       params.AutoCall,
	}
	if err := uow.RoomRepository().Create(ctx, room); err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	uow.EventBus().Publish(events.RoomCreatedEvent{RoomData: room})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return room, nil
}

// GetRoom returns a room by id
func (s *roomService) GetRoom(ctx context.Context, roomID string) (*models.Room, error) {
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
	return room, nil
}

// ListRooms returns joinable rooms, optionally including recent completed ones
func (s *roomService) ListRooms(ctx context.Context, includeCompleted bool) ([]*models.Room, error) {
	statuses := []models.RoomStatus{models.RoomWaiting, models.RoomActive}
	if includeCompleted {
		statuses = append(statuses, models.RoomCompleted)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	rooms, err := uow.RoomRepository().List(ctx, statuses, 100)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	return rooms, nil
}

// JoinRoom adds a user to the room roster. Rejoining is a no-op so a
// reconnect never errors.
func (s *roomService) JoinRoom(ctx context.Context, roomID, userID string, password string) (*models.Room, error) {
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

	if room.HasPlayer(userID) {
		return room, nil
	}

	if room.Status != models.RoomWaiting && room.Status != models.RoomActive {
		return nil, statef("room is %s", room.Status)
	}
	if room.CurrentPlayers >= room.MaxPlayers {
		return nil, statef("room is full")
	}
	if room.Password != nil {
		if err := bcrypt.CompareHashAndPassword([]byte(*room.Password), []byte(password)); err != nil {
			return nil, ErrNotAuthorized
		}
	}

	player := models.RoomPlayer{ID: user.ID, Name: user.Name, JoinedAt: time.Now()}
	if err := uow.RoomRepository().AddPlayer(ctx, roomID, player); err != nil {
		return nil, fmt.Errorf("failed to add player: %w", err)
	}
	room.Players = append(room.Players, player)
	room.CurrentPlayers++

	uow.EventBus().Publish(events.PlayerJoinedEvent{RoomID: roomID, Player: player})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return room, nil
}

// DeleteRoom tears down a room that has not started. Every ticket sold is
// refunded at face value before the row is removed; tickets and winners
// cascade with the room.
func (s *roomService) DeleteRoom(ctx context.Context, roomID, requesterID string) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	room, err := uow.RoomRepository().GetByID(ctx, roomID)
	if err != nil {
		return fmt.Errorf("failed to get room: %w", err)
	}
	if room == nil {
		return ErrNotFound
	}
	if room.HostID != requesterID {
		return ErrNotAuthorized
	}
	if room.Status == models.RoomActive {
		return statef("cannot delete a room mid-game")
	}

	if room.Status == models.RoomWaiting && room.TicketPrice > 0 {
		counts, err := uow.TicketRepository().CountByRoomPerUser(ctx, roomID)
		if err != nil {
			return fmt.Errorf("failed to count tickets for refund: %w", err)
		}
		for ownerID, count := range counts {
			refund := float64(count) * room.TicketPrice
			if _, err := creditInUow(ctx, uow, ownerID, refund, "room cancelled refund", &roomID, nil); err != nil {
				return fmt.Errorf("failed to refund user %s: %w", ownerID, err)
			}
		}
	}

	if err := uow.RoomRepository().Delete(ctx, roomID); err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}

	uow.EventBus().Publish(events.RoomDeletedEvent{RoomID: roomID, DeletedBy: requesterID})

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
