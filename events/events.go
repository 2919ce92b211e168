package events

import (
	"context"
	"sync"

	"tambola/game"
	"tambola/models"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeRoomCreated   EventType = "room_created"
	EventTypePlayerJoined  EventType = "player_joined"
	EventTypePlayerLeft    EventType = "player_left"
	EventTypeGameStarted   EventType = "game_started"
	EventTypeNumberCalled  EventType = "number_called"
	EventTypeTicketMarked  EventType = "ticket_marked"
	EventTypePrizeClaimed  EventType = "prize_claimed"
	EventTypeGameCompleted EventType = "game_completed"
	EventTypeRoomDeleted   EventType = "room_deleted"
	EventTypePointsChanged EventType = "points_changed"
)

// Event is the base interface for all events. Room returns the room the event
// belongs to; an empty string means a lobby-wide event.
type Event interface {
	Type() EventType
	Room() string
}

// RoomCreatedEvent announces a new room to the lobby
type RoomCreatedEvent struct {
	RoomData *models.Room
}

func (e RoomCreatedEvent) Type() EventType { return EventTypeRoomCreated }
func (e RoomCreatedEvent) Room() string    { return "" }

// PlayerJoinedEvent announces a roster addition to the room
type PlayerJoinedEvent struct {
	RoomID string
	Player models.RoomPlayer
}

func (e PlayerJoinedEvent) Type() EventType { return EventTypePlayerJoined }
func (e PlayerJoinedEvent) Room() string    { return e.RoomID }

// PlayerLeftEvent announces a player disconnect to the room
type PlayerLeftEvent struct {
	RoomID string
	UserID string
}

func (e PlayerLeftEvent) Type() EventType { return EventTypePlayerLeft }
func (e PlayerLeftEvent) Room() string    { return e.RoomID }

// GameStartedEvent carries the frozen pool and per-prize distribution
type GameStartedEvent struct {
	RoomID       string
	PrizePool    float64
	Distribution map[game.PrizeType]float64
	StartedAt    string
}

func (e GameStartedEvent) Type() EventType { return EventTypeGameStarted }
func (e GameStartedEvent) Room() string    { return e.RoomID }

// NumberCalledEvent carries one number call and the full history so clients
// that missed an event can still converge.
type NumberCalledEvent struct {
	RoomID        string
	Number        int
	CalledNumbers []int
	Remaining     int
	GameComplete  bool
}

func (e NumberCalledEvent) Type() EventType { return EventTypeNumberCalled }
func (e NumberCalledEvent) Room() string    { return e.RoomID }

// TicketMarkedEvent carries one auto-marked ticket update
type TicketMarkedEvent struct {
	RoomID string
	Ticket *models.Ticket
	Number int
}

func (e TicketMarkedEvent) Type() EventType { return EventTypeTicketMarked }
func (e TicketMarkedEvent) Room() string    { return e.RoomID }

// PrizeClaimedEvent announces an adjudicated prize to the room
type PrizeClaimedEvent struct {
	RoomID string
	Winner *models.Winner
}

func (e PrizeClaimedEvent) Type() EventType { return EventTypePrizeClaimed }
func (e PrizeClaimedEvent) Room() string    { return e.RoomID }

// GameCompletedEvent carries final standings
type GameCompletedEvent struct {
	RoomID      string
	Winners     []*models.Winner
	Leaderboard []*models.LeaderboardEntry
	PrizePool   float64
	CompletedAt string
}

func (e GameCompletedEvent) Type() EventType { return EventTypeGameCompleted }
func (e GameCompletedEvent) Room() string    { return e.RoomID }

// RoomDeletedEvent announces room teardown
type RoomDeletedEvent struct {
	RoomID    string
	DeletedBy string
}

func (e RoomDeletedEvent) Type() EventType { return EventTypeRoomDeleted }
func (e RoomDeletedEvent) Room() string    { return "" }

// PointsChangedEvent notifies a single user of a balance change. Routed to the
// user's connection rather than a room.
type PointsChangedEvent struct {
	RoomID     string
	UserID     string
	NewBalance float64
	Reason     string
}

func (e PointsChangedEvent) Type() EventType { return EventTypePointsChanged }
func (e PointsChangedEvent) Room() string    { return e.RoomID }

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// SubscribeAll adds a handler for every event type. Used by the websocket hub,
// which fans all game events out to room members.
func (b *Bus) SubscribeAll(handler Handler) {
	types := []EventType{
		EventTypeRoomCreated, EventTypePlayerJoined, EventTypePlayerLeft,
		EventTypeGameStarted, EventTypeNumberCalled, EventTypeTicketMarked,
		EventTypePrizeClaimed, EventTypeGameCompleted, EventTypeRoomDeleted,
		EventTypePointsChanged,
	}
	for _, t := range types {
		b.Subscribe(t, handler)
	}
}

// Emit publishes an event to all registered handlers. Handlers run
// asynchronously; a panicking handler is logged and does not take down the
// emitter.
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	for _, handler := range handlers {
		go func(h Handler) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType": event.Type(),
						"panic":     r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler)
	}
}

// TransactionalBus stashes events until the unit of work commits, so clients
// never observe an event for a mutation that rolled back.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Flush emits pending events after a successful commit. Uses a background
// context so event delivery outlives the transaction context.
func (b *TransactionalBus) Flush(ctx context.Context) error {
	eventCtx := context.Background()
	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
	return nil
}

// Discard drops pending events after a rollback.
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
