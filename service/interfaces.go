package service

import (
	"context"

	"tambola/events"
	"tambola/game"
	"tambola/models"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// GetByID retrieves a user by id, nil if absent
	GetByID(ctx context.Context, id string) (*models.User, error)

	// GetByEmail retrieves a user by email, nil if absent
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// Create inserts a new user record
	Create(ctx context.Context, user *models.User) error

	// AddPoints atomically increments a user's balance and returns the new value
	AddPoints(ctx context.Context, userID string, amount float64) (float64, error)

	// DeductPoints atomically decrements a user's balance, failing with
	// ErrInsufficientBalance when the pre-image balance is below amount
	DeductPoints(ctx context.Context, userID string, amount float64) (float64, error)

	// RecordWin bumps the user's aggregate win counters
	RecordWin(ctx context.Context, userID string, amount float64) error

	// IncrementGamesPlayed bumps total_games for every given user
	IncrementGamesPlayed(ctx context.Context, userIDs []string) error

	// UpdateLastLogin stamps the user's last login time
	UpdateLastLogin(ctx context.Context, userID string) error
}

// TransactionRepository defines the interface for the ledger's audit trail
type TransactionRepository interface {
	// Record appends one transaction entry
	Record(ctx context.Context, txn *models.Transaction) error

	// GetByUser returns a user's most recent transactions
	GetByUser(ctx context.Context, userID string, limit int) ([]*models.Transaction, error)

	// SumSignedByUser returns the signed sum of all of a user's transactions
	SumSignedByUser(ctx context.Context, userID string) (float64, error)
}

// RoomRepository defines the interface for room data access
type RoomRepository interface {
	Create(ctx context.Context, room *models.Room) error
	GetByID(ctx context.Context, id string) (*models.Room, error)
	List(ctx context.Context, statuses []models.RoomStatus, limit int) ([]*models.Room, error)

	// AddPlayer appends a roster entry and bumps current_players
	AddPlayer(ctx context.Context, roomID string, player models.RoomPlayer) error

	// IncrementTicketsSold bumps tickets_sold and recomputes the running
	// prize pool as tickets_sold x ticket_price in one statement
	IncrementTicketsSold(ctx context.Context, roomID string, quantity int) error

	// SetActive freezes the pool, stores the distribution and stamps start time
	SetActive(ctx context.Context, room *models.Room) error

	// AppendCalledNumber appends to the call log and sets current_number
	AppendCalledNumber(ctx context.Context, roomID string, number int) error

	// SetCompleted stamps completion and flips status
	SetCompleted(ctx context.Context, roomID string) error

	// SetCancelled flips status to cancelled
	SetCancelled(ctx context.Context, roomID string) error

	// Delete removes the room; tickets and winners cascade
	Delete(ctx context.Context, roomID string) error
}

// TicketRepository defines the interface for ticket data access
type TicketRepository interface {
	CreateBatch(ctx context.Context, tickets []*models.Ticket) error
	GetByID(ctx context.Context, id string) (*models.Ticket, error)
	GetByRoom(ctx context.Context, roomID string) ([]*models.Ticket, error)
	GetByRoomAndUser(ctx context.Context, roomID, userID string) ([]*models.Ticket, error)
	CountByRoom(ctx context.Context, roomID string) (int, error)

	// CountByRoomPerUser returns ticket counts grouped by owner, used to
	// compute refunds on room deletion
	CountByRoomPerUser(ctx context.Context, roomID string) (map[string]int, error)

	// Mark adds a called number to the ticket's marked set (idempotent)
	Mark(ctx context.Context, ticketID string, number int) error
}

// WinnerRepository defines the interface for winner claim records
type WinnerRepository interface {
	Create(ctx context.Context, winner *models.Winner) error
	GetByRoom(ctx context.Context, roomID string) ([]*models.Winner, error)
	GetByRoomAndPrize(ctx context.Context, roomID, prizeType string) (*models.Winner, error)
	SetRank(ctx context.Context, winnerID string, rank int) error
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork bundles the repositories behind one database transaction.
// Events published through EventBus are delivered only after Commit.
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	UserRepository() UserRepository
	TransactionRepository() TransactionRepository
	RoomRepository() RoomRepository
	TicketRepository() TicketRepository
	WinnerRepository() WinnerRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory creates units of work
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// UserService manages accounts and authentication state
type UserService interface {
	// Register creates an account, grants the welcome bonus, and records
	// the opening ledger entry
	Register(ctx context.Context, name, email, mobile, password string) (*models.User, error)

	// Authenticate verifies credentials and stamps last login
	Authenticate(ctx context.Context, email, password string) (*models.User, error)

	GetUser(ctx context.Context, userID string) (*models.User, error)
}

// LedgerService mutates points balances with an audit trail
type LedgerService interface {
	// Credit adds points and appends the matching ledger entry
	Credit(ctx context.Context, userID string, amount float64, description string, roomID, ticketID *string) (float64, error)

	// Debit removes points, failing with ErrInsufficientBalance when short
	Debit(ctx context.Context, userID string, amount float64, description string, roomID, ticketID *string) (float64, error)

	GetBalance(ctx context.Context, userID string) (float64, error)
	GetHistory(ctx context.Context, userID string, limit int) ([]*models.Transaction, error)
}

// RoomService manages room lifecycle outside active play
type RoomService interface {
	CreateRoom(ctx context.Context, params CreateRoomParams) (*models.Room, error)
	GetRoom(ctx context.Context, roomID string) (*models.Room, error)
	ListRooms(ctx context.Context, includeCompleted bool) ([]*models.Room, error)

	// JoinRoom adds a user to the roster; joining twice is a no-op
	JoinRoom(ctx context.Context, roomID, userID string, password string) (*models.Room, error)

	// DeleteRoom removes a room that has not started, refunding every
	// ticket sold
	DeleteRoom(ctx context.Context, roomID, requesterID string) error
}

// CreateRoomParams collects the host's room settings
type CreateRoomParams struct {
	HostID        string
	Name          string
	RoomType      models.RoomType
	Password      string
	TicketPrice   float64
	MinPlayers    int
	MaxPlayers    int
	AutoCall      bool
	PrizePercents game.PrizePercents
}

// GameService drives active play. All operations on one room are
// serialized.
type GameService interface {
	// BuyTickets sells freshly generated tickets, debiting the buyer
	BuyTickets(ctx context.Context, roomID, userID string, quantity int) ([]*models.Ticket, error)

	// StartGame transitions a waiting room into play
	StartGame(ctx context.Context, roomID, requesterID string) (*models.Room, error)

	// CallNumber calls the next number, auto-marks tickets and settles
	// any prizes that completed. A zero number draws randomly from the
	// uncalled pool; a non-zero number is called explicitly.
	CallNumber(ctx context.Context, roomID, requesterID string, number int) (*CallResult, error)

	// ClaimPrize handles an explicit player claim
	ClaimPrize(ctx context.Context, roomID, userID, ticketID string, prize game.PrizeType) (*models.Winner, error)

	GetWinners(ctx context.Context, roomID string) ([]*models.Winner, error)
	GetTickets(ctx context.Context, roomID, userID string) ([]*models.Ticket, error)
	GetLeaderboard(ctx context.Context, roomID string) ([]*models.LeaderboardEntry, error)
}

// CallResult reports the outcome of one number call
type CallResult struct {
	Number        int              `json:"number"`
	CalledNumbers []int            `json:"called_numbers"`
	Remaining     int              `json:"remaining"`
	Winners       []*models.Winner `json:"winners,omitempty"`
	GameComplete  bool             `json:"game_complete"`
}
