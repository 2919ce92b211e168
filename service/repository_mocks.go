package service

import (
	"context"

	"tambola/events"
	"tambola/models"

	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) AddPoints(ctx context.Context, userID string, amount float64) (float64, error) {
	args := m.Called(ctx, userID, amount)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockUserRepository) DeductPoints(ctx context.Context, userID string, amount float64) (float64, error) {
	args := m.Called(ctx, userID, amount)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockUserRepository) RecordWin(ctx context.Context, userID string, amount float64) error {
	args := m.Called(ctx, userID, amount)
	return args.Error(0)
}

func (m *MockUserRepository) IncrementGamesPlayed(ctx context.Context, userIDs []string) error {
	args := m.Called(ctx, userIDs)
	return args.Error(0)
}

func (m *MockUserRepository) UpdateLastLogin(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// MockTransactionRepository is a mock implementation of TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Record(ctx context.Context, txn *models.Transaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByUser(ctx context.Context, userID string, limit int) ([]*models.Transaction, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) SumSignedByUser(ctx context.Context, userID string) (float64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(float64), args.Error(1)
}

// MockRoomRepository is a mock implementation of RoomRepository
type MockRoomRepository struct {
	mock.Mock
}

func (m *MockRoomRepository) Create(ctx context.Context, room *models.Room) error {
	args := m.Called(ctx, room)
	return args.Error(0)
}

func (m *MockRoomRepository) GetByID(ctx context.Context, id string) (*models.Room, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Room), args.Error(1)
}

func (m *MockRoomRepository) List(ctx context.Context, statuses []models.RoomStatus, limit int) ([]*models.Room, error) {
	args := m.Called(ctx, statuses, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Room), args.Error(1)
}

func (m *MockRoomRepository) AddPlayer(ctx context.Context, roomID string, player models.RoomPlayer) error {
	args := m.Called(ctx, roomID, player)
	return args.Error(0)
}

func (m *MockRoomRepository) IncrementTicketsSold(ctx context.Context, roomID string, quantity int) error {
	args := m.Called(ctx, roomID, quantity)
	return args.Error(0)
}

func (m *MockRoomRepository) SetActive(ctx context.Context, room *models.Room) error {
	args := m.Called(ctx, room)
	return args.Error(0)
}

func (m *MockRoomRepository) AppendCalledNumber(ctx context.Context, roomID string, number int) error {
	args := m.Called(ctx, roomID, number)
	return args.Error(0)
}

func (m *MockRoomRepository) SetCompleted(ctx context.Context, roomID string) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

func (m *MockRoomRepository) SetCancelled(ctx context.Context, roomID string) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

func (m *MockRoomRepository) Delete(ctx context.Context, roomID string) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

// MockTicketRepository is a mock implementation of TicketRepository
type MockTicketRepository struct {
	mock.Mock
}

func (m *MockTicketRepository) CreateBatch(ctx context.Context, tickets []*models.Ticket) error {
	args := m.Called(ctx, tickets)
	return args.Error(0)
}

func (m *MockTicketRepository) GetByID(ctx context.Context, id string) (*models.Ticket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ticket), args.Error(1)
}

func (m *MockTicketRepository) GetByRoom(ctx context.Context, roomID string) ([]*models.Ticket, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Ticket), args.Error(1)
}

func (m *MockTicketRepository) GetByRoomAndUser(ctx context.Context, roomID, userID string) ([]*models.Ticket, error) {
	args := m.Called(ctx, roomID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Ticket), args.Error(1)
}

func (m *MockTicketRepository) CountByRoom(ctx context.Context, roomID string) (int, error) {
	args := m.Called(ctx, roomID)
	return args.Int(0), args.Error(1)
}

func (m *MockTicketRepository) CountByRoomPerUser(ctx context.Context, roomID string) (map[string]int, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int), args.Error(1)
}

func (m *MockTicketRepository) Mark(ctx context.Context, ticketID string, number int) error {
	args := m.Called(ctx, ticketID, number)
	return args.Error(0)
}

// MockWinnerRepository is a mock implementation of WinnerRepository
type MockWinnerRepository struct {
	mock.Mock
}

func (m *MockWinnerRepository) Create(ctx context.Context, winner *models.Winner) error {
	args := m.Called(ctx, winner)
	return args.Error(0)
}

func (m *MockWinnerRepository) GetByRoom(ctx context.Context, roomID string) ([]*models.Winner, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Winner), args.Error(1)
}

func (m *MockWinnerRepository) GetByRoomAndPrize(ctx context.Context, roomID, prizeType string) (*models.Winner, error) {
	args := m.Called(ctx, roomID, prizeType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Winner), args.Error(1)
}

func (m *MockWinnerRepository) SetRank(ctx context.Context, winnerID string, rank int) error {
	args := m.Called(ctx, winnerID, rank)
	return args.Error(0)
}

// CapturingPublisher records published events for assertion. Used instead of
// a strict mock so tests can scan the stream without enumerating every
// event up front.
type CapturingPublisher struct {
	Events []events.Event
}

func (p *CapturingPublisher) Publish(event events.Event) {
	p.Events = append(p.Events, event)
}

// EventsOfType filters captured events
func (p *CapturingPublisher) EventsOfType(t events.EventType) []events.Event {
	var out []events.Event
	for _, e := range p.Events {
		if e.Type() == t {
			out = append(out, e)
		}
	}
	return out
}

// MockUnitOfWork is a mock implementation of UnitOfWork. Repository getters
// return the instances wired via SetRepositories rather than going through
// the expectation engine.
type MockUnitOfWork struct {
	mock.Mock

	userRepo        UserRepository
	transactionRepo TransactionRepository
	roomRepo        RoomRepository
	ticketRepo      TicketRepository
	winnerRepo      WinnerRepository
	publisher       *CapturingPublisher
}

// SetRepositories wires the repository mocks into this unit of work
func (m *MockUnitOfWork) SetRepositories(
	userRepo UserRepository,
	transactionRepo TransactionRepository,
	roomRepo RoomRepository,
	ticketRepo TicketRepository,
	winnerRepo WinnerRepository,
) {
	m.userRepo = userRepo
	m.transactionRepo = transactionRepo
	m.roomRepo = roomRepo
	m.ticketRepo = ticketRepo
	m.winnerRepo = winnerRepo
	m.publisher = &CapturingPublisher{}
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) UserRepository() UserRepository {
	return m.userRepo
}

func (m *MockUnitOfWork) TransactionRepository() TransactionRepository {
	return m.transactionRepo
}

func (m *MockUnitOfWork) RoomRepository() RoomRepository {
	return m.roomRepo
}

func (m *MockUnitOfWork) TicketRepository() TicketRepository {
	return m.ticketRepo
}

func (m *MockUnitOfWork) WinnerRepository() WinnerRepository {
	return m.winnerRepo
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	return m.publisher
}

// Published exposes the captured event stream
func (m *MockUnitOfWork) Published() *CapturingPublisher {
	return m.publisher
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}
