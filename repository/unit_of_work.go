package repository

import (
	"context"
	"fmt"

	"tambola/database"
	"tambola/events"
	"tambola/service"

	"github.com/jackc/pgx/v5"
)

// unitOfWork implements the service.UnitOfWork interface
type unitOfWork struct {
	db              *database.DB
	tx              pgx.Tx
	ctx             context.Context
	txBus           *events.TransactionalBus
	userRepo        service.UserRepository
	transactionRepo service.TransactionRepository
	roomRepo        service.RoomRepository
	ticketRepo      service.TicketRepository
	winnerRepo      service.WinnerRepository
}

type unitOfWorkFactory struct {
	db  *database.DB
	bus *events.Bus
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB, bus *events.Bus) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{db: db, bus: bus}
}

// Create creates a new UnitOfWork with a transactional event buffer
func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return &unitOfWork{
		db:    f.db,
		txBus: events.NewTransactionalBus(f.bus),
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	u.userRepo = NewUserRepositoryScoped(tx)
	u.transactionRepo = NewTransactionRepositoryScoped(tx)
	u.roomRepo = NewRoomRepositoryScoped(tx)
	u.ticketRepo = NewTicketRepositoryScoped(tx)
	u.winnerRepo = NewWinnerRepositoryScoped(tx)

	return nil
}

// Commit commits the transaction and flushes buffered events
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	err := u.tx.Commit(u.ctx)
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.tx = nil

	if err := u.txBus.Flush(u.ctx); err != nil {
		return fmt.Errorf("failed to flush events: %w", err)
	}

	return nil
}

// Rollback rolls back the transaction and discards buffered events
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil
	}

	err := u.tx.Rollback(u.ctx)
	if err != nil && err != pgx.ErrTxClosed {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	u.tx = nil
	u.txBus.Discard()

	return nil
}

// UserRepository returns the user repository for this unit of work
func (u *unitOfWork) UserRepository() service.UserRepository {
	if u.userRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.userRepo
}

// TransactionRepository returns the transaction repository for this unit of work
func (u *unitOfWork) TransactionRepository() service.TransactionRepository {
	if u.transactionRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionRepo
}

// RoomRepository returns the room repository for this unit of work
func (u *unitOfWork) RoomRepository() service.RoomRepository {
	if u.roomRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.roomRepo
}

// TicketRepository returns the ticket repository for this unit of work
func (u *unitOfWork) TicketRepository() service.TicketRepository {
	if u.ticketRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.ticketRepo
}

// WinnerRepository returns the winner repository for this unit of work
func (u *unitOfWork) WinnerRepository() service.WinnerRepository {
	if u.winnerRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.winnerRepo
}

// EventBus returns the transactional event publisher for this unit of work
func (u *unitOfWork) EventBus() service.EventPublisher {
	return u.txBus
}
