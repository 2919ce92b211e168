package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"tambola/database"
	"tambola/models"

	"github.com/jackc/pgx/v5"
)

const ticketColumns = `id, room_id, user_id, user_name, ticket_number, grid, numbers, marked_numbers, created_at`

// TicketRepository implements the service.TicketRepository interface
type TicketRepository struct {
	q queryable
}

// NewTicketRepository creates a new ticket repository
func NewTicketRepository(db *database.DB) *TicketRepository {
	return &TicketRepository{q: db.Pool}
}

// NewTicketRepositoryScoped creates a new ticket repository bound to a transaction
func NewTicketRepositoryScoped(tx queryable) *TicketRepository {
	return &TicketRepository{q: tx}
}

func scanTicket(row pgx.Row) (*models.Ticket, error) {
	var ticket models.Ticket
	var gridJSON []byte

	err := row.Scan(
		&ticket.ID,
		&ticket.RoomID,
		&ticket.UserID,
		&ticket.UserName,
		&ticket.TicketNumber,
		&gridJSON,
		&ticket.Numbers,
		&ticket.MarkedNumbers,
		&ticket.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(gridJSON, &ticket.Grid); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ticket grid: %w", err)
	}
	return &ticket, nil
}

// CreateBatch inserts a batch of freshly generated tickets
func (r *TicketRepository) CreateBatch(ctx context.Context, tickets []*models.Ticket) error {
	query := `
		INSERT INTO tickets (id, room_id, user_id, user_name, ticket_number, grid, numbers, marked_numbers)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`

	for _, ticket := range tickets {
		gridJSON, err := json.Marshal(ticket.Grid)
		if err != nil {
			return fmt.Errorf("failed to marshal ticket grid: %w", err)
		}

		err = r.q.QueryRow(ctx, query,
			ticket.ID,
			ticket.RoomID,
			ticket.UserID,
			ticket.UserName,
			ticket.TicketNumber,
			gridJSON,
			ticket.Numbers,
			ticket.MarkedNumbers,
		).Scan(&ticket.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create ticket %d in room %s: %w", ticket.TicketNumber, ticket.RoomID, err)
		}
	}
	return nil
}

// GetByID retrieves a ticket by id, nil if absent
func (r *TicketRepository) GetByID(ctx context.Context, id string) (*models.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1`

	ticket, err := scanTicket(r.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket %s: %w", id, err)
	}
	return ticket, nil
}

func (r *TicketRepository) queryTickets(ctx context.Context, query string, args ...any) ([]*models.Ticket, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []*models.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		tickets = append(tickets, ticket)
	}
	return tickets, rows.Err()
}

// GetByRoom returns all tickets sold in a room, in purchase order
func (r *TicketRepository) GetByRoom(ctx context.Context, roomID string) ([]*models.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE room_id = $1 ORDER BY ticket_number`

	tickets, err := r.queryTickets(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tickets for room %s: %w", roomID, err)
	}
	return tickets, nil
}

// GetByRoomAndUser returns one player's tickets in a room
func (r *TicketRepository) GetByRoomAndUser(ctx context.Context, roomID, userID string) ([]*models.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE room_id = $1 AND user_id = $2 ORDER BY ticket_number`

	tickets, err := r.queryTickets(ctx, query, roomID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tickets for user %s in room %s: %w", userID, roomID, err)
	}
	return tickets, nil
}

// CountByRoom returns the number of tickets sold in a room
func (r *TicketRepository) CountByRoom(ctx context.Context, roomID string) (int, error) {
	var count int
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM tickets WHERE room_id = $1`, roomID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count tickets for room %s: %w", roomID, err)
	}
	return count, nil
}

// CountByRoomPerUser returns ticket counts grouped by owner
func (r *TicketRepository) CountByRoomPerUser(ctx context.Context, roomID string) (map[string]int, error) {
	query := `SELECT user_id, COUNT(*) FROM tickets WHERE room_id = $1 GROUP BY user_id`

	rows, err := r.q.Query(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to count tickets per user for room %s: %w", roomID, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var userID string
		var count int
		if err := rows.Scan(&userID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan ticket count: %w", err)
		}
		counts[userID] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ticket counts: %w", err)
	}

	return counts, nil
}

// Mark adds a called number to the ticket's marked set. Marking the same
// number twice is a no-op, not an error.
func (r *TicketRepository) Mark(ctx context.Context, ticketID string, number int) error {
	query := `
		UPDATE tickets
		SET marked_numbers = array_append(marked_numbers, $2)
		WHERE id = $1
		  AND $2 = ANY(numbers)
		  AND NOT ($2 = ANY(marked_numbers))
	`

	_, err := r.q.Exec(ctx, query, ticketID, number)
	if err != nil {
		return fmt.Errorf("failed to mark number %d on ticket %s: %w", number, ticketID, err)
	}
	return nil
}
