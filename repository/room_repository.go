package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"tambola/database"
	"tambola/models"
	"tambola/service"

	"github.com/jackc/pgx/v5"
)

const roomColumns = `id, name, host_id, host_name, room_type, password, status,
	ticket_price, min_players, max_players, prize_percents, players,
	current_players, tickets_sold, prize_pool, prize_distribution,
	called_numbers, current_number, auto_call, created_at, started_at, completed_at`

// RoomRepository implements the service.RoomRepository interface
type RoomRepository struct {
	q queryable
}

// NewRoomRepository creates a new room repository
func NewRoomRepository(db *database.DB) *RoomRepository {
	return &RoomRepository{q: db.Pool}
}

// NewRoomRepositoryScoped creates a new room repository bound to a transaction
func NewRoomRepositoryScoped(tx queryable) *RoomRepository {
	return &RoomRepository{q: tx}
}

func scanRoom(row pgx.Row) (*models.Room, error) {
	var room models.Room
	var percentsJSON, playersJSON []byte
	var distributionJSON []byte

	err := row.Scan(
		&room.ID,
		&room.Name,
		&room.HostID,
		&room.HostName,
		&room.RoomType,
		&room.Password,
		&room.Status,
		&room.TicketPrice,
		&room.MinPlayers,
		&room.MaxPlayers,
		&percentsJSON,
		&playersJSON,
		&room.CurrentPlayers,
		&room.TicketsSold,
		&room.PrizePool,
		&distributionJSON,
		&room.CalledNumbers,
		&room.CurrentNumber,
		&room.AutoCall,
		&room.CreatedAt,
		&room.StartedAt,
		&room.CompletedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(percentsJSON, &room.PrizePercents); err != nil {
		return nil, fmt.Errorf("failed to unmarshal prize percents: %w", err)
	}
	if err := json.Unmarshal(playersJSON, &room.Players); err != nil {
		return nil, fmt.Errorf("failed to unmarshal players: %w", err)
	}
	if distributionJSON != nil {
		if err := json.Unmarshal(distributionJSON, &room.PrizeDistribution); err != nil {
			return nil, fmt.Errorf("failed to unmarshal prize distribution: %w", err)
		}
	}

	return &room, nil
}

// Create inserts a new room record
func (r *RoomRepository) Create(ctx context.Context, room *models.Room) error {
	percentsJSON, err := json.Marshal(room.PrizePercents)
	if err != nil {
		return fmt.Errorf("failed to marshal prize percents: %w", err)
	}
	playersJSON, err := json.Marshal(room.Players)
	if err != nil {
		return fmt.Errorf("failed to marshal players: %w", err)
	}

	query := `
		INSERT INTO rooms (id, name, host_id, host_name, room_type, password, status,
			ticket_price, min_players, max_players, prize_percents, players,
			current_players, auto_call)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at
	`

	err = r.q.QueryRow(ctx, query,
		room.ID,
		room.Name,
		room.HostID,
		room.HostName,
		room.RoomType,
		room.Password,
		room.Status,
		room.TicketPrice,
		room.MinPlayers,
		room.MaxPlayers,
		percentsJSON,
		playersJSON,
		room.CurrentPlayers,
		room.AutoCall,
	).Scan(&room.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create room %s: %w", room.Name, err)
	}
	return nil
}

// GetByID retrieves a room by id, nil if absent
func (r *RoomRepository) GetByID(ctx context.Context, id string) (*models.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE id = $1`

	room, err := scanRoom(r.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get room %s: %w", id, err)
	}
	return room, nil
}

// List returns rooms in any of the given statuses, newest first
func (r *RoomRepository) List(ctx context.Context, statuses []models.RoomStatus, limit int) ([]*models.Room, error) {
	query := `
		SELECT ` + roomColumns + `
		FROM rooms
		WHERE status = ANY($1)
		ORDER BY created_at DESC
		LIMIT $2
	`

	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}

	rows, err := r.q.Query(ctx, query, values, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*models.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		rooms = append(rooms, room)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rooms: %w", err)
	}

	return rooms, nil
}

// AddPlayer appends a roster entry and bumps the player count
func (r *RoomRepository) AddPlayer(ctx context.Context, roomID string, player models.RoomPlayer) error {
	playerJSON, err := json.Marshal(player)
	if err != nil {
		return fmt.Errorf("failed to marshal player: %w", err)
	}

	query := `
		UPDATE rooms
		SET players = players || $1::jsonb,
		    current_players = current_players + 1
		WHERE id = $2
	`

	result, err := r.q.Exec(ctx, query, playerJSON, roomID)
	if err != nil {
		return fmt.Errorf("failed to add player to room %s: %w", roomID, err)
	}
	if result.RowsAffected() == 0 {
		return service.ErrNotFound
	}
	return nil
}

// IncrementTicketsSold bumps the sale counter and recomputes the running
// prize pool in the same statement
func (r *RoomRepository) IncrementTicketsSold(ctx context.Context, roomID string, quantity int) error {
	query := `
		UPDATE rooms
		SET tickets_sold = tickets_sold + $1,
		    prize_pool = (tickets_sold + $1) * ticket_price
		WHERE id = $2
	`

	result, err := r.q.Exec(ctx, query, quantity, roomID)
	if err != nil {
		return fmt.Errorf("failed to increment tickets sold for room %s: %w", roomID, err)
	}
	if result.RowsAffected() == 0 {
		return service.ErrNotFound
	}
	return nil
}

// SetActive transitions the room into play, freezing the computed prize
// distribution and stamping the start time
func (r *RoomRepository) SetActive(ctx context.Context, room *models.Room) error {
	distributionJSON, err := json.Marshal(room.PrizeDistribution)
	if err != nil {
		return fmt.Errorf("failed to marshal prize distribution: %w", err)
	}

	query := `
		UPDATE rooms
		SET status = 'active',
		    prize_distribution = $1,
		    started_at = NOW()
		WHERE id = $2 AND status = 'waiting'
		RETURNING started_at
	`

	err = r.q.QueryRow(ctx, query, distributionJSON, room.ID).Scan(&room.StartedAt)
	if err == pgx.ErrNoRows {
		return service.ErrInvalidState
	}
	if err != nil {
		return fmt.Errorf("failed to activate room %s: %w", room.ID, err)
	}
	room.Status = models.RoomActive
	return nil
}

// AppendCalledNumber appends to the call log and updates the current number
func (r *RoomRepository) AppendCalledNumber(ctx context.Context, roomID string, number int) error {
	query := `
		UPDATE rooms
		SET called_numbers = array_append(called_numbers, $1),
		    current_number = $1
		WHERE id = $2 AND NOT ($1 = ANY(called_numbers))
	`

	result, err := r.q.Exec(ctx, query, number, roomID)
	if err != nil {
		return fmt.Errorf("failed to append called number %d for room %s: %w", number, roomID, err)
	}
	if result.RowsAffected() == 0 {
		return service.ErrInvalidState
	}
	return nil
}

// SetCompleted flips the room to completed and stamps the finish time
func (r *RoomRepository) SetCompleted(ctx context.Context, roomID string) error {
	query := `
		UPDATE rooms
		SET status = 'completed', completed_at = NOW()
		WHERE id = $1 AND status = 'active'
	`

	result, err := r.q.Exec(ctx, query, roomID)
	if err != nil {
		return fmt.Errorf("failed to complete room %s: %w", roomID, err)
	}
	if result.RowsAffected() == 0 {
		return service.ErrInvalidState
	}
	return nil
}

// SetCancelled flips the room to cancelled
func (r *RoomRepository) SetCancelled(ctx context.Context, roomID string) error {
	query := `UPDATE rooms SET status = 'cancelled' WHERE id = $1`

	result, err := r.q.Exec(ctx, query, roomID)
	if err != nil {
		return fmt.Errorf("failed to cancel room %s: %w", roomID, err)
	}
	if result.RowsAffected() == 0 {
		return service.ErrNotFound
	}
	return nil
}

// Delete removes the room; its tickets and winners cascade
func (r *RoomRepository) Delete(ctx context.Context, roomID string) error {
	result, err := r.q.Exec(ctx, `DELETE FROM rooms WHERE id = $1`, roomID)
	if err != nil {
		return fmt.Errorf("failed to delete room %s: %w", roomID, err)
	}
	if result.RowsAffected() == 0 {
		return service.ErrNotFound
	}
	return nil
}
