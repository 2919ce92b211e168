package repository

import (
	"context"
	"fmt"

	"tambola/database"
	"tambola/models"
	"tambola/service"

	"github.com/jackc/pgx/v5"
)

const winnerColumns = `id, room_id, user_id, user_name, ticket_id, ticket_number,
	prize_type, amount, auto_claimed, rank, claimed_at`

// WinnerRepository implements the service.WinnerRepository interface
type WinnerRepository struct {
	q queryable
}

// NewWinnerRepository creates a new winner repository
func NewWinnerRepository(db *database.DB) *WinnerRepository {
	return &WinnerRepository{q: db.Pool}
}

// NewWinnerRepositoryScoped creates a new winner repository bound to a transaction
func NewWinnerRepositoryScoped(tx queryable) *WinnerRepository {
	return &WinnerRepository{q: tx}
}

func scanWinner(row pgx.Row) (*models.Winner, error) {
	var winner models.Winner
	err := row.Scan(
		&winner.ID,
		&winner.RoomID,
		&winner.UserID,
		&winner.UserName,
		&winner.TicketID,
		&winner.TicketNumber,
		&winner.PrizeType,
		&winner.Amount,
		&winner.AutoClaimed,
		&winner.Rank,
		&winner.ClaimedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &winner, nil
}

// Create records one prize claim. The unique constraint on
// (room_id, prize_type) backstops the first-claim-wins rule.
func (r *WinnerRepository) Create(ctx context.Context, winner *models.Winner) error {
	query := `
		INSERT INTO winners (id, room_id, user_id, user_name, ticket_id, ticket_number,
			prize_type, amount, auto_claimed, rank)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (room_id, prize_type) DO NOTHING
		RETURNING claimed_at
	`

	err := r.q.QueryRow(ctx, query,
		winner.ID,
		winner.RoomID,
		winner.UserID,
		winner.UserName,
		winner.TicketID,
		winner.TicketNumber,
		winner.PrizeType,
		winner.Amount,
		winner.AutoClaimed,
		winner.Rank,
	).Scan(&winner.ClaimedAt)
	if err == pgx.ErrNoRows {
		return service.ErrAlreadyClaimed
	}
	if err != nil {
		return fmt.Errorf("failed to record winner for prize %s in room %s: %w", winner.PrizeType, winner.RoomID, err)
	}
	return nil
}

// GetByRoom returns all claims recorded in a room, in claim order
func (r *WinnerRepository) GetByRoom(ctx context.Context, roomID string) ([]*models.Winner, error) {
	query := `SELECT ` + winnerColumns + ` FROM winners WHERE room_id = $1 ORDER BY claimed_at`

	rows, err := r.q.Query(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get winners for room %s: %w", roomID, err)
	}
	defer rows.Close()

	var winners []*models.Winner
	for rows.Next() {
		winner, err := scanWinner(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan winner: %w", err)
		}
		winners = append(winners, winner)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate winners: %w", err)
	}

	return winners, nil
}

// GetByRoomAndPrize returns the claim for one prize, nil if unclaimed
func (r *WinnerRepository) GetByRoomAndPrize(ctx context.Context, roomID, prizeType string) (*models.Winner, error) {
	query := `SELECT ` + winnerColumns + ` FROM winners WHERE room_id = $1 AND prize_type = $2`

	winner, err := scanWinner(r.q.QueryRow(ctx, query, roomID, prizeType))
	if err != nil {
		return nil, fmt.Errorf("failed to get winner for prize %s in room %s: %w", prizeType, roomID, err)
	}
	return winner, nil
}

// SetRank assigns a winner's final standings position
func (r *WinnerRepository) SetRank(ctx context.Context, winnerID string, rank int) error {
	result, err := r.q.Exec(ctx, `UPDATE winners SET rank = $1 WHERE id = $2`, rank, winnerID)
	if err != nil {
		return fmt.Errorf("failed to set rank for winner %s: %w", winnerID, err)
	}
	if result.RowsAffected() == 0 {
		return service.ErrNotFound
	}
	return nil
}
