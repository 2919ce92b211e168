package repository

import (
	"context"
	"fmt"

	"tambola/database"
	"tambola/models"
	"tambola/service"

	"github.com/jackc/pgx/v5"
)

const userColumns = `id, name, email, mobile, password_hash, points_balance,
	total_games, total_wins, total_winnings, is_banned, created_at, last_login`

// UserRepository implements the service.UserRepository interface
type UserRepository struct {
	q queryable
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{q: db.Pool}
}

// NewUserRepositoryScoped creates a new user repository bound to a transaction
func NewUserRepositoryScoped(tx queryable) *UserRepository {
	return &UserRepository{q: tx}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Mobile,
		&user.PasswordHash,
		&user.PointsBalance,
		&user.TotalGames,
		&user.TotalWins,
		&user.TotalWinnings,
		&user.IsBanned,
		&user.CreatedAt,
		&user.LastLogin,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByID retrieves a user by their id
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", id, err)
	}
	return user, nil
}

// GetByEmail retrieves a user by their email address
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(r.q.QueryRow(ctx, query, email))
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email %s: %w", email, err)
	}
	return user, nil
}

// Create inserts a new user record
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, name, email, mobile, password_hash, points_balance)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	err := r.q.QueryRow(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.Mobile,
		user.PasswordHash,
		user.PointsBalance,
	).Scan(&user.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user %s: %w", user.Email, err)
	}
	return nil
}

// AddPoints atomically credits a user's balance and returns the new balance
func (r *UserRepository) AddPoints(ctx context.Context, userID string, amount float64) (float64, error) {
	query := `
		UPDATE users
		SET points_balance = points_balance + $1
		WHERE id = $2
		RETURNING points_balance
	`

	var balance float64
	err := r.q.QueryRow(ctx, query, amount, userID).Scan(&balance)
	if err == pgx.ErrNoRows {
		return 0, service.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to add %.2f points to user %s: %w", amount, userID, err)
	}
	return balance, nil
}

// DeductPoints atomically debits a user's balance. The balance check and
// the update happen in one statement so concurrent debits can never
// overdraw the account.
func (r *UserRepository) DeductPoints(ctx context.Context, userID string, amount float64) (float64, error) {
	query := `
		UPDATE users
		SET points_balance = points_balance - $1
		WHERE id = $2 AND points_balance >= $1
		RETURNING points_balance
	`

	var balance float64
	err := r.q.QueryRow(ctx, query, amount, userID).Scan(&balance)
	if err == pgx.ErrNoRows {
		// Either the user is missing or the balance is short; distinguish
		var exists bool
		if checkErr := r.q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); checkErr != nil {
			return 0, fmt.Errorf("failed to check user %s: %w", userID, checkErr)
		}
		if !exists {
			return 0, service.ErrNotFound
		}
		return 0, service.ErrInsufficientBalance
	}
	if err != nil {
		return 0, fmt.Errorf("failed to deduct %.2f points from user %s: %w", amount, userID, err)
	}
	return balance, nil
}

// RecordWin bumps the user's win counters and winnings total
func (r *UserRepository) RecordWin(ctx context.Context, userID string, amount float64) error {
	query := `
		UPDATE users
		SET total_wins = total_wins + 1,
		    total_winnings = total_winnings + $1
		WHERE id = $2
	`

	result, err := r.q.Exec(ctx, query, amount, userID)
	if err != nil {
		return fmt.Errorf("failed to record win for user %s: %w", userID, err)
	}
	if result.RowsAffected() == 0 {
		return service.ErrNotFound
	}
	return nil
}

// IncrementGamesPlayed bumps total_games for every given user
func (r *UserRepository) IncrementGamesPlayed(ctx context.Context, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}

	query := `UPDATE users SET total_games = total_games + 1 WHERE id = ANY($1)`

	if _, err := r.q.Exec(ctx, query, userIDs); err != nil {
		return fmt.Errorf("failed to increment games played: %w", err)
	}
	return nil
}

// UpdateLastLogin stamps the user's last login time
func (r *UserRepository) UpdateLastLogin(ctx context.Context, userID string) error {
	query := `UPDATE users SET last_login = NOW() WHERE id = $1`

	if _, err := r.q.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to update last login for user %s: %w", userID, err)
	}
	return nil
}
