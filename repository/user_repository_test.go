package repository

import (
	"context"
	"sync"
	"testing"

	"tambola/models"
	"tambola/repository/testutil"
	"tambola/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_GetByID(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	t.Run("user not found", func(t *testing.T) {
		user, err := repo.GetByID(ctx, uuid.NewString())
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("user found", func(t *testing.T) {
		testUser := testutil.CreateTestUser("alice")
		require.NoError(t, repo.Create(ctx, testUser))

		user, err := repo.GetByID(ctx, testUser.ID)
		require.NoError(t, err)
		require.NotNil(t, user)

		assert.Equal(t, testUser.Name, user.Name)
		assert.Equal(t, testUser.Email, user.Email)
		assert.Equal(t, testUser.PointsBalance, user.PointsBalance)
		assert.False(t, user.CreatedAt.IsZero())
		assert.Nil(t, user.LastLogin)
	})

	t.Run("lookup by email", func(t *testing.T) {
		testUser := testutil.CreateTestUser("bob")
		require.NoError(t, repo.Create(ctx, testUser))

		user, err := repo.GetByEmail(ctx, "bob@example.com")
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, testUser.ID, user.ID)
	})
}

func TestUserRepository_Create(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	t.Run("duplicate email rejected", func(t *testing.T) {
		first := testutil.CreateTestUser("carol")
		require.NoError(t, repo.Create(ctx, first))

		second := testutil.CreateTestUser("carol")
		assert.Error(t, repo.Create(ctx, second))
	})
}

func TestUserRepository_Points(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	t.Run("add returns new balance", func(t *testing.T) {
		user := testutil.CreateTestUserWithBalance("dave", 100)
		require.NoError(t, repo.Create(ctx, user))

		balance, err := repo.AddPoints(ctx, user.ID, 25.5)
		require.NoError(t, err)
		assert.Equal(t, 125.5, balance)
	})

	t.Run("deduct returns new balance", func(t *testing.T) {
		user := testutil.CreateTestUserWithBalance("erin", 100)
		require.NoError(t, repo.Create(ctx, user))

		balance, err := repo.DeductPoints(ctx, user.ID, 60)
		require.NoError(t, err)
		assert.Equal(t, 40.0, balance)
	})

	t.Run("deduct past zero fails without mutating", func(t *testing.T) {
		user := testutil.CreateTestUserWithBalance("frank", 50)
		require.NoError(t, repo.Create(ctx, user))

		_, err := repo.DeductPoints(ctx, user.ID, 50.01)
		assert.ErrorIs(t, err, service.ErrInsufficientBalance)

		fetched, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, 50.0, fetched.PointsBalance)
	})

	t.Run("deduct from missing user", func(t *testing.T) {
		_, err := repo.DeductPoints(ctx, uuid.NewString(), 10)
		assert.ErrorIs(t, err, service.ErrNotFound)
	})

	t.Run("concurrent deducts never overdraw", func(t *testing.T) {
		user := testutil.CreateTestUserWithBalance("grace", 100)
		require.NoError(t, repo.Create(ctx, user))

		// 20 workers race to deduct 10 each; only 10 can succeed
		var wg sync.WaitGroup
		var mu sync.Mutex
		succeeded := 0
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := repo.DeductPoints(ctx, user.ID, 10); err == nil {
					mu.Lock()
					succeeded++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 10, succeeded)

		fetched, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, 0.0, fetched.PointsBalance)
	})
}

func TestUserRepository_Stats(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	user := testutil.CreateTestUser("heidi")
	other := testutil.CreateTestUser("ivan")
	require.NoError(t, repo.Create(ctx, user))
	require.NoError(t, repo.Create(ctx, other))

	require.NoError(t, repo.RecordWin(ctx, user.ID, 75))
	require.NoError(t, repo.IncrementGamesPlayed(ctx, []string{user.ID, other.ID}))
	require.NoError(t, repo.UpdateLastLogin(ctx, user.ID))

	fetched, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, fetched.TotalWins)
	assert.Equal(t, 75.0, fetched.TotalWinnings)
	assert.Equal(t, 1, fetched.TotalGames)
	assert.NotNil(t, fetched.LastLogin)

	fetchedOther, err := repo.GetByID(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, fetchedOther.TotalGames)
	assert.Equal(t, 0, fetchedOther.TotalWins)
}

func TestTransactionRepository_LedgerConsistency(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	userRepo := NewUserRepository(testDB.DB)
	txnRepo := NewTransactionRepository(testDB.DB)
	ctx := context.Background()

	user := testutil.CreateTestUserWithBalance("judy", 0)
	require.NoError(t, userRepo.Create(ctx, user))

	record := func(amount float64, txType models.TransactionType, balanceAfter float64) {
		t.Helper()
		require.NoError(t, txnRepo.Record(ctx, &models.Transaction{
			ID:           uuid.NewString(),
			UserID:       user.ID,
			Amount:       amount,
			Type:         txType,
			Description:  "ledger test",
			BalanceAfter: balanceAfter,
		}))
	}

	balance, err := userRepo.AddPoints(ctx, user.ID, 100)
	require.NoError(t, err)
	record(100, models.TransactionCredit, balance)

	balance, err = userRepo.DeductPoints(ctx, user.ID, 30)
	require.NoError(t, err)
	record(30, models.TransactionDebit, balance)

	balance, err = userRepo.AddPoints(ctx, user.ID, 55)
	require.NoError(t, err)
	record(55, models.TransactionCredit, balance)

	// The signed sum of the trail must equal the current balance
	sum, err := txnRepo.SumSignedByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 125.0, sum)

	fetched, err := userRepo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, sum, fetched.PointsBalance)

	txns, err := txnRepo.GetByUser(ctx, user.ID, 10)
	require.NoError(t, err)
	require.Len(t, txns, 3)
	assert.Equal(t, 125.0, txns[0].BalanceAfter)
	assert.Equal(t, 55.0, txns[0].Amount)
	assert.Equal(t, -30.0, txns[1].Signed())
}
