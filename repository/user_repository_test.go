package repository

import (
	"context"
	"sync"
	"testing"

	"truthchain/errs"
	"truthchain/repository/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_GetByID(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	t.Run("user not found", func(t *testing.T) {
		user, err := repo.GetByID(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("user found", func(t *testing.T) {
		created, err := repo.Create(ctx, "alice", "alice", decimal.NewFromInt(10))
		require.NoError(t, err)

		user, err := repo.GetByID(ctx, "alice")
		require.NoError(t, err)
		require.NotNil(t, user)

		assert.Equal(t, created.ID, user.ID)
		assert.Equal(t, created.Username, user.Username)
		assert.True(t, user.Balance.Equal(decimal.NewFromInt(10)))
		assert.True(t, user.AvailableBalance.Equal(decimal.NewFromInt(10)))
	})
}

func TestUserRepository_Create(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	t.Run("successful creation", func(t *testing.T) {
		user, err := repo.Create(ctx, "bob", "bob", decimal.NewFromInt(10))
		require.NoError(t, err)
		require.NotNil(t, user)

		assert.Equal(t, "bob", user.ID)
		assert.True(t, user.Balance.Equal(decimal.NewFromInt(10)))
		assert.False(t, user.CreatedAt.IsZero())
	})

	t.Run("duplicate id", func(t *testing.T) {
		_, err := repo.Create(ctx, "carol", "carol", decimal.NewFromInt(10))
		require.NoError(t, err)

		_, err = repo.Create(ctx, "carol", "other", decimal.NewFromInt(10))
		assert.Error(t, err)
	})
}

func TestUserRepository_AddBalance(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	_, err := repo.Create(ctx, "dave", "dave", decimal.NewFromInt(5))
	require.NoError(t, err)

	t.Run("adds and returns new balance", func(t *testing.T) {
		newBalance, err := repo.AddBalance(ctx, "dave", decimal.RequireFromString("2.5"))
		require.NoError(t, err)
		assert.True(t, newBalance.Equal(decimal.RequireFromString("7.5")))
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := repo.AddBalance(ctx, "missing", decimal.NewFromInt(1))
		assert.ErrorIs(t, err, errs.ErrUnknownUser)
	})

	t.Run("non-positive amount", func(t *testing.T) {
		_, err := repo.AddBalance(ctx, "dave", decimal.Zero)
		assert.ErrorIs(t, err, errs.ErrInvalidAmount)
	})
}

func TestUserRepository_DeductBalance(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	_, err := repo.Create(ctx, "erin", "erin", decimal.NewFromInt(5))
	require.NoError(t, err)

	t.Run("deducts and returns new balance", func(t *testing.T) {
		newBalance, err := repo.DeductBalance(ctx, "erin", decimal.NewFromInt(3))
		require.NoError(t, err)
		assert.True(t, newBalance.Equal(decimal.NewFromInt(2)))
	})

	t.Run("insufficient balance leaves balance unchanged", func(t *testing.T) {
		_, err := repo.DeductBalance(ctx, "erin", decimal.NewFromInt(3))
		assert.ErrorIs(t, err, errs.ErrInsufficientBalance)

		user, err := repo.GetByID(ctx, "erin")
		require.NoError(t, err)
		assert.True(t, user.Balance.Equal(decimal.NewFromInt(2)))
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := repo.DeductBalance(ctx, "missing", decimal.NewFromInt(1))
		assert.ErrorIs(t, err, errs.ErrUnknownUser)
	})
}

// Concurrent debits on the same user must serialize on the row: with a
// balance of 10 and twenty concurrent debits of 1, exactly ten succeed
// and the balance ends at zero, never negative.
func TestUserRepository_DeductBalance_Concurrent(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	_, err := repo.Create(ctx, "frank", "frank", decimal.NewFromInt(10))
	require.NoError(t, err)

	const attempts = 20
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.DeductBalance(ctx, "frank", decimal.NewFromInt(1))
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, failed int
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, errs.ErrInsufficientBalance)
			failed++
		}
	}

	assert.Equal(t, 10, succeeded)
	assert.Equal(t, 10, failed)

	user, err := repo.GetByID(ctx, "frank")
	require.NoError(t, err)
	assert.True(t, user.Balance.IsZero(), "balance must end at exactly zero, got %s", user.Balance)
}
