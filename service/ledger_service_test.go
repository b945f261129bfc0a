package service

import (
	"context"
	"testing"

	"truthchain/errs"
	"truthchain/events"
	"truthchain/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type ledgerFixture struct {
	factory *MockUnitOfWorkFactory
	uow     *MockUnitOfWork
	users   *MockUserRepository
	history *MockBalanceHistoryRepository
	service LedgerService
}

func newLedgerFixture() *ledgerFixture {
	f := &ledgerFixture{
		factory: &MockUnitOfWorkFactory{},
		uow:     &MockUnitOfWork{},
		users:   &MockUserRepository{},
		history: &MockBalanceHistoryRepository{},
	}
	f.uow.SetRepositories(f.users, &MockStakeRepository{}, &MockPostRepository{}, f.history)
	f.uow.On("Begin", mock.Anything).Return(nil)
	f.uow.On("Rollback").Return(nil)
	f.uow.On("Commit").Return(nil)
	f.factory.On("Create").Return(f.uow)

	f.service = NewLedgerService(f.factory)
	return f
}

func TestLedgerService_GetBalance(t *testing.T) {
	t.Run("returns the user", func(t *testing.T) {
		f := newLedgerFixture()
		ctx := context.Background()

		f.users.On("GetByID", ctx, "user1").Return(&models.User{
			ID: "user1", Balance: decimal.NewFromInt(7), AvailableBalance: decimal.NewFromInt(7),
		}, nil)

		user, err := f.service.GetBalance(ctx, "user1")
		require.NoError(t, err)
		assert.True(t, user.Balance.Equal(decimal.NewFromInt(7)))
	})

	t.Run("unknown user", func(t *testing.T) {
		f := newLedgerFixture()
		ctx := context.Background()

		f.users.On("GetByID", ctx, "ghost").Return(nil, nil)

		_, err := f.service.GetBalance(ctx, "ghost")
		assert.ErrorIs(t, err, errs.ErrUnknownUser)
	})
}

func TestLedgerService_CanStake(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()

	f.users.On("GetByID", ctx, "user1").Return(&models.User{
		ID: "user1", Balance: decimal.NewFromInt(5), AvailableBalance: decimal.NewFromInt(5),
	}, nil)

	t.Run("covered", func(t *testing.T) {
		ok, available, err := f.service.CanStake(ctx, "user1", decimal.NewFromInt(3))
		require.NoError(t, err)
		assert.True(t, ok)
		assert.True(t, available.Equal(decimal.NewFromInt(5)))
	})

	t.Run("exactly covered", func(t *testing.T) {
		ok, _, err := f.service.CanStake(ctx, "user1", decimal.NewFromInt(5))
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("not covered", func(t *testing.T) {
		ok, _, err := f.service.CanStake(ctx, "user1", decimal.NewFromInt(6))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("non-positive amount", func(t *testing.T) {
		ok, _, err := f.service.CanStake(ctx, "user1", decimal.Zero)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestLedgerService_Debit(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()

	amount := decimal.NewFromInt(3)
	stakeID := "stake-1"
	relatedType := models.RelatedTypeStake

	f.users.On("DeductBalance", ctx, "user1", amount).Return(decimal.NewFromInt(2), nil)
	f.history.On("Record", ctx, mock.MatchedBy(func(h *models.BalanceHistory) bool {
		return h.UserID == "user1" &&
			h.BalanceBefore.Equal(decimal.NewFromInt(5)) &&
			h.BalanceAfter.Equal(decimal.NewFromInt(2)) &&
			h.ChangeAmount.Equal(amount.Neg()) &&
			h.TransactionType == models.TransactionTypeVerifyStake &&
			h.RelatedID != nil && *h.RelatedID == stakeID
	})).Return(nil)

	newBalance, err := f.service.Debit(ctx, "user1", amount, models.TransactionTypeVerifyStake, &stakeID, &relatedType)
	require.NoError(t, err)
	assert.True(t, newBalance.Equal(decimal.NewFromInt(2)))

	require.Len(t, f.uow.PublishedEvents(), 1)
	change, ok := f.uow.PublishedEvents()[0].(events.BalanceChangeEvent)
	require.True(t, ok)
	assert.True(t, change.OldBalance.Equal(decimal.NewFromInt(5)))
	assert.True(t, change.NewBalance.Equal(decimal.NewFromInt(2)))

	f.history.AssertExpectations(t)
	f.uow.AssertCalled(t, "Commit")
}

func TestLedgerService_Debit_InsufficientBalance(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()

	amount := decimal.NewFromInt(3)
	f.users.On("DeductBalance", ctx, "user1", amount).
		Return(decimal.Zero, errs.Wrap(errs.ErrInsufficientBalance, "have 1, need 3"))

	_, err := f.service.Debit(ctx, "user1", amount, models.TransactionTypeVerifyStake, nil, nil)
	assert.ErrorIs(t, err, errs.ErrInsufficientBalance)

	// Nothing reaches the log when the balance update fails
	f.history.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	f.uow.AssertNotCalled(t, "Commit")
}

func TestLedgerService_Credit(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()

	amount := decimal.NewFromInt(3)
	f.users.On("AddBalance", ctx, "user1", amount).Return(decimal.NewFromInt(5), nil)
	f.history.On("Record", ctx, mock.MatchedBy(func(h *models.BalanceHistory) bool {
		return h.BalanceBefore.Equal(decimal.NewFromInt(2)) &&
			h.BalanceAfter.Equal(decimal.NewFromInt(5)) &&
			h.ChangeAmount.Equal(amount) &&
			h.TransactionType == models.TransactionTypeStakeRefund
	})).Return(nil)

	newBalance, err := f.service.Credit(ctx, "user1", amount, models.TransactionTypeStakeRefund, nil, nil)
	require.NoError(t, err)
	assert.True(t, newBalance.Equal(decimal.NewFromInt(5)))
	f.history.AssertExpectations(t)
}

func TestLedgerService_Credit_ZeroAmount(t *testing.T) {
	f := newLedgerFixture()

	_, err := f.service.Credit(context.Background(), "user1", decimal.Zero, models.TransactionTypeStakeRefund, nil, nil)
	assert.ErrorIs(t, err, errs.ErrInvalidAmount)
}

func TestLedgerService_GetTransactions(t *testing.T) {
	t.Run("returns entries", func(t *testing.T) {
		f := newLedgerFixture()
		ctx := context.Background()

		entries := []*models.BalanceHistory{
			{UserID: "user1", TransactionType: models.TransactionTypeVerifyStake},
			{UserID: "user1", TransactionType: models.TransactionTypeInitial},
		}
		f.users.On("GetByID", ctx, "user1").Return(&models.User{ID: "user1"}, nil)
		f.history.On("GetByUser", ctx, "user1", 10).Return(entries, nil)

		got, err := f.service.GetTransactions(ctx, "user1", 10)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("out-of-range limit falls back to the default", func(t *testing.T) {
		f := newLedgerFixture()
		ctx := context.Background()

		f.users.On("GetByID", ctx, "user1").Return(&models.User{ID: "user1"}, nil)
		f.history.On("GetByUser", ctx, "user1", 50).Return([]*models.BalanceHistory{}, nil)

		_, err := f.service.GetTransactions(ctx, "user1", 0)
		require.NoError(t, err)
		f.history.AssertCalled(t, "GetByUser", ctx, "user1", 50)
	})

	t.Run("unknown user", func(t *testing.T) {
		f := newLedgerFixture()
		ctx := context.Background()

		f.users.On("GetByID", ctx, "ghost").Return(nil, nil)

		_, err := f.service.GetTransactions(ctx, "ghost", 10)
		assert.ErrorIs(t, err, errs.ErrUnknownUser)
	})
}
