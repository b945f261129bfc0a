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

func newPostFixture() (*stakingFixture, PostService) {
	f := newStakingFixture()
	svc := NewPostService(f.factory, f.ledger, StakeLimits{
		Min: decimal.NewFromFloat(0.1),
		Max: decimal.NewFromInt(1000),
	})
	return f, svc
}

func TestPostService_CreatePost(t *testing.T) {
	amount := decimal.NewFromInt(5)

	t.Run("debits the author and inserts the post", func(t *testing.T) {
		f, svc := newPostFixture()
		ctx := context.Background()

		f.ledger.On("Debit", ctx, "author1", amount, models.TransactionTypePostStake,
			mock.AnythingOfType("*string"), mock.AnythingOfType("*models.RelatedType")).Return(decimal.NewFromInt(5), nil)
		f.posts.On("Create", ctx, mock.AnythingOfType("*models.Post")).Return(nil)

		post, err := svc.CreatePost(ctx, "author1", "the sky is blue", amount)
		require.NoError(t, err)
		assert.Equal(t, "author1", post.AuthorID)
		assert.True(t, post.StakeAmount.Equal(amount))
		assert.NotEmpty(t, post.ID)

		require.Len(t, f.uow.PublishedEvents(), 1)
		_, ok := f.uow.PublishedEvents()[0].(events.PostCreatedEvent)
		assert.True(t, ok)
		f.ledger.AssertExpectations(t)
	})

	t.Run("empty content", func(t *testing.T) {
		f, svc := newPostFixture()

		_, err := svc.CreatePost(context.Background(), "author1", "   ", amount)
		assert.ErrorIs(t, err, errs.ErrInvalidAmount)
		f.ledger.AssertNotCalled(t, "Debit", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("stake outside bounds", func(t *testing.T) {
		f, svc := newPostFixture()

		_, err := svc.CreatePost(context.Background(), "author1", "the sky is blue", decimal.NewFromInt(5000))
		assert.ErrorIs(t, err, errs.ErrInvalidAmount)
		f.ledger.AssertNotCalled(t, "Debit", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("insert failure compensates the debit", func(t *testing.T) {
		f, svc := newPostFixture()
		ctx := context.Background()

		f.ledger.On("Debit", ctx, "author1", amount, models.TransactionTypePostStake,
			mock.AnythingOfType("*string"), mock.AnythingOfType("*models.RelatedType")).Return(decimal.NewFromInt(5), nil)
		f.posts.On("Create", ctx, mock.AnythingOfType("*models.Post")).
			Return(errs.Wrap(errs.ErrStorageUnavailable, "insert failed"))
		f.ledger.On("Credit", ctx, "author1", amount, models.TransactionTypeStakeRefund,
			mock.AnythingOfType("*string"), mock.AnythingOfType("*models.RelatedType")).Return(decimal.NewFromInt(10), nil)

		_, err := svc.CreatePost(ctx, "author1", "the sky is blue", amount)
		assert.ErrorIs(t, err, errs.ErrStorageUnavailable)
		f.ledger.AssertExpectations(t)
	})

	t.Run("failed compensation escalates", func(t *testing.T) {
		f, svc := newPostFixture()
		ctx := context.Background()

		f.ledger.On("Debit", ctx, "author1", amount, models.TransactionTypePostStake,
			mock.AnythingOfType("*string"), mock.AnythingOfType("*models.RelatedType")).Return(decimal.NewFromInt(5), nil)
		f.posts.On("Create", ctx, mock.AnythingOfType("*models.Post")).
			Return(errs.Wrap(errs.ErrStorageUnavailable, "insert failed"))
		f.ledger.On("Credit", ctx, "author1", amount, models.TransactionTypeStakeRefund,
			mock.AnythingOfType("*string"), mock.AnythingOfType("*models.RelatedType")).
			Return(decimal.Zero, errs.Wrap(errs.ErrStorageUnavailable, "refund failed"))

		_, err := svc.CreatePost(ctx, "author1", "the sky is blue", amount)
		assert.ErrorIs(t, err, errs.ErrReconciliationRequired)
	})
}

func TestPostService_GetPostStakes(t *testing.T) {
	t.Run("returns active stakes", func(t *testing.T) {
		f, svc := newPostFixture()
		ctx := context.Background()

		f.posts.On("GetByID", ctx, "post1").Return(testPost("post1", "author1"), nil)
		f.stakes.On("GetActiveByPost", ctx, "post1").Return([]*models.StakeRecord{
			{ID: "stake-1", PostID: "post1", Kind: models.StakeKindVerification},
			{ID: "stake-2", PostID: "post1", Kind: models.StakeKindChallenge},
		}, nil)

		records, err := svc.GetPostStakes(ctx, "post1")
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})

	t.Run("unknown post", func(t *testing.T) {
		f, svc := newPostFixture()
		ctx := context.Background()

		f.posts.On("GetByID", ctx, "missing").Return(nil, nil)

		_, err := svc.GetPostStakes(ctx, "missing")
		assert.ErrorIs(t, err, errs.ErrUnknownPost)
		f.stakes.AssertNotCalled(t, "GetActiveByPost", mock.Anything, mock.Anything)
	})
}

func TestPostService_RepairAggregates(t *testing.T) {
	authorStake := decimal.NewFromInt(5)

	t.Run("rebuilds and returns the post", func(t *testing.T) {
		f, svc := newPostFixture()
		ctx := context.Background()

		f.posts.On("RecomputeAggregates", ctx, "post1", authorStake).Return(nil)
		f.posts.On("GetByID", ctx, "post1").Return(testPost("post1", "author1"), nil)

		post, err := svc.RepairAggregates(ctx, "post1", authorStake)
		require.NoError(t, err)
		assert.Equal(t, "post1", post.ID)
		f.uow.AssertCalled(t, "Commit")
	})

	t.Run("unknown post", func(t *testing.T) {
		f, svc := newPostFixture()
		ctx := context.Background()

		f.posts.On("RecomputeAggregates", ctx, "missing", authorStake).
			Return(errs.Wrap(errs.ErrUnknownPost, "post missing"))

		_, err := svc.RepairAggregates(ctx, "missing", authorStake)
		assert.ErrorIs(t, err, errs.ErrUnknownPost)
	})

	t.Run("negative author stake", func(t *testing.T) {
		f, svc := newPostFixture()

		_, err := svc.RepairAggregates(context.Background(), "post1", decimal.NewFromInt(-1))
		assert.ErrorIs(t, err, errs.ErrInvalidAmount)
		f.posts.AssertNotCalled(t, "RecomputeAggregates", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestPostService_GetPost(t *testing.T) {
	t.Run("returns the post", func(t *testing.T) {
		f, svc := newPostFixture()
		ctx := context.Background()

		f.posts.On("GetByID", ctx, "post1").Return(testPost("post1", "author1"), nil)

		post, err := svc.GetPost(ctx, "post1")
		require.NoError(t, err)
		assert.Equal(t, "post1", post.ID)
	})

	t.Run("unknown post", func(t *testing.T) {
		f, svc := newPostFixture()
		ctx := context.Background()

		f.posts.On("GetByID", ctx, "missing").Return(nil, nil)

		_, err := svc.GetPost(ctx, "missing")
		assert.ErrorIs(t, err, errs.ErrUnknownPost)
	})
}
