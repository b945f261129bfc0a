package service

import (
	"context"
	"strings"

	"truthchain/errs"
	"truthchain/events"
	"truthchain/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type postService struct {
	uowFactory UnitOfWorkFactory
	ledger     LedgerService
	limits     StakeLimits
}

// NewPostService creates a new post service
func NewPostService(uowFactory UnitOfWorkFactory, ledger LedgerService, limits StakeLimits) PostService {
	return &postService{
		uowFactory: uowFactory,
		ledger:     ledger,
		limits:     limits,
	}
}

// CreatePost creates a post with the author's initial stake. The stake
// is debited through the ledger first; if the post insert then fails,
// the debit is compensated the same way a failed verify/challenge
// stake is.
func (s *postService) CreatePost(ctx context.Context, authorID, content string, stakeAmount decimal.Decimal) (*models.Post, error) {
	if strings.TrimSpace(content) == "" {
		return nil, errs.Wrap(errs.ErrInvalidAmount, "post content cannot be empty")
	}
	if stakeAmount.Sign() <= 0 || stakeAmount.LessThan(s.limits.Min) || stakeAmount.GreaterThan(s.limits.Max) {
		return nil, errs.Wrap(errs.ErrInvalidAmount, "stake %s outside [%s, %s]", stakeAmount, s.limits.Min, s.limits.Max)
	}

	postID := uuid.New().String()
	relatedType := models.RelatedTypePost

	if _, err := s.ledger.Debit(ctx, authorID, stakeAmount, models.TransactionTypePostStake, &postID, &relatedType); err != nil {
		return nil, err
	}

	post := &models.Post{
		ID:          postID,
		AuthorID:    authorID,
		Content:     content,
		StakeAmount: stakeAmount,
	}

	if err := s.insertPost(ctx, post); err != nil {
		// Compensate the author's debit
		if _, creditErr := s.ledger.Credit(ctx, authorID, stakeAmount, models.TransactionTypeStakeRefund, &postID, &relatedType); creditErr != nil {
			log.WithFields(log.Fields{
				"authorID":    authorID,
				"postID":      postID,
				"amount":      stakeAmount,
				"cause":       err,
				"creditError": creditErr,
			}).Error("Compensating credit failed after post creation failure; manual reconciliation required")
			return nil, errs.Wrap(errs.ErrReconciliationRequired,
				"post creation failed (%v) and refund failed (%v)", err, creditErr)
		}
		return nil, err
	}

	return post, nil
}

func (s *postService) insertPost(ctx context.Context, post *models.Post) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return errs.Wrap(errs.ErrStorageUnavailable, "failed to begin transaction")
	}
	defer uow.Rollback()

	if err := uow.PostRepository().Create(ctx, post); err != nil {
		return err
	}

	uow.EventBus().Publish(events.PostCreatedEvent{
		PostID:      post.ID,
		AuthorID:    post.AuthorID,
		StakeAmount: post.StakeAmount,
	})

	if err := uow.Commit(); err != nil {
		return errs.Wrap(errs.ErrStorageUnavailable, "failed to commit post")
	}

	return nil
}

// GetPostStakes returns the active stakes on a post
func (s *postService) GetPostStakes(ctx context.Context, postID string) ([]*models.StakeRecord, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, errs.Wrap(errs.ErrStorageUnavailable, "failed to begin transaction")
	}
	defer uow.Rollback()

	post, err := uow.PostRepository().GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, errs.Wrap(errs.ErrUnknownPost, "post %s", postID)
	}

	return uow.StakeRepository().GetActiveByPost(ctx, postID)
}

// RepairAggregates rebuilds a post's counters from its stake records and
// returns the repaired post. The author's own stake is not a record, so
// the operator supplies it.
func (s *postService) RepairAggregates(ctx context.Context, postID string, authorStake decimal.Decimal) (*models.Post, error) {
	if authorStake.Sign() < 0 {
		return nil, errs.Wrap(errs.ErrInvalidAmount, "author stake cannot be negative")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, errs.Wrap(errs.ErrStorageUnavailable, "failed to begin transaction")
	}
	defer uow.Rollback()

	if err := uow.PostRepository().RecomputeAggregates(ctx, postID, authorStake); err != nil {
		return nil, err
	}

	post, err := uow.PostRepository().GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, errs.Wrap(errs.ErrStorageUnavailable, "failed to commit aggregate repair")
	}

	log.WithFields(log.Fields{
		"postID":      postID,
		"authorStake": authorStake,
	}).Info("Rebuilt post aggregates from stake records")

	return post, nil
}

// GetPost retrieves a post with its aggregates
func (s *postService) GetPost(ctx context.Context, postID string) (*models.Post, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, errs.Wrap(errs.ErrStorageUnavailable, "failed to begin transaction")
	}
	defer uow.Rollback()

	post, err := uow.PostRepository().GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, errs.Wrap(errs.ErrUnknownPost, "post %s", postID)
	}

	return post, nil
}
