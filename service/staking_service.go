package service

import (
	"context"
	"errors"

	"truthchain/errs"
	"truthchain/events"
	"truthchain/metrics"
	"truthchain/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// StakeLimits are the platform bounds for a single stake
type StakeLimits struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

type stakingService struct {
	uowFactory UnitOfWorkFactory
	ledger     LedgerService
	limits     StakeLimits
}

// NewStakingService creates the stake orchestrator. The ledger and the
// record store commit independently; the orchestrator composes them and
// compensates when the second step fails after the first committed.
func NewStakingService(uowFactory UnitOfWorkFactory, ledger LedgerService, limits StakeLimits) StakingService {
	return &stakingService{
		uowFactory: uowFactory,
		ledger:     ledger,
		limits:     limits,
	}
}

// Stake places a verification or challenge stake on a post.
//
// Preconditions run in order and short-circuit: self-stake, amount
// bounds, duplicate stake, balance. Execution is debit, then record
// creation plus aggregate increments in one transaction; if the record
// step fails the debit is compensated with a credit, and if the credit
// also fails the error escalates to ErrReconciliationRequired.
func (s *stakingService) Stake(ctx context.Context, params StakeParams) (*models.StakeResult, error) {
	if !params.Kind.Valid() {
		return nil, errs.Wrap(errs.ErrInvalidAmount, "unknown stake kind %q", params.Kind)
	}
	if params.IdempotencyKey == "" {
		params.IdempotencyKey = uuid.New().String()
	}

	// Replay check: a retry after a timeout must return the original
	// outcome instead of failing with a duplicate.
	if result, err := s.replay(ctx, params); err != nil || result != nil {
		return result, err
	}

	if err := s.checkPreconditions(ctx, params); err != nil {
		return nil, err
	}

	// Step 1: debit the staker. Nothing has changed if this fails, so
	// precondition errors and transient storage errors pass through
	// verbatim and the caller may retry the transient ones.
	stakeID := uuid.New().String()
	relatedType := models.RelatedTypeStake
	newBalance, err := s.ledger.Debit(ctx, params.StakerID, params.Amount, params.Kind.TransactionType(), &stakeID, &relatedType)
	if err != nil {
		metrics.StakesRejected.WithLabelValues(rejectionReason(err)).Inc()
		return nil, err
	}

	// Step 2: create the record and bump the aggregates in one
	// transaction keyed by post_id.
	record := &models.StakeRecord{
		ID:             stakeID,
		PostID:         params.PostID,
		StakerID:       params.StakerID,
		Amount:         params.Amount,
		Kind:           params.Kind,
		Status:         models.StakeStatusActive,
		IdempotencyKey: params.IdempotencyKey,
	}
	if err := s.createRecord(ctx, record); err != nil {
		return s.compensate(ctx, params, err)
	}

	metrics.StakesPlaced.WithLabelValues(string(params.Kind)).Inc()
	return &models.StakeResult{
		Record:     record,
		NewBalance: newBalance,
	}, nil
}

// replay returns the original result when the idempotency key has
// already committed a record, nil otherwise.
func (s *stakingService) replay(ctx context.Context, params StakeParams) (*models.StakeResult, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, errs.Wrap(errs.ErrStorageUnavailable, "failed to begin transaction")
	}
	defer uow.Rollback()

	existing, err := uow.StakeRepository().GetByIdempotencyKey(ctx, params.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	user, err := s.ledger.GetBalance(ctx, params.StakerID)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"recordID":       existing.ID,
		"idempotencyKey": params.IdempotencyKey,
	}).Info("Replaying stake result for idempotency key")
	metrics.StakesReplayed.Inc()

	return &models.StakeResult{
		Record:     existing,
		NewBalance: user.Balance,
		Replayed:   true,
	}, nil
}

// checkPreconditions validates the four ordered preconditions.
// These are advisory under concurrency; the storage constraints remain
// the authority.
func (s *stakingService) checkPreconditions(ctx context.Context, params StakeParams) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return errs.Wrap(errs.ErrStorageUnavailable, "failed to begin transaction")
	}
	defer uow.Rollback()

	// 1. The post must exist and the staker must not be its author.
	post, err := uow.PostRepository().GetByID(ctx, params.PostID)
	if err != nil {
		return err
	}
	if post == nil {
		metrics.StakesRejected.WithLabelValues("unknown_post").Inc()
		return errs.Wrap(errs.ErrUnknownPost, "post %s", params.PostID)
	}
	if post.IsAuthor(params.StakerID) {
		metrics.StakesRejected.WithLabelValues("self_stake").Inc()
		return errs.Wrap(errs.ErrSelfStakeForbidden, "user %s authored post %s", params.StakerID, params.PostID)
	}

	// 2. Amount within platform bounds.
	if params.Amount.Sign() <= 0 || params.Amount.LessThan(s.limits.Min) || params.Amount.GreaterThan(s.limits.Max) {
		metrics.StakesRejected.WithLabelValues("invalid_amount").Inc()
		return errs.Wrap(errs.ErrInvalidAmount, "amount %s outside [%s, %s]", params.Amount, s.limits.Min, s.limits.Max)
	}

	// 3. No active stake by this user on this post, of either kind: a
	// user cannot double up on one side, nor back both sides at once.
	active, err := uow.StakeRepository().GetActiveByPostAndStaker(ctx, params.PostID, params.StakerID)
	if err != nil {
		return err
	}
	if len(active) > 0 {
		metrics.StakesRejected.WithLabelValues("duplicate").Inc()
		return errs.Wrap(errs.ErrDuplicateStake,
			"user %s already holds an active %s stake on post %s", params.StakerID, active[0].Kind, params.PostID)
	}

	// 4. Sufficient available balance. The debit re-checks this
	// atomically; failing early here gives the UI a clean error without
	// touching the ledger.
	staker, err := uow.UserRepository().GetByID(ctx, params.StakerID)
	if err != nil {
		return err
	}
	if staker == nil {
		metrics.StakesRejected.WithLabelValues("unknown_user").Inc()
		return errs.Wrap(errs.ErrUnknownUser, "user %s", params.StakerID)
	}
	if staker.AvailableBalance.LessThan(params.Amount) {
		metrics.StakesRejected.WithLabelValues("insufficient_balance").Inc()
		return errs.Wrap(errs.ErrInsufficientBalance,
			"have %s available, need %s", staker.AvailableBalance, params.Amount)
	}

	return nil
}

// createRecord commits the stake record and the aggregate increments as
// one transaction.
func (s *stakingService) createRecord(ctx context.Context, record *models.StakeRecord) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return errs.Wrap(errs.ErrStorageUnavailable, "failed to begin transaction")
	}
	defer uow.Rollback()

	if err := uow.StakeRepository().Create(ctx, record); err != nil {
		return err
	}

	if err := uow.PostRepository().ApplyStakeDelta(ctx, record.PostID, record.Kind, record.Amount, 1); err != nil {
		return err
	}

	uow.EventBus().Publish(events.StakePlacedEvent{
		RecordID: record.ID,
		PostID:   record.PostID,
		StakerID: record.StakerID,
		Amount:   record.Amount,
		Kind:     record.Kind,
	})

	if err := uow.Commit(); err != nil {
		return errs.Wrap(errs.ErrStorageUnavailable, "failed to commit stake record")
	}

	return nil
}

// compensate undoes the debit after a failed record creation. Before
// refunding it re-checks the idempotency key: the record transaction may
// have committed even though the call returned an error (timeout), and a
// refund on top of a committed record would double-credit the staker.
func (s *stakingService) compensate(ctx context.Context, params StakeParams, cause error) (*models.StakeResult, error) {
	if result, err := s.replay(ctx, params); err == nil && result != nil {
		return result, nil
	}

	relatedType := models.RelatedTypeStake
	_, creditErr := s.ledger.Credit(ctx, params.StakerID, params.Amount, models.TransactionTypeStakeRefund, nil, &relatedType)
	if creditErr != nil {
		// The one unrecoverable case: debited but neither recorded nor
		// refunded. Surface loudly for operator review.
		log.WithFields(log.Fields{
			"userID":         params.StakerID,
			"postID":         params.PostID,
			"amount":         params.Amount,
			"idempotencyKey": params.IdempotencyKey,
			"cause":          cause,
			"creditError":    creditErr,
		}).Error("Compensating credit failed; manual reconciliation required")
		metrics.ReconciliationRequired.Inc()

		s.publishReconciliation(ctx, params, cause)
		return nil, errs.Wrap(errs.ErrReconciliationRequired,
			"stake failed (%v) and refund failed (%v)", cause, creditErr)
	}

	metrics.CompensationsApplied.Inc()
	log.WithFields(log.Fields{
		"userID": params.StakerID,
		"postID": params.PostID,
		"amount": params.Amount,
	}).Warn("Stake record creation failed; debit compensated")

	return nil, cause
}

// publishReconciliation emits the operator event outside any unit of
// work; there is no transaction left to couple it to.
func (s *stakingService) publishReconciliation(ctx context.Context, params StakeParams, cause error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return
	}
	defer uow.Rollback()

	uow.EventBus().Publish(events.ReconciliationRequiredEvent{
		UserID:         params.StakerID,
		PostID:         params.PostID,
		Amount:         params.Amount,
		IdempotencyKey: params.IdempotencyKey,
		Reason:         cause.Error(),
	})
	uow.Commit()
}

// ReverseStake refunds an active stake: the record flips to reversed
// and the aggregates decrement in one transaction, then the ledger
// credits the staker.
func (s *stakingService) ReverseStake(ctx context.Context, recordID string) (*models.StakeRecord, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, errs.Wrap(errs.ErrStorageUnavailable, "failed to begin transaction")
	}
	defer uow.Rollback()

	record, err := uow.StakeRepository().GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, errs.Wrap(errs.ErrUnknownStake, "stake record %s", recordID)
	}
	if !record.IsActive() {
		return nil, errs.Wrap(errs.ErrStakeNotActive, "stake record %s", recordID)
	}

	reversed, err := uow.StakeRepository().Reverse(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if !reversed {
		// Lost a race with a concurrent reversal
		return nil, errs.Wrap(errs.ErrStakeNotActive, "stake record %s", recordID)
	}

	if err := uow.PostRepository().ApplyStakeDelta(ctx, record.PostID, record.Kind, record.Amount, -1); err != nil {
		return nil, err
	}

	uow.EventBus().Publish(events.StakeReversedEvent{
		RecordID: record.ID,
		PostID:   record.PostID,
		StakerID: record.StakerID,
		Amount:   record.Amount,
		Kind:     record.Kind,
	})

	if err := uow.Commit(); err != nil {
		return nil, errs.Wrap(errs.ErrStorageUnavailable, "failed to commit stake reversal")
	}

	record.Status = models.StakeStatusReversed

	relatedType := models.RelatedTypeStake
	if _, err := s.ledger.Credit(ctx, record.StakerID, record.Amount, models.TransactionTypeStakeRefund, &record.ID, &relatedType); err != nil {
		log.WithFields(log.Fields{
			"recordID": recordID,
			"userID":   record.StakerID,
			"amount":   record.Amount,
			"error":    err,
		}).Error("Refund credit failed after stake reversal; manual reconciliation required")
		metrics.ReconciliationRequired.Inc()
		return nil, errs.Wrap(errs.ErrReconciliationRequired, "stake %s reversed but refund failed (%v)", recordID, err)
	}

	return record, nil
}

// rejectionReason maps an error kind to a metrics label
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, errs.ErrSelfStakeForbidden):
		return "self_stake"
	case errors.Is(err, errs.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, errs.ErrDuplicateStake):
		return "duplicate"
	case errors.Is(err, errs.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, errs.ErrUnknownUser):
		return "unknown_user"
	default:
		return "storage"
	}
}
