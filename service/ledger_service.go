package service

import (
	"context"

	"truthchain/errs"
	"truthchain/events"
	"truthchain/models"

	"github.com/shopspring/decimal"
)

type ledgerService struct {
	uowFactory UnitOfWorkFactory
}

// NewLedgerService creates a new ledger service. It is the only code
// path that moves balances; every movement writes a transaction log
// entry in the same database transaction.
func NewLedgerService(uowFactory UnitOfWorkFactory) LedgerService {
	return &ledgerService{
		uowFactory: uowFactory,
	}
}

// GetBalance returns the current and available balance for a user
func (s *ledgerService) GetBalance(ctx context.Context, userID string) (*models.User, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, errs.Wrap(errs.ErrStorageUnavailable, "failed to begin transaction")
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errs.Wrap(errs.ErrUnknownUser, "user %s", userID)
	}

	return user, nil
}

// CanStake is the read-only pre-check used to enable or disable UI
// controls before the real operation is attempted.
func (s *ledgerService) CanStake(ctx context.Context, userID string, amount decimal.Decimal) (bool, decimal.Decimal, error) {
	user, err := s.GetBalance(ctx, userID)
	if err != nil {
		return false, decimal.Zero, err
	}

	canStake := amount.Sign() > 0 && user.AvailableBalance.GreaterThanOrEqual(amount)
	return canStake, user.AvailableBalance, nil
}

// Debit removes amount from the user's balance. The decrement and the
// availability guard run in a single SQL statement, so concurrent
// debits on the same user serialize and the balance cannot go negative.
func (s *ledgerService) Debit(ctx context.Context, userID string, amount decimal.Decimal, txType models.TransactionType, relatedID *string, relatedType *models.RelatedType) (decimal.Decimal, error) {
	return s.move(ctx, userID, amount.Neg(), txType, relatedID, relatedType)
}

// Credit adds amount to the user's balance
func (s *ledgerService) Credit(ctx context.Context, userID string, amount decimal.Decimal, txType models.TransactionType, relatedID *string, relatedType *models.RelatedType) (decimal.Decimal, error) {
	return s.move(ctx, userID, amount, txType, relatedID, relatedType)
}

// move applies a signed balance change and records it. Negative change
// is a debit, positive a credit.
func (s *ledgerService) move(ctx context.Context, userID string, change decimal.Decimal, txType models.TransactionType, relatedID *string, relatedType *models.RelatedType) (decimal.Decimal, error) {
	if change.IsZero() {
		return decimal.Zero, errs.Wrap(errs.ErrInvalidAmount, "change amount must be non-zero")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return decimal.Zero, errs.Wrap(errs.ErrStorageUnavailable, "failed to begin transaction")
	}
	defer uow.Rollback()

	var newBalance decimal.Decimal
	var err error
	if change.Sign() < 0 {
		newBalance, err = uow.UserRepository().DeductBalance(ctx, userID, change.Neg())
	} else {
		newBalance, err = uow.UserRepository().AddBalance(ctx, userID, change)
	}
	if err != nil {
		return decimal.Zero, err
	}

	// The repository returns the post-update balance, so the before
	// value derives from it rather than from a racy prior read.
	balanceBefore := newBalance.Sub(change)

	history := &models.BalanceHistory{
		UserID:          userID,
		BalanceBefore:   balanceBefore,
		BalanceAfter:    newBalance,
		ChangeAmount:    change,
		TransactionType: txType,
		RelatedID:       relatedID,
		RelatedType:     relatedType,
	}
	if err := uow.BalanceHistoryRepository().Record(ctx, history); err != nil {
		return decimal.Zero, err
	}

	uow.EventBus().Publish(events.BalanceChangeEvent{
		UserID:          userID,
		OldBalance:      balanceBefore,
		NewBalance:      newBalance,
		TransactionType: txType,
		ChangeAmount:    change,
	})

	if err := uow.Commit(); err != nil {
		return decimal.Zero, errs.Wrap(errs.ErrStorageUnavailable, "failed to commit transaction")
	}

	return newBalance, nil
}

// GetTransactions returns the user's recent transaction log entries
func (s *ledgerService) GetTransactions(ctx context.Context, userID string, limit int) ([]*models.BalanceHistory, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, errs.Wrap(errs.ErrStorageUnavailable, "failed to begin transaction")
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errs.Wrap(errs.ErrUnknownUser, "user %s", userID)
	}

	return uow.BalanceHistoryRepository().GetByUser(ctx, userID, limit)
}
