package service

import (
	"context"

	"truthchain/errs"
	"truthchain/events"
	"truthchain/models"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type userService struct {
	uowFactory   UnitOfWorkFactory
	welcomeBonus decimal.Decimal
}

// NewUserService creates a new user service
func NewUserService(uowFactory UnitOfWorkFactory, welcomeBonus decimal.Decimal) UserService {
	return &userService{
		uowFactory:   uowFactory,
		welcomeBonus: welcomeBonus,
	}
}

// GetOrCreateUser retrieves an existing user or creates a new one with
// the welcome bonus. The grant is recorded as an "initial" transaction
// in the same transaction that creates the profile.
func (s *userService) GetOrCreateUser(ctx context.Context, userID, username string) (*models.User, error) {
	if userID == "" {
		return nil, errs.Wrap(errs.ErrUnknownUser, "empty user id")
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
	if user != nil {
		return user, nil
	}

	user, err = uow.UserRepository().Create(ctx, userID, username, s.welcomeBonus)
	if err != nil {
		return nil, err
	}

	if s.welcomeBonus.Sign() > 0 {
		history := &models.BalanceHistory{
			UserID:          userID,
			BalanceBefore:   decimal.Zero,
			BalanceAfter:    s.welcomeBonus,
			ChangeAmount:    s.welcomeBonus,
			TransactionType: models.TransactionTypeInitial,
			TransactionMetadata: map[string]any{
				"welcome_bonus": s.welcomeBonus.String(),
			},
		}
		if err := uow.BalanceHistoryRepository().Record(ctx, history); err != nil {
			return nil, err
		}
	}

	uow.EventBus().Publish(events.UserCreatedEvent{
		UserID:       userID,
		Username:     username,
		WelcomeBonus: s.welcomeBonus,
	})

	if err := uow.Commit(); err != nil {
		return nil, errs.Wrap(errs.ErrStorageUnavailable, "failed to commit transaction")
	}

	log.WithFields(log.Fields{
		"userID":       userID,
		"username":     username,
		"welcomeBonus": s.welcomeBonus,
	}).Info("Created new user")

	return user, nil
}
