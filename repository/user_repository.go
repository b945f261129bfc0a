package repository

import (
	"context"
	"fmt"

	"truthchain/database"
	"truthchain/errs"
	"truthchain/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// availableBalanceExpr computes the spendable balance: the stored balance
// is already net of active stakes (stakes debit on placement), so the two
// are equal today. The expression stays a single point of change if stakes
// ever move to a hold model.
const availableBalanceExpr = `u.balance`

// UserRepository implements the ledger's user storage
type UserRepository struct {
	q queryable
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{q: db.Pool}
}

// newUserRepositoryWithTx creates a new user repository with a transaction
func newUserRepositoryWithTx(tx queryable) *UserRepository {
	return &UserRepository{q: tx}
}

// GetByID retrieves a user by ID. Returns nil without error when the
// user does not exist.
func (r *UserRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	query := `
		SELECT u.id, u.username, u.balance, u.created_at, u.updated_at,
		       ` + availableBalanceExpr + ` AS available_balance
		FROM users u
		WHERE u.id = $1
	`

	var user models.User
	err := r.q.QueryRow(ctx, query, userID).Scan(
		&user.ID,
		&user.Username,
		&user.Balance,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.AvailableBalance,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrStorageUnavailable, "failed to get user %s", userID)
	}

	return &user, nil
}

// Create creates a new user with the initial balance
func (r *UserRepository) Create(ctx context.Context, userID, username string, initialBalance decimal.Decimal) (*models.User, error) {
	query := `
		INSERT INTO users (id, username, balance)
		VALUES ($1, $2, $3)
		RETURNING id, username, balance, created_at, updated_at
	`

	var user models.User
	err := r.q.QueryRow(ctx, query, userID, username, initialBalance).Scan(
		&user.ID,
		&user.Username,
		&user.Balance,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		return nil, errs.Wrap(errs.ErrStorageUnavailable, "failed to create user %s", userID)
	}

	// A new user has no stakes yet
	user.AvailableBalance = user.Balance

	return &user, nil
}

// AddBalance adds to a user's balance atomically and returns the new
// balance. The increment happens in SQL; no computed balance is ever
// written back from the client.
func (r *UserRepository) AddBalance(ctx context.Context, userID string, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.Sign() <= 0 {
		return decimal.Zero, errs.Wrap(errs.ErrInvalidAmount, "credit amount must be positive, got %s", amount)
	}

	query := `
		UPDATE users
		SET balance = balance + $1, updated_at = NOW()
		WHERE id = $2
		RETURNING balance
	`

	var newBalance decimal.Decimal
	err := r.q.QueryRow(ctx, query, amount, userID).Scan(&newBalance)
	if err == pgx.ErrNoRows {
		return decimal.Zero, errs.Wrap(errs.ErrUnknownUser, "user %s", userID)
	}
	if err != nil {
		return decimal.Zero, errs.Wrap(errs.ErrStorageUnavailable, "failed to add balance for user %s", userID)
	}

	return newBalance, nil
}

// DeductBalance deducts from a user's balance atomically, failing if the
// available balance does not cover the amount. The guard lives in the
// WHERE clause, so concurrent debits for the same user serialize on the
// row and can never drive the balance negative.
func (r *UserRepository) DeductBalance(ctx context.Context, userID string, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.Sign() <= 0 {
		return decimal.Zero, errs.Wrap(errs.ErrInvalidAmount, "debit amount must be positive, got %s", amount)
	}

	query := `
		UPDATE users u
		SET balance = balance - $1, updated_at = NOW()
		WHERE u.id = $2 AND ` + availableBalanceExpr + ` >= $1
		RETURNING balance
	`

	var newBalance decimal.Decimal
	err := r.q.QueryRow(ctx, query, amount, userID).Scan(&newBalance)
	if err == pgx.ErrNoRows {
		// Distinguish a missing user from insufficient funds
		user, getErr := r.GetByID(ctx, userID)
		if getErr != nil {
			return decimal.Zero, getErr
		}
		if user == nil {
			return decimal.Zero, errs.Wrap(errs.ErrUnknownUser, "user %s", userID)
		}
		return decimal.Zero, errs.Wrap(errs.ErrInsufficientBalance,
			"have %s available, need %s", user.AvailableBalance, amount)
	}
	if err != nil {
		return decimal.Zero, errs.Wrap(errs.ErrStorageUnavailable, "failed to deduct balance for user %s", userID)
	}

	return newBalance, nil
}

// GetAll returns all users ordered by creation time
func (r *UserRepository) GetAll(ctx context.Context) ([]*models.User, error) {
	query := `
		SELECT u.id, u.username, u.balance, u.created_at, u.updated_at,
		       ` + availableBalanceExpr + ` AS available_balance
		FROM users u
		ORDER BY u.created_at DESC
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, errs.Wrap(errs.ErrStorageUnavailable, "failed to get users")
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		var user models.User
		err := rows.Scan(
			&user.ID,
			&user.Username,
			&user.Balance,
			&user.CreatedAt,
			&user.UpdatedAt,
			&user.AvailableBalance,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, &user)
	}

	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrStorageUnavailable, "failed to iterate users")
	}

	return users, nil
}
