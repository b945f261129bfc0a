package service

import (
	"context"

	"truthchain/events"
	"truthchain/models"

	"github.com/shopspring/decimal"
)

// UserRepository defines the interface for the ledger's user storage
type UserRepository interface {
	// GetByID retrieves a user by ID, nil when not found
	GetByID(ctx context.Context, userID string) (*models.User, error)

	// Create creates a new user with the initial balance
	Create(ctx context.Context, userID, username string, initialBalance decimal.Decimal) (*models.User, error)

	// AddBalance adds to a user's balance atomically and returns the new balance
	AddBalance(ctx context.Context, userID string, amount decimal.Decimal) (decimal.Decimal, error)

	// DeductBalance deducts from a user's balance atomically, failing if
	// the available balance does not cover the amount; returns the new balance
	DeductBalance(ctx context.Context, userID string, amount decimal.Decimal) (decimal.Decimal, error)

	// GetAll returns all users
	GetAll(ctx context.Context) ([]*models.User, error)
}

// BalanceHistoryRepository defines the interface for the append-only transaction log
type BalanceHistoryRepository interface {
	// Record creates a new balance history entry
	Record(ctx context.Context, history *models.BalanceHistory) error

	// GetByUser returns the most recent balance history entries for a user
	GetByUser(ctx context.Context, userID string, limit int) ([]*models.BalanceHistory, error)
}

// StakeRepository defines the interface for the stake record store
type StakeRepository interface {
	// Create inserts a stake record; ErrDuplicateStake on an active duplicate
	Create(ctx context.Context, record *models.StakeRecord) error

	// GetByID retrieves a stake record by ID, nil when not found
	GetByID(ctx context.Context, id string) (*models.StakeRecord, error)

	// GetByIdempotencyKey retrieves a stake record by idempotency key, nil when not found
	GetByIdempotencyKey(ctx context.Context, key string) (*models.StakeRecord, error)

	// GetActiveByPostAndStaker returns all active stakes a user holds on a post
	GetActiveByPostAndStaker(ctx context.Context, postID, stakerID string) ([]*models.StakeRecord, error)

	// GetActiveByPost returns all active stakes on a post
	GetActiveByPost(ctx context.Context, postID string) ([]*models.StakeRecord, error)

	// Reverse marks a record reversed; false when it was not active
	Reverse(ctx context.Context, id string) (bool, error)
}

// PostRepository defines the interface for post storage and aggregates
type PostRepository interface {
	// Create creates a new post
	Create(ctx context.Context, post *models.Post) error

	// GetByID retrieves a post with aggregates, nil when not found
	GetByID(ctx context.Context, id string) (*models.Post, error)

	// ApplyStakeDelta adjusts aggregate counters for one stake (+1/-1)
	ApplyStakeDelta(ctx context.Context, postID string, kind models.StakeKind, amount decimal.Decimal, direction int) error

	// RecomputeAggregates rebuilds a post's counters from its active stake records
	RecomputeAggregates(ctx context.Context, postID string, authorStake decimal.Decimal) error
}

// LedgerService is the sole owner of user balances. Every balance
// movement goes through it and lands in the transaction log.
type LedgerService interface {
	// GetBalance returns the current and available balance for a user
	GetBalance(ctx context.Context, userID string) (*models.User, error)

	// CanStake is the read-only pre-check used by UI controls
	CanStake(ctx context.Context, userID string, amount decimal.Decimal) (bool, decimal.Decimal, error)

	// Debit removes amount from the user's balance and logs the movement.
	// Returns the new balance.
	Debit(ctx context.Context, userID string, amount decimal.Decimal, txType models.TransactionType, relatedID *string, relatedType *models.RelatedType) (decimal.Decimal, error)

	// Credit adds amount to the user's balance and logs the movement.
	// Returns the new balance.
	Credit(ctx context.Context, userID string, amount decimal.Decimal, txType models.TransactionType, relatedID *string, relatedType *models.RelatedType) (decimal.Decimal, error)

	// GetTransactions returns the user's recent transaction log entries
	GetTransactions(ctx context.Context, userID string, limit int) ([]*models.BalanceHistory, error)
}

// StakingService is the orchestrator the UI calls. It composes the
// ledger and the record store into one logical operation with
// rollback-on-failure semantics.
type StakingService interface {
	// Stake places a verification or challenge stake on a post
	Stake(ctx context.Context, params StakeParams) (*models.StakeResult, error)

	// ReverseStake refunds an active stake
	ReverseStake(ctx context.Context, recordID string) (*models.StakeRecord, error)
}

// StakeParams carries one stake request. StakerID is always explicit;
// the orchestrator never reads ambient session state.
type StakeParams struct {
	PostID         string
	StakerID       string
	Amount         decimal.Decimal
	Kind           models.StakeKind
	IdempotencyKey string
}

// UserService defines user provisioning operations
type UserService interface {
	// GetOrCreateUser retrieves an existing user or creates one with the welcome bonus
	GetOrCreateUser(ctx context.Context, userID, username string) (*models.User, error)
}

// PostService defines post operations
type PostService interface {
	// CreatePost creates a post, debiting the author's initial stake
	CreatePost(ctx context.Context, authorID, content string, stakeAmount decimal.Decimal) (*models.Post, error)

	// GetPost retrieves a post with its aggregates
	GetPost(ctx context.Context, postID string) (*models.Post, error)

	// GetPostStakes returns the active stakes on a post
	GetPostStakes(ctx context.Context, postID string) ([]*models.StakeRecord, error)

	// RepairAggregates rebuilds a post's counters from its stake records.
	// Operator tooling for when the counter cache has drifted.
	RepairAggregates(ctx context.Context, postID string, authorStake decimal.Decimal) (*models.Post, error)
}

// ChainOracle is the external wallet/chain balance source, queried
// opportunistically. Readings are best-effort.
type ChainOracle interface {
	// Balance returns the on-chain balance for a user. ok is false when
	// the oracle has no reading (unavailable, unknown address).
	Balance(ctx context.Context, userID string) (amount decimal.Decimal, ok bool, err error)
}

// ReconcileService compares database balances against the chain oracle
type ReconcileService interface {
	// SyncUser reconciles one user's balance with the oracle reading
	SyncUser(ctx context.Context, userID string) error

	// SyncAll reconciles every user, continuing past per-user failures.
	// Returns the number of users synced without error.
	SyncAll(ctx context.Context) (int, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Repository getters
	UserRepository() UserRepository
	StakeRepository() StakeRepository
	PostRepository() PostRepository
	BalanceHistoryRepository() BalanceHistoryRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}
