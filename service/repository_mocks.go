package service

import (
	"context"

	"truthchain/events"
	"truthchain/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, userID, username string, initialBalance decimal.Decimal) (*models.User, error) {
	args := m.Called(ctx, userID, username, initialBalance)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) AddBalance(ctx context.Context, userID string, amount decimal.Decimal) (decimal.Decimal, error) {
	args := m.Called(ctx, userID, amount)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockUserRepository) DeductBalance(ctx context.Context, userID string, amount decimal.Decimal) (decimal.Decimal, error) {
	args := m.Called(ctx, userID, amount)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockUserRepository) GetAll(ctx context.Context) ([]*models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

// MockBalanceHistoryRepository is a mock implementation of BalanceHistoryRepository
type MockBalanceHistoryRepository struct {
	mock.Mock
}

func (m *MockBalanceHistoryRepository) Record(ctx context.Context, history *models.BalanceHistory) error {
	args := m.Called(ctx, history)
	return args.Error(0)
}

func (m *MockBalanceHistoryRepository) GetByUser(ctx context.Context, userID string, limit int) ([]*models.BalanceHistory, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.BalanceHistory), args.Error(1)
}

// MockStakeRepository is a mock implementation of StakeRepository
type MockStakeRepository struct {
	mock.Mock
}

func (m *MockStakeRepository) Create(ctx context.Context, record *models.StakeRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockStakeRepository) GetByID(ctx context.Context, id string) (*models.StakeRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StakeRecord), args.Error(1)
}

func (m *MockStakeRepository) GetByIdempotencyKey(ctx context.Context, key string) (*models.StakeRecord, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StakeRecord), args.Error(1)
}

func (m *MockStakeRepository) GetActiveByPostAndStaker(ctx context.Context, postID, stakerID string) ([]*models.StakeRecord, error) {
	args := m.Called(ctx, postID, stakerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.StakeRecord), args.Error(1)
}

func (m *MockStakeRepository) GetActiveByPost(ctx context.Context, postID string) ([]*models.StakeRecord, error) {
	args := m.Called(ctx, postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.StakeRecord), args.Error(1)
}

func (m *MockStakeRepository) Reverse(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// MockPostRepository is a mock implementation of PostRepository
type MockPostRepository struct {
	mock.Mock
}

func (m *MockPostRepository) Create(ctx context.Context, post *models.Post) error {
	args := m.Called(ctx, post)
	return args.Error(0)
}

func (m *MockPostRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *MockPostRepository) ApplyStakeDelta(ctx context.Context, postID string, kind models.StakeKind, amount decimal.Decimal, direction int) error {
	args := m.Called(ctx, postID, kind, amount, direction)
	return args.Error(0)
}

func (m *MockPostRepository) RecomputeAggregates(ctx context.Context, postID string, authorStake decimal.Decimal) error {
	args := m.Called(ctx, postID, authorStake)
	return args.Error(0)
}

// MockLedgerService is a mock implementation of LedgerService
type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) GetBalance(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockLedgerService) CanStake(ctx context.Context, userID string, amount decimal.Decimal) (bool, decimal.Decimal, error) {
	args := m.Called(ctx, userID, amount)
	return args.Bool(0), args.Get(1).(decimal.Decimal), args.Error(2)
}

func (m *MockLedgerService) Debit(ctx context.Context, userID string, amount decimal.Decimal, txType models.TransactionType, relatedID *string, relatedType *models.RelatedType) (decimal.Decimal, error) {
	args := m.Called(ctx, userID, amount, txType, relatedID, relatedType)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockLedgerService) Credit(ctx context.Context, userID string, amount decimal.Decimal, txType models.TransactionType, relatedID *string, relatedType *models.RelatedType) (decimal.Decimal, error) {
	args := m.Called(ctx, userID, amount, txType, relatedID, relatedType)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockLedgerService) GetTransactions(ctx context.Context, userID string, limit int) ([]*models.BalanceHistory, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.BalanceHistory), args.Error(1)
}

// MockChainOracle is a mock implementation of ChainOracle
type MockChainOracle struct {
	mock.Mock
}

func (m *MockChainOracle) Balance(ctx context.Context, userID string) (decimal.Decimal, bool, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(decimal.Decimal), args.Bool(1), args.Error(2)
}

// recordingPublisher collects published events for assertions
type recordingPublisher struct {
	published []events.Event
}

func (p *recordingPublisher) Publish(e events.Event) {
	p.published = append(p.published, e)
}

// MockUnitOfWork is a mock implementation of UnitOfWork. Repositories
// are injected with SetRepositories; Begin/Commit/Rollback go through
// the testify expectations.
type MockUnitOfWork struct {
	mock.Mock
	userRepo    UserRepository
	stakeRepo   StakeRepository
	postRepo    PostRepository
	historyRepo BalanceHistoryRepository
	publisher   recordingPublisher
}

// SetRepositories wires the repository mocks this unit of work hands out
func (m *MockUnitOfWork) SetRepositories(user UserRepository, stake StakeRepository, post PostRepository, history BalanceHistoryRepository) {
	m.userRepo = user
	m.stakeRepo = stake
	m.postRepo = post
	m.historyRepo = history
}

// PublishedEvents returns the events published through this unit of work
func (m *MockUnitOfWork) PublishedEvents() []events.Event {
	return m.publisher.published
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) UserRepository() UserRepository {
	return m.userRepo
}

func (m *MockUnitOfWork) StakeRepository() StakeRepository {
	return m.stakeRepo
}

func (m *MockUnitOfWork) PostRepository() PostRepository {
	return m.postRepo
}

func (m *MockUnitOfWork) BalanceHistoryRepository() BalanceHistoryRepository {
	return m.historyRepo
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	return &m.publisher
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}
