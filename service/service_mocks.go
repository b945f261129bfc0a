package service

import (
	"context"

	"truthchain/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockStakingService is a mock implementation of StakingService
type MockStakingService struct {
	mock.Mock
}

func (m *MockStakingService) Stake(ctx context.Context, params StakeParams) (*models.StakeResult, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StakeResult), args.Error(1)
}

func (m *MockStakingService) ReverseStake(ctx context.Context, recordID string) (*models.StakeRecord, error) {
	args := m.Called(ctx, recordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StakeRecord), args.Error(1)
}

// MockUserService is a mock implementation of UserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) GetOrCreateUser(ctx context.Context, userID, username string) (*models.User, error) {
	args := m.Called(ctx, userID, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// MockPostService is a mock implementation of PostService
type MockPostService struct {
	mock.Mock
}

func (m *MockPostService) CreatePost(ctx context.Context, authorID, content string, stakeAmount decimal.Decimal) (*models.Post, error) {
	args := m.Called(ctx, authorID, content, stakeAmount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *MockPostService) GetPost(ctx context.Context, postID string) (*models.Post, error) {
	args := m.Called(ctx, postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *MockPostService) GetPostStakes(ctx context.Context, postID string) ([]*models.StakeRecord, error) {
	args := m.Called(ctx, postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.StakeRecord), args.Error(1)
}

func (m *MockPostService) RepairAggregates(ctx context.Context, postID string, authorStake decimal.Decimal) (*models.Post, error) {
	args := m.Called(ctx, postID, authorStake)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

// MockReconcileService is a mock implementation of ReconcileService
type MockReconcileService struct {
	mock.Mock
}

func (m *MockReconcileService) SyncUser(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockReconcileService) SyncAll(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}
