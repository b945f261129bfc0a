package testutil

import (
	"time"

	"truthchain/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateTestUser creates a test user with default values
func CreateTestUser(userID, username string) *models.User {
	now := time.Now()
	return &models.User{
		ID:        userID,
		Username:  username,
		Balance:   decimal.NewFromInt(100),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CreateTestUserWithBalance creates a test user with a specific balance
func CreateTestUserWithBalance(userID, username string, balance decimal.Decimal) *models.User {
	user := CreateTestUser(userID, username)
	user.Balance = balance
	user.AvailableBalance = balance
	return user
}

// CreateTestPost creates a test post with default values
func CreateTestPost(postID, authorID string) *models.Post {
	return &models.Post{
		ID:          postID,
		AuthorID:    authorID,
		Content:     "the sky is blue",
		StakeAmount: decimal.NewFromInt(1),
	}
}

// CreateTestStake creates a test stake record with default values
func CreateTestStake(postID, stakerID string, kind models.StakeKind) *models.StakeRecord {
	return &models.StakeRecord{
		ID:             uuid.New().String(),
		PostID:         postID,
		StakerID:       stakerID,
		Amount:         decimal.NewFromInt(2),
		Kind:           kind,
		Status:         models.StakeStatusActive,
		IdempotencyKey: uuid.New().String(),
	}
}

// CreateTestBalanceHistory creates a test balance history entry
func CreateTestBalanceHistory(userID string, transactionType models.TransactionType) *models.BalanceHistory {
	return &models.BalanceHistory{
		UserID:          userID,
		BalanceBefore:   decimal.NewFromInt(100),
		BalanceAfter:    decimal.NewFromInt(97),
		ChangeAmount:    decimal.NewFromInt(-3),
		TransactionType: transactionType,
		TransactionMetadata: map[string]any{
			"test": true,
		},
	}
}
