package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType represents the type of balance change
type TransactionType string

const (
	TransactionTypeInitial        TransactionType = "initial"
	TransactionTypePostStake      TransactionType = "post_stake"
	TransactionTypeVerifyStake    TransactionType = "verify_stake"
	TransactionTypeChallengeStake TransactionType = "challenge_stake"
	TransactionTypeStakeRefund    TransactionType = "stake_refund"
	TransactionTypeReconcile      TransactionType = "reconcile"
)

// RelatedType represents what type of entity the related_id refers to
type RelatedType string

const (
	RelatedTypeStake RelatedType = "stake"
	RelatedTypePost  RelatedType = "post"
)

// BalanceHistory represents an immutable balance change entry.
// Entries are append-only; they are never updated or deleted.
type BalanceHistory struct {
	ID                  int64           `db:"id"`
	UserID              string          `db:"user_id"`
	BalanceBefore       decimal.Decimal `db:"balance_before"`
	BalanceAfter        decimal.Decimal `db:"balance_after"`
	ChangeAmount        decimal.Decimal `db:"change_amount"`
	TransactionType     TransactionType `db:"transaction_type"`
	TransactionMetadata map[string]any  `db:"transaction_metadata"`
	RelatedID           *string         `db:"related_id"`
	RelatedType         *RelatedType    `db:"related_type"`
	CreatedAt           time.Time       `db:"created_at"`
}
