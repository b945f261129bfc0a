package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// StakeKind represents the direction of a stake
type StakeKind string

const (
	StakeKindVerification StakeKind = "verification"
	StakeKindChallenge    StakeKind = "challenge"
)

// Valid checks that the kind is one of the known values
func (k StakeKind) Valid() bool {
	return k == StakeKindVerification || k == StakeKindChallenge
}

// Opposite returns the other stake kind
func (k StakeKind) Opposite() StakeKind {
	if k == StakeKindVerification {
		return StakeKindChallenge
	}
	return StakeKindVerification
}

// TransactionType returns the ledger transaction type for this kind
func (k StakeKind) TransactionType() TransactionType {
	if k == StakeKindChallenge {
		return TransactionTypeChallengeStake
	}
	return TransactionTypeVerifyStake
}

// StakeStatus represents the lifecycle state of a stake record
type StakeStatus string

const (
	StakeStatusActive   StakeStatus = "active"
	StakeStatusReversed StakeStatus = "reversed"
)

// StakeRecord represents one user's stake on one post.
// Records are never hard-deleted; refunds mark them reversed.
type StakeRecord struct {
	ID             string          `db:"id"`
	PostID         string          `db:"post_id"`
	StakerID       string          `db:"staker_id"`
	Amount         decimal.Decimal `db:"amount"`
	Kind           StakeKind       `db:"kind"`
	Status         StakeStatus     `db:"status"`
	IdempotencyKey string          `db:"idempotency_key"`
	CreatedAt      time.Time       `db:"created_at"`
	ReversedAt     *time.Time      `db:"reversed_at"`
}

// IsActive checks if the stake still holds the staker's tokens at risk
func (s *StakeRecord) IsActive() bool {
	return s.Status == StakeStatusActive
}

// StakeResult is the outcome of a successful stake operation.
// NewBalance is the server-confirmed balance after the debit; callers
// use it directly instead of re-deriving the balance from a read.
type StakeResult struct {
	Record     *StakeRecord
	NewBalance decimal.Decimal
	// Replayed is true when the result was served from a previous
	// request carrying the same idempotency key.
	Replayed bool
}
