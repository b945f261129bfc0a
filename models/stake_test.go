package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStakeKind(t *testing.T) {
	assert.True(t, StakeKindVerification.Valid())
	assert.True(t, StakeKindChallenge.Valid())
	assert.False(t, StakeKind("wager").Valid())
	assert.False(t, StakeKind("").Valid())

	assert.Equal(t, StakeKindChallenge, StakeKindVerification.Opposite())
	assert.Equal(t, StakeKindVerification, StakeKindChallenge.Opposite())

	assert.Equal(t, TransactionTypeVerifyStake, StakeKindVerification.TransactionType())
	assert.Equal(t, TransactionTypeChallengeStake, StakeKindChallenge.TransactionType())
}

func TestStakeRecord_IsActive(t *testing.T) {
	record := &StakeRecord{Status: StakeStatusActive}
	assert.True(t, record.IsActive())

	record.Status = StakeStatusReversed
	assert.False(t, record.IsActive())
}
