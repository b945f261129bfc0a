// Package errs defines the domain error kinds of the staking workflow.
// Callers dispatch on these with errors.Is, so every failure path in the
// ledger, record store and orchestrator wraps exactly one of them.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrSelfStakeForbidden is returned when a user stakes on their own post.
	ErrSelfStakeForbidden = errors.New("cannot stake on your own post")

	// ErrInvalidAmount is returned when a stake amount is out of bounds.
	ErrInvalidAmount = errors.New("invalid stake amount")

	// ErrDuplicateStake is returned when the user already holds an active
	// stake of the same kind on the post.
	ErrDuplicateStake = errors.New("already staked on this post")

	// ErrInsufficientBalance is returned when a debit exceeds the user's
	// available balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrUnknownUser is returned when the referenced user does not exist.
	ErrUnknownUser = errors.New("unknown user")

	// ErrUnknownPost is returned when the referenced post does not exist.
	ErrUnknownPost = errors.New("unknown post")

	// ErrUnknownStake is returned when the referenced stake record does
	// not exist.
	ErrUnknownStake = errors.New("unknown stake record")

	// ErrStakeNotActive is returned when reversing a stake that is
	// already reversed.
	ErrStakeNotActive = errors.New("stake record not active")

	// ErrReconciliationRequired is returned when a compensating credit
	// failed after a successful debit. The balance is in an inconsistent
	// state and needs manual operator review; this error must never be
	// silently swallowed.
	ErrReconciliationRequired = errors.New("reconciliation required")

	// ErrStorageUnavailable is returned for transient storage failures.
	// It is the only error kind a caller may blindly retry.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// userMessages maps each error kind to the specific message shown to the
// user. Only ErrStorageUnavailable gets the generic try-again wording.
var userMessages = []struct {
	kind    error
	message string
}{
	{ErrSelfStakeForbidden, "You cannot stake on your own post."},
	{ErrInvalidAmount, "Stake amount is outside the allowed range."},
	{ErrDuplicateStake, "You have already placed this stake on this post."},
	{ErrInsufficientBalance, "You do not have enough tokens for this stake."},
	{ErrUnknownUser, "User not found."},
	{ErrUnknownPost, "Post not found."},
	{ErrUnknownStake, "Stake not found."},
	{ErrStakeNotActive, "This stake has already been refunded."},
	{ErrReconciliationRequired, "Your stake could not be completed. Support has been notified."},
	{ErrStorageUnavailable, "Something went wrong. Please try again later."},
}

// UserMessage returns the user-facing message for a domain error.
// Unrecognized errors get the generic storage message so internal
// details never leak to the UI.
func UserMessage(err error) string {
	for _, m := range userMessages {
		if errors.Is(err, m.kind) {
			return m.message
		}
	}
	return "Something went wrong. Please try again later."
}

// Wrap annotates err with context while preserving its kind for errors.Is
func Wrap(kind error, format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, kind)...)
}
