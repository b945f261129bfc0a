package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Post represents a claim posted by a user, together with its
// aggregate stake counters. The counters are a cache over the active
// stake records for the post and are updated in the same transaction
// as the records themselves.
type Post struct {
	ID            string          `db:"id"`
	AuthorID      string          `db:"author_id"`
	Content       string          `db:"content"`
	StakeAmount   decimal.Decimal `db:"stake_amount"`   // author's stake plus support stakes
	ChallengePool decimal.Decimal `db:"challenge_pool"` // sum of active challenge stakes
	Verifications int             `db:"verifications"`  // count of active verification records
	Challenges    int             `db:"challenges"`     // count of active challenge records
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

// IsAuthor checks whether the given user wrote the post
func (p *Post) IsAuthor(userID string) bool {
	return p.AuthorID == userID
}
