package repository

import (
	"context"

	"truthchain/database"
	"truthchain/errs"
	"truthchain/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// PostRepository implements post storage and the aggregate counter cache
type PostRepository struct {
	q queryable
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *database.DB) *PostRepository {
	return &PostRepository{q: db.Pool}
}

// newPostRepositoryWithTx creates a new post repository with a transaction
func newPostRepositoryWithTx(tx queryable) *PostRepository {
	return &PostRepository{q: tx}
}

// Create creates a new post with the author's initial stake as the
// starting stake_amount.
func (r *PostRepository) Create(ctx context.Context, post *models.Post) error {
	query := `
		INSERT INTO posts (id, author_id, content, stake_amount)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		post.ID,
		post.AuthorID,
		post.Content,
		post.StakeAmount,
	).Scan(&post.CreatedAt, &post.UpdatedAt)

	if err != nil {
		return errs.Wrap(errs.ErrStorageUnavailable, "failed to create post %s", post.ID)
	}

	return nil
}

// GetByID retrieves a post with its aggregates. Returns nil without
// error when the post does not exist.
func (r *PostRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	query := `
		SELECT id, author_id, content, stake_amount, challenge_pool,
		       verifications, challenges, created_at, updated_at
		FROM posts
		WHERE id = $1
	`

	var post models.Post
	err := r.q.QueryRow(ctx, query, id).Scan(
		&post.ID,
		&post.AuthorID,
		&post.Content,
		&post.StakeAmount,
		&post.ChallengePool,
		&post.Verifications,
		&post.Challenges,
		&post.CreatedAt,
		&post.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrStorageUnavailable, "failed to get post %s", id)
	}

	return &post, nil
}

// ApplyStakeDelta adjusts the aggregate counters for one stake of the
// given kind. direction is +1 when the stake becomes active and -1 when
// it is reversed. The increments are single-statement and keyed by
// post_id, so concurrent stakers cannot lose updates.
func (r *PostRepository) ApplyStakeDelta(ctx context.Context, postID string, kind models.StakeKind, amount decimal.Decimal, direction int) error {
	var query string
	switch kind {
	case models.StakeKindVerification:
		query = `
			UPDATE posts
			SET stake_amount = stake_amount + $1,
			    verifications = verifications + $2,
			    updated_at = NOW()
			WHERE id = $3
		`
	case models.StakeKindChallenge:
		query = `
			UPDATE posts
			SET challenge_pool = challenge_pool + $1,
			    challenges = challenges + $2,
			    updated_at = NOW()
			WHERE id = $3
		`
	default:
		return errs.Wrap(errs.ErrInvalidAmount, "unknown stake kind %q", kind)
	}

	signed := amount
	if direction < 0 {
		signed = amount.Neg()
	}

	tag, err := r.q.Exec(ctx, query, signed, direction, postID)
	if err != nil {
		return errs.Wrap(errs.ErrStorageUnavailable, "failed to update aggregates for post %s", postID)
	}
	if tag.RowsAffected() == 0 {
		return errs.Wrap(errs.ErrUnknownPost, "post %s", postID)
	}

	return nil
}

// RecomputeAggregates rebuilds a post's counters from its active stake
// records. The counters are a cache; this is the repair path when they
// drift from the records (operator tooling, reconciliation).
func (r *PostRepository) RecomputeAggregates(ctx context.Context, postID string, authorStake decimal.Decimal) error {
	query := `
		UPDATE posts p
		SET stake_amount = $2 + COALESCE(
		        (SELECT SUM(s.amount) FROM stake_records s
		         WHERE s.post_id = p.id AND s.kind = 'verification' AND s.status = 'active'), 0),
		    challenge_pool = COALESCE(
		        (SELECT SUM(s.amount) FROM stake_records s
		         WHERE s.post_id = p.id AND s.kind = 'challenge' AND s.status = 'active'), 0),
		    verifications = (SELECT COUNT(*) FROM stake_records s
		         WHERE s.post_id = p.id AND s.kind = 'verification' AND s.status = 'active'),
		    challenges = (SELECT COUNT(*) FROM stake_records s
		         WHERE s.post_id = p.id AND s.kind = 'challenge' AND s.status = 'active'),
		    updated_at = NOW()
		WHERE p.id = $1
	`

	tag, err := r.q.Exec(ctx, query, postID, authorStake)
	if err != nil {
		return errs.Wrap(errs.ErrStorageUnavailable, "failed to recompute aggregates for post %s", postID)
	}
	if tag.RowsAffected() == 0 {
		return errs.Wrap(errs.ErrUnknownPost, "post %s", postID)
	}

	return nil
}
