package repository

import (
	"context"
	"errors"
	"fmt"

	"truthchain/database"
	"truthchain/errs"
	"truthchain/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const stakeColumns = `id, post_id, staker_id, amount, kind, status, idempotency_key, created_at, reversed_at`

// StakeRepository implements the stake record store
type StakeRepository struct {
	q queryable
}

// NewStakeRepository creates a new stake repository
func NewStakeRepository(db *database.DB) *StakeRepository {
	return &StakeRepository{q: db.Pool}
}

// newStakeRepositoryWithTx creates a new stake repository with a transaction
func newStakeRepositoryWithTx(tx queryable) *StakeRepository {
	return &StakeRepository{q: tx}
}

// Create inserts a stake record. The partial unique index on
// (post_id, staker_id, kind) WHERE status='active' closes the
// check-then-insert race: a concurrent duplicate fails here with
// ErrDuplicateStake even when the application-level check passed.
func (r *StakeRepository) Create(ctx context.Context, record *models.StakeRecord) error {
	query := `
		INSERT INTO stake_records (id, post_id, staker_id, amount, kind, status, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`

	err := r.q.QueryRow(ctx, query,
		record.ID,
		record.PostID,
		record.StakerID,
		record.Amount,
		record.Kind,
		record.Status,
		record.IdempotencyKey,
	).Scan(&record.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return errs.Wrap(errs.ErrDuplicateStake,
				"active stake exists for post %s, staker %s, kind %s (constraint %s)",
				record.PostID, record.StakerID, record.Kind, pgErr.ConstraintName)
		}
		return errs.Wrap(errs.ErrStorageUnavailable, "failed to create stake record")
	}

	return nil
}

// GetByID retrieves a stake record by ID. Returns nil without error when
// no record exists.
func (r *StakeRepository) GetByID(ctx context.Context, id string) (*models.StakeRecord, error) {
	query := `SELECT ` + stakeColumns + ` FROM stake_records WHERE id = $1`
	return r.scanOne(r.q.QueryRow(ctx, query, id))
}

// GetByIdempotencyKey retrieves a stake record by its idempotency key.
// Used to replay the original outcome when a client retries after a
// timeout.
func (r *StakeRepository) GetByIdempotencyKey(ctx context.Context, key string) (*models.StakeRecord, error) {
	query := `SELECT ` + stakeColumns + ` FROM stake_records WHERE idempotency_key = $1`
	return r.scanOne(r.q.QueryRow(ctx, query, key))
}

// GetActiveByPostAndStaker returns all active stakes a user holds on a
// post, regardless of kind.
func (r *StakeRepository) GetActiveByPostAndStaker(ctx context.Context, postID, stakerID string) ([]*models.StakeRecord, error) {
	query := `
		SELECT ` + stakeColumns + `
		FROM stake_records
		WHERE post_id = $1 AND staker_id = $2 AND status = 'active'
		ORDER BY created_at ASC
	`

	rows, err := r.q.Query(ctx, query, postID, stakerID)
	if err != nil {
		return nil, errs.Wrap(errs.ErrStorageUnavailable, "failed to get stakes for post %s", postID)
	}
	defer rows.Close()

	return scanStakes(rows)
}

// GetActiveByPost returns all active stakes on a post
func (r *StakeRepository) GetActiveByPost(ctx context.Context, postID string) ([]*models.StakeRecord, error) {
	query := `
		SELECT ` + stakeColumns + `
		FROM stake_records
		WHERE post_id = $1 AND status = 'active'
		ORDER BY created_at ASC
	`

	rows, err := r.q.Query(ctx, query, postID)
	if err != nil {
		return nil, errs.Wrap(errs.ErrStorageUnavailable, "failed to get stakes for post %s", postID)
	}
	defer rows.Close()

	return scanStakes(rows)
}

// Reverse marks an active record reversed. Records are never deleted;
// the reversed row stays as audit history. Returns false when the record
// was not active (already reversed or missing).
func (r *StakeRepository) Reverse(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE stake_records
		SET status = 'reversed', reversed_at = NOW()
		WHERE id = $1 AND status = 'active'
	`

	tag, err := r.q.Exec(ctx, query, id)
	if err != nil {
		return false, errs.Wrap(errs.ErrStorageUnavailable, "failed to reverse stake %s", id)
	}

	return tag.RowsAffected() > 0, nil
}

func (r *StakeRepository) scanOne(row pgx.Row) (*models.StakeRecord, error) {
	var record models.StakeRecord
	err := row.Scan(
		&record.ID,
		&record.PostID,
		&record.StakerID,
		&record.Amount,
		&record.Kind,
		&record.Status,
		&record.IdempotencyKey,
		&record.CreatedAt,
		&record.ReversedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrStorageUnavailable, "failed to get stake record")
	}
	return &record, nil
}

func scanStakes(rows pgx.Rows) ([]*models.StakeRecord, error) {
	var records []*models.StakeRecord
	for rows.Next() {
		var record models.StakeRecord
		err := rows.Scan(
			&record.ID,
			&record.PostID,
			&record.StakerID,
			&record.Amount,
			&record.Kind,
			&record.Status,
			&record.IdempotencyKey,
			&record.CreatedAt,
			&record.ReversedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stake record: %w", err)
		}
		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrStorageUnavailable, "failed to iterate stake records")
	}

	return records, nil
}
