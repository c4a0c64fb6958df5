package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/tendant/portal-auth/pkg/domain"
)

// AttemptsRepository handles login attempt counters.
type AttemptsRepository struct {
	db Querier
}

// NewAttemptsRepository creates a new attempts repository.
func NewAttemptsRepository(db Querier) *AttemptsRepository {
	return &AttemptsRepository{db: db}
}

// Create inserts the counter for an account.
func (r *AttemptsRepository) Create(ctx context.Context, attempt *domain.LoginAttempt) error {
	query := `
		INSERT INTO attempts_login (number_attempts, lock_time, user_id, create_at, update_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id, create_at, update_at
	`
	return r.db.QueryRowContext(ctx, query,
		attempt.NumberAttempt, attempt.LockTime, attempt.AccountID,
	).Scan(&attempt.ID, &attempt.CreatedAt, &attempt.UpdatedAt)
}

// GetByAccountID retrieves the counter of an account.
func (r *AttemptsRepository) GetByAccountID(ctx context.Context, accountID int64) (*domain.LoginAttempt, error) {
	query := `
		SELECT id, user_id, number_attempts, lock_time, create_at, update_at
		FROM attempts_login
		WHERE user_id = $1
	`
	return r.getOne(ctx, query, accountID)
}

// GetByAccountIDForUpdate retrieves the counter and locks its row until the
// transaction ends. Only meaningful when r is bound to a *sql.Tx.
func (r *AttemptsRepository) GetByAccountIDForUpdate(ctx context.Context, accountID int64) (*domain.LoginAttempt, error) {
	query := `
		SELECT id, user_id, number_attempts, lock_time, create_at, update_at
		FROM attempts_login
		WHERE user_id = $1
		FOR UPDATE
	`
	return r.getOne(ctx, query, accountID)
}

// Update stores the attempt count and lock time.
func (r *AttemptsRepository) Update(ctx context.Context, attempt *domain.LoginAttempt) error {
	query := `
		UPDATE attempts_login
		SET number_attempts = $2, lock_time = $3, update_at = NOW()
		WHERE user_id = $1
	`
	result, err := r.db.ExecContext(ctx, query, attempt.AccountID, attempt.NumberAttempt, attempt.LockTime)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrAttemptCounterMissing
	}
	return nil
}

func (r *AttemptsRepository) getOne(ctx context.Context, query string, accountID int64) (*domain.LoginAttempt, error) {
	attempt := &domain.LoginAttempt{}
	err := r.db.QueryRowContext(ctx, query, accountID).Scan(
		&attempt.ID, &attempt.AccountID, &attempt.NumberAttempt, &attempt.LockTime,
		&attempt.CreatedAt, &attempt.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAttemptCounterMissing
	}
	if err != nil {
		return nil, err
	}
	return attempt, nil
}
