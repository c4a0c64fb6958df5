package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/tendant/portal-auth/pkg/domain"
)

// ConfirmationTokensRepository handles confirmation token persistence.
type ConfirmationTokensRepository struct {
	db Querier
}

// NewConfirmationTokensRepository creates a new confirmation tokens repository.
func NewConfirmationTokensRepository(db Querier) *ConfirmationTokensRepository {
	return &ConfirmationTokensRepository{db: db}
}

// Create inserts a token. An account holds at most one token; a second one
// returns domain.ErrAlreadyExists.
func (r *ConfirmationTokensRepository) Create(ctx context.Context, token *domain.ConfirmationToken) error {
	query := `
		INSERT INTO confirmation_tokens (token, lifetime, user_id)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query, token.Token, token.Lifetime, token.AccountID).Scan(&token.ID)
	if _, ok := uniqueConstraint(err); ok {
		return domain.ErrAlreadyExists
	}
	return err
}

// GetByToken retrieves a token by its value.
func (r *ConfirmationTokensRepository) GetByToken(ctx context.Context, token string) (*domain.ConfirmationToken, error) {
	query := `SELECT id, token, lifetime, user_id FROM confirmation_tokens WHERE token = $1`
	t := &domain.ConfirmationToken{}
	err := r.db.QueryRowContext(ctx, query, token).Scan(&t.ID, &t.Token, &t.Lifetime, &t.AccountID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrConfirmationTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// DeleteByToken deletes a token and reports whether a row was removed.
func (r *ConfirmationTokensRepository) DeleteByToken(ctx context.Context, token string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM confirmation_tokens WHERE token = $1`, token)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// DeleteByAccountID deletes any token held by the account.
func (r *ConfirmationTokensRepository) DeleteByAccountID(ctx context.Context, accountID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM confirmation_tokens WHERE user_id = $1`, accountID)
	return err
}
