package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/tendant/portal-auth/pkg/domain"
)

// RefreshTokensRepository handles refresh token persistence.
type RefreshTokensRepository struct {
	db Querier
}

// NewRefreshTokensRepository creates a new refresh tokens repository.
func NewRefreshTokensRepository(db Querier) *RefreshTokensRepository {
	return &RefreshTokensRepository{db: db}
}

// Create inserts a refresh token.
func (r *RefreshTokensRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (token, lifetime, user_id)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	return r.db.QueryRowContext(ctx, query, token.Token, token.Lifetime, token.AccountID).Scan(&token.ID)
}

// GetByToken retrieves a refresh token by its value.
func (r *RefreshTokensRepository) GetByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	return r.getOne(ctx, `SELECT id, token, lifetime, user_id FROM refresh_tokens WHERE token = $1`, token)
}

// GetByTokenForUpdate retrieves a refresh token and locks its row until the
// transaction ends.
func (r *RefreshTokensRepository) GetByTokenForUpdate(ctx context.Context, token string) (*domain.RefreshToken, error) {
	return r.getOne(ctx, `SELECT id, token, lifetime, user_id FROM refresh_tokens WHERE token = $1 FOR UPDATE`, token)
}

// Rotate replaces the value and lifetime of oldToken in place. It returns
// domain.ErrRefreshTokenNotFound when oldToken no longer exists.
func (r *RefreshTokensRepository) Rotate(ctx context.Context, oldToken, newToken string, lifetime int64) error {
	query := `UPDATE refresh_tokens SET token = $2, lifetime = $3 WHERE token = $1`
	result, err := r.db.ExecContext(ctx, query, oldToken, newToken, lifetime)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrRefreshTokenNotFound
	}
	return nil
}

// DeleteByToken deletes a refresh token. Missing tokens are not an error.
func (r *RefreshTokensRepository) DeleteByToken(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE token = $1`, token)
	return err
}

func (r *RefreshTokensRepository) getOne(ctx context.Context, query, token string) (*domain.RefreshToken, error) {
	t := &domain.RefreshToken{}
	err := r.db.QueryRowContext(ctx, query, token).Scan(&t.ID, &t.Token, &t.Lifetime, &t.AccountID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRefreshTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}
