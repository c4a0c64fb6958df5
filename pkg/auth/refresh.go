package auth

import (
	"context"
	"time"

	"github.com/tendant/portal-auth/pkg/domain"
)

// DefaultRefreshTokenTTL is the lifetime of a refresh token.
const DefaultRefreshTokenTTL = 7 * 24 * time.Hour

// RefreshConfig holds refresh token configuration.
type RefreshConfig struct {
	TTL time.Duration
}

// RotatedTokens is the outcome of a successful rotation.
type RotatedTokens struct {
	Account      *domain.Account
	AccessToken  string
	RefreshToken *domain.RefreshToken
}

// RefreshTokenManager issues, rotates and revokes refresh tokens.
type RefreshTokenManager struct {
	config RefreshConfig
	tx     TxRunner
	codec  *TokenCodec
	clock  Clock
}

// NewRefreshTokenManager creates a new refresh token manager.
func NewRefreshTokenManager(config RefreshConfig, tx TxRunner, codec *TokenCodec, clock Clock) *RefreshTokenManager {
	if config.TTL <= 0 {
		config.TTL = DefaultRefreshTokenTTL
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &RefreshTokenManager{config: config, tx: tx, codec: codec, clock: clock}
}

// TTL returns the refresh token lifetime.
func (m *RefreshTokenManager) TTL() time.Duration {
	return m.config.TTL
}

// Issue creates a refresh token bound to the account. A zero ttl selects the
// configured default.
func (m *RefreshTokenManager) Issue(ctx context.Context, accountID int64, ttl time.Duration) (*domain.RefreshToken, error) {
	if ttl == 0 {
		ttl = m.config.TTL
	}

	value, err := newRefreshToken()
	if err != nil {
		return nil, err
	}

	token := &domain.RefreshToken{
		Token:     value,
		Lifetime:  m.clock.Now().Add(ttl).UnixMilli(),
		AccountID: accountID,
	}
	if err := m.tx.Stores().RefreshTokens.Create(ctx, token); err != nil {
		return nil, err
	}
	return token, nil
}

// Rotate swaps oldToken for a fresh value with a renewed lifetime and mints
// a new access token for the bound account. The old value stops working as
// soon as the rotation commits; a second rotation of it fails with
// domain.ErrRefreshTokenNotFound. An expired token is deleted and
// domain.ErrRefreshTokenExpired returned. A token bound to an account that
// is not ACTIVE is left in place and the account's authentication error
// returned, so a later unblock makes it usable again.
func (m *RefreshTokenManager) Rotate(ctx context.Context, oldToken string) (*RotatedTokens, error) {
	var (
		result  *RotatedTokens
		outcome error
	)

	err := m.tx.InTx(ctx, func(ctx context.Context, s Stores) error {
		current, err := s.RefreshTokens.GetByTokenForUpdate(ctx, oldToken)
		if err != nil {
			return err
		}

		now := m.clock.Now()
		if current.Expired(now) {
			outcome = domain.ErrRefreshTokenExpired
			return s.RefreshTokens.DeleteByToken(ctx, oldToken)
		}

		account, err := s.Accounts.GetByID(ctx, current.AccountID)
		if err != nil {
			return err
		}
		if err := account.AuthenticationError(); err != nil {
			outcome = err
			return nil
		}

		value, err := newRefreshToken()
		if err != nil {
			return err
		}
		lifetime := now.Add(m.config.TTL).UnixMilli()
		if err := s.RefreshTokens.Rotate(ctx, oldToken, value, lifetime); err != nil {
			return err
		}

		access, err := m.codec.CreateToken(account.Username, account.Role, 0)
		if err != nil {
			return err
		}

		result = &RotatedTokens{
			Account:     account,
			AccessToken: access,
			RefreshToken: &domain.RefreshToken{
				ID:        current.ID,
				Token:     value,
				Lifetime:  lifetime,
				AccountID: current.AccountID,
			},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if outcome != nil {
		return nil, outcome
	}
	return result, nil
}

// Revoke deletes a refresh token. Unknown tokens are ignored.
func (m *RefreshTokenManager) Revoke(ctx context.Context, token string) error {
	return m.tx.Stores().RefreshTokens.DeleteByToken(ctx, token)
}
