package auth

import (
	"context"
	"time"

	"github.com/tendant/portal-auth/pkg/domain"
)

// DefaultConfirmationTTL is the lifetime of a confirmation token.
const DefaultConfirmationTTL = 24 * time.Hour

// ConfirmationConfig holds confirmation token configuration.
type ConfirmationConfig struct {
	TTL time.Duration
}

// ConfirmationManager issues and consumes email confirmation tokens.
type ConfirmationManager struct {
	config ConfirmationConfig
	tx     TxRunner
	clock  Clock
}

// NewConfirmationManager creates a new confirmation manager.
func NewConfirmationManager(config ConfirmationConfig, tx TxRunner, clock Clock) *ConfirmationManager {
	if config.TTL <= 0 {
		config.TTL = DefaultConfirmationTTL
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &ConfirmationManager{config: config, tx: tx, clock: clock}
}

// Issue creates a confirmation token for the account, replacing any token
// that is still outstanding. A zero ttl selects the configured default.
func (m *ConfirmationManager) Issue(ctx context.Context, accountID int64, ttl time.Duration) (*domain.ConfirmationToken, error) {
	var token *domain.ConfirmationToken
	err := m.tx.InTx(ctx, func(ctx context.Context, s Stores) error {
		var err error
		token, err = m.issue(ctx, s, accountID, ttl)
		return err
	})
	if err != nil {
		return nil, err
	}
	return token, nil
}

func (m *ConfirmationManager) issue(ctx context.Context, s Stores, accountID int64, ttl time.Duration) (*domain.ConfirmationToken, error) {
	if ttl == 0 {
		ttl = m.config.TTL
	}

	value, err := newConfirmationToken()
	if err != nil {
		return nil, err
	}

	token := &domain.ConfirmationToken{
		Token:     value,
		Lifetime:  m.clock.Now().Add(ttl).UnixMilli(),
		AccountID: accountID,
	}

	if err := s.Confirmations.DeleteByAccountID(ctx, accountID); err != nil {
		return nil, err
	}
	if err := s.Confirmations.Create(ctx, token); err != nil {
		return nil, err
	}
	return token, nil
}

// Confirm consumes a token and activates its account. The token row is
// deleted whether it is still valid or already expired.
//
// Errors: domain.ErrConfirmationTokenNotFound, domain.ErrConfirmationTokenExpired,
// domain.ErrInvalidTransition when the account is no longer awaiting confirmation.
func (m *ConfirmationManager) Confirm(ctx context.Context, rawToken string) (int64, error) {
	var (
		accountID int64
		outcome   error
	)

	err := m.tx.InTx(ctx, func(ctx context.Context, s Stores) error {
		token, err := s.Confirmations.GetByToken(ctx, rawToken)
		if err != nil {
			return err
		}

		deleted, err := s.Confirmations.DeleteByToken(ctx, rawToken)
		if err != nil {
			return err
		}
		if !deleted {
			// Consumed by a concurrent call.
			return domain.ErrConfirmationTokenNotFound
		}
		accountID = token.AccountID

		if token.Expired(m.clock.Now()) {
			outcome = domain.ErrConfirmationTokenExpired
			return nil
		}

		account, err := s.Accounts.GetByID(ctx, token.AccountID)
		if err != nil {
			return err
		}
		if account.Status != domain.StatusAwait {
			outcome = domain.ErrInvalidTransition
			return nil
		}
		return s.Accounts.UpdateStatus(ctx, account.ID, domain.StatusActive)
	})
	if err != nil {
		return 0, err
	}
	return accountID, outcome
}
