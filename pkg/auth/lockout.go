package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/tendant/portal-auth/pkg/domain"
)

// Default lockout policy.
const (
	DefaultMaxAttempts   = 5
	DefaultBlockDuration = 15 * time.Minute
)

// LockoutConfig holds the lockout policy.
type LockoutConfig struct {
	MaxAttempts   int
	BlockDuration time.Duration
}

// LockoutTracker counts failed logins and blocks accounts that reach the
// limit. Every counter mutation runs in its own transaction with the counter
// row locked, so concurrent failures for one account serialize.
type LockoutTracker struct {
	config LockoutConfig
	tx     TxRunner
	clock  Clock
}

// NewLockoutTracker creates a new lockout tracker.
func NewLockoutTracker(config LockoutConfig, tx TxRunner, clock Clock) *LockoutTracker {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultMaxAttempts
	}
	if config.BlockDuration <= 0 {
		config.BlockDuration = DefaultBlockDuration
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &LockoutTracker{config: config, tx: tx, clock: clock}
}

// OnLoginFailure records a failed login. The failure that brings the counter
// to MaxAttempts resets it to 0, sets the lock time and blocks the account.
// It reports whether the account was blocked by this call. Failures against
// an account that is no longer ACTIVE, such as one blocked by a concurrent
// login, leave the counter untouched.
func (t *LockoutTracker) OnLoginFailure(ctx context.Context, accountID int64) (bool, error) {
	var blocked bool

	err := t.tx.InTx(ctx, func(ctx context.Context, s Stores) error {
		attempt, err := lockedCounter(ctx, s, accountID)
		if err != nil {
			return err
		}

		// Status is read under the counter lock.
		account, err := s.Accounts.GetByID(ctx, accountID)
		if err != nil {
			return err
		}
		if !account.CanAuthenticate() {
			return nil
		}

		attempt.NumberAttempt++
		if attempt.NumberAttempt >= t.config.MaxAttempts {
			attempt.NumberAttempt = 0
			attempt.LockTime = t.clock.Now().Add(t.config.BlockDuration).UnixMilli()

			if account.Status.CanTransition(domain.StatusBlock) {
				if err := s.Accounts.UpdateStatus(ctx, accountID, domain.StatusBlock); err != nil {
					return err
				}
				blocked = true
			}
		}

		return s.Attempts.Update(ctx, attempt)
	})
	if err != nil {
		return false, err
	}
	return blocked, nil
}

// OnLoginSuccess resets the failure counter.
func (t *LockoutTracker) OnLoginSuccess(ctx context.Context, accountID int64) error {
	return t.tx.InTx(ctx, func(ctx context.Context, s Stores) error {
		attempt, err := lockedCounter(ctx, s, accountID)
		if err != nil {
			return err
		}
		if attempt.NumberAttempt == 0 {
			return nil
		}
		attempt.NumberAttempt = 0
		return s.Attempts.Update(ctx, attempt)
	})
}

// IsBlockExpired returns true if the account is blocked and its lock time has passed.
func (t *LockoutTracker) IsBlockExpired(ctx context.Context, account *domain.Account) (bool, error) {
	if account.Status != domain.StatusBlock {
		return false, nil
	}
	attempt, err := t.tx.Stores().Attempts.GetByAccountID(ctx, account.ID)
	if err != nil {
		return false, counterErr(account.ID, err)
	}
	return attempt.LockExpired(t.clock.Now()), nil
}

// UnblockIfExpired moves an expired BLOCK back to ACTIVE and updates account
// in place. It reports whether the account was unblocked.
func (t *LockoutTracker) UnblockIfExpired(ctx context.Context, account *domain.Account) (bool, error) {
	if account.Status != domain.StatusBlock {
		return false, nil
	}

	var unblocked bool
	err := t.tx.InTx(ctx, func(ctx context.Context, s Stores) error {
		attempt, err := lockedCounter(ctx, s, account.ID)
		if err != nil {
			return err
		}

		// Re-read under the counter lock; a concurrent login may have
		// already unblocked the account.
		current, err := s.Accounts.GetByID(ctx, account.ID)
		if err != nil {
			return err
		}
		if current.Status != domain.StatusBlock || !attempt.LockExpired(t.clock.Now()) {
			account.Status = current.Status
			return nil
		}

		if err := s.Accounts.UpdateStatus(ctx, account.ID, domain.StatusActive); err != nil {
			return err
		}
		account.Status = domain.StatusActive
		unblocked = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return unblocked, nil
}

func lockedCounter(ctx context.Context, s Stores, accountID int64) (*domain.LoginAttempt, error) {
	attempt, err := s.Attempts.GetByAccountIDForUpdate(ctx, accountID)
	if err != nil {
		return nil, counterErr(accountID, err)
	}
	return attempt, nil
}

func counterErr(accountID int64, err error) error {
	return fmt.Errorf("account %d: %w", accountID, err)
}
