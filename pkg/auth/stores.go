package auth

import (
	"context"

	"github.com/tendant/portal-auth/pkg/domain"
)

// AccountStore persists accounts. Lookups return domain.ErrAccountNotFound
// when nothing matches.
type AccountStore interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id int64) (*domain.Account, error)
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	GetByUsernameOrEmail(ctx context.Context, username, email string) (*domain.Account, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	UpdateStatus(ctx context.Context, id int64, status domain.Status) error
}

// AttemptStore persists login attempt counters. Lookups return
// domain.ErrAttemptCounterMissing when the account has no counter.
type AttemptStore interface {
	Create(ctx context.Context, attempt *domain.LoginAttempt) error
	GetByAccountID(ctx context.Context, accountID int64) (*domain.LoginAttempt, error)
	// GetByAccountIDForUpdate locks the counter until the surrounding
	// transaction ends.
	GetByAccountIDForUpdate(ctx context.Context, accountID int64) (*domain.LoginAttempt, error)
	Update(ctx context.Context, attempt *domain.LoginAttempt) error
}

// ConfirmationTokenStore persists confirmation tokens.
type ConfirmationTokenStore interface {
	Create(ctx context.Context, token *domain.ConfirmationToken) error
	GetByToken(ctx context.Context, token string) (*domain.ConfirmationToken, error)
	// DeleteByToken reports whether a row was removed.
	DeleteByToken(ctx context.Context, token string) (bool, error)
	DeleteByAccountID(ctx context.Context, accountID int64) error
}

// RefreshTokenStore persists refresh tokens.
type RefreshTokenStore interface {
	Create(ctx context.Context, token *domain.RefreshToken) error
	GetByToken(ctx context.Context, token string) (*domain.RefreshToken, error)
	GetByTokenForUpdate(ctx context.Context, token string) (*domain.RefreshToken, error)
	// Rotate replaces oldToken in place. It returns
	// domain.ErrRefreshTokenNotFound if oldToken no longer exists.
	Rotate(ctx context.Context, oldToken, newToken string, lifetime int64) error
	// DeleteByToken is a no-op for unknown tokens.
	DeleteByToken(ctx context.Context, token string) error
}

// Stores groups the stores bound to one database handle.
type Stores struct {
	Accounts      AccountStore
	Attempts      AttemptStore
	Confirmations ConfirmationTokenStore
	RefreshTokens RefreshTokenStore
}

// TxRunner hands out stores, either bound to the pool or to a single
// transaction.
type TxRunner interface {
	Stores() Stores
	// InTx commits when fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}
