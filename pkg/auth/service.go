package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tendant/portal-auth/pkg/domain"
)

// Notifier receives registration events. Implementations must not block on
// delivery.
type Notifier interface {
	NotifyRegistration(ctx context.Context, account *domain.Account, token *domain.ConfirmationToken) error
}

// ServiceConfig wires the collaborators of Service.
type ServiceConfig struct {
	Logger        *slog.Logger
	Tx            TxRunner
	Hasher        PasswordHasher
	Codec         *TokenCodec
	Lockout       *LockoutTracker
	Confirmations *ConfirmationManager
	RefreshTokens *RefreshTokenManager
	Notifier      Notifier
	Clock         Clock
}

// Service implements registration, login, confirmation, refresh and logout.
type Service struct {
	logger        *slog.Logger
	tx            TxRunner
	hasher        PasswordHasher
	codec         *TokenCodec
	lockout       *LockoutTracker
	confirmations *ConfirmationManager
	refreshTokens *RefreshTokenManager
	notifier      Notifier
	clock         Clock

	dummyOnce sync.Once
	dummyHash string
}

// NewService creates a new auth service.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	return &Service{
		logger:        cfg.Logger,
		tx:            cfg.Tx,
		hasher:        cfg.Hasher,
		codec:         cfg.Codec,
		lockout:       cfg.Lockout,
		confirmations: cfg.Confirmations,
		refreshTokens: cfg.RefreshTokens,
		notifier:      cfg.Notifier,
		clock:         cfg.Clock,
	}
}

// Codec returns the access token codec.
func (s *Service) Codec() *TokenCodec {
	return s.codec
}

// Register creates an account awaiting confirmation together with its login
// attempt counter and a confirmation token, then notifies the owner.
// Notification failures are logged and do not fail the registration.
func (s *Service) Register(ctx context.Context, username, email, password string) (*domain.Account, error) {
	email = NormalizeEmail(email)

	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	existing, err := s.tx.Stores().Accounts.GetByUsernameOrEmail(ctx, username, email)
	switch {
	case err == nil:
		if existing.Username == username {
			return nil, domain.ErrUsernameAlreadyExists
		}
		return nil, domain.ErrEmailAlreadyExists
	case !errors.Is(err, domain.ErrAccountNotFound):
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.clock.Now()
	account := &domain.Account{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Status:       domain.StatusAwait,
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var token *domain.ConfirmationToken
	err = s.tx.InTx(ctx, func(ctx context.Context, st Stores) error {
		if err := st.Accounts.Create(ctx, account); err != nil {
			return err
		}
		if err := st.Attempts.Create(ctx, &domain.LoginAttempt{AccountID: account.ID}); err != nil {
			return err
		}
		issued, err := s.confirmations.issue(ctx, st, account.ID, 0)
		if err != nil {
			return err
		}
		token = issued
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyRegistration(ctx, account, token)
	return account, nil
}

// ResendConfirmation issues a fresh token for an account still awaiting
// confirmation. Unknown emails and confirmed accounts are ignored.
func (s *Service) ResendConfirmation(ctx context.Context, email string) error {
	account, err := s.tx.Stores().Accounts.GetByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, domain.ErrAccountNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if account.Status != domain.StatusAwait {
		return nil
	}

	token, err := s.confirmations.Issue(ctx, account.ID, 0)
	if err != nil {
		return err
	}
	s.notifyRegistration(ctx, account, token)
	return nil
}

func (s *Service) notifyRegistration(ctx context.Context, account *domain.Account, token *domain.ConfirmationToken) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyRegistration(ctx, account, token); err != nil {
		s.logger.Error("failed to enqueue confirmation email",
			"account_id", account.ID,
			"error", err,
		)
	}
}

// Login authenticates a username and password.
//
// An expired block is lifted first. Blocked and deleted accounts are then
// rejected with domain.ErrAccountBanned and unconfirmed ones with
// domain.ErrAccountDisabled, before the password is looked at. A wrong
// password counts towards the lockout and returns
// domain.ErrIncorrectCredentials.
func (s *Service) Login(ctx context.Context, username, password string) (*domain.AuthResult, error) {
	account, err := s.tx.Stores().Accounts.GetByUsername(ctx, username)
	if errors.Is(err, domain.ErrAccountNotFound) {
		// Spend the same hashing time as a wrong password.
		s.hasher.Verify(password, s.dummyPasswordHash())
		return nil, domain.ErrIncorrectCredentials
	}
	if err != nil {
		return nil, err
	}

	if _, err := s.lockout.UnblockIfExpired(ctx, account); err != nil {
		return nil, err
	}

	if err := account.AuthenticationError(); err != nil {
		return nil, err
	}

	if !s.hasher.Verify(password, account.PasswordHash) {
		blocked, err := s.lockout.OnLoginFailure(ctx, account.ID)
		if err != nil {
			return nil, err
		}
		if blocked {
			s.logger.Warn("account blocked after repeated login failures", "account_id", account.ID)
		}
		return nil, domain.ErrIncorrectCredentials
	}

	if err := s.lockout.OnLoginSuccess(ctx, account.ID); err != nil {
		return nil, err
	}

	refresh, err := s.refreshTokens.Issue(ctx, account.ID, 0)
	if err != nil {
		return nil, err
	}
	access, err := s.codec.CreateToken(account.Username, account.Role, 0)
	if err != nil {
		return nil, err
	}

	return &domain.AuthResult{
		Username:     account.Username,
		Email:        account.Email,
		CreatedAt:    account.CreatedAt,
		UpdatedAt:    account.UpdatedAt,
		AccessToken:  access,
		RefreshToken: refresh.Token,
		Timestamp:    s.clock.Now(),
	}, nil
}

// dummyPasswordHash returns a hash to verify against when the username is
// unknown. It is computed once with the configured hasher parameters.
func (s *Service) dummyPasswordHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("portal-auth-unknown-account")
		if err != nil {
			s.logger.Error("failed to compute dummy password hash", "error", err)
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

// Confirm activates the account owning rawToken.
func (s *Service) Confirm(ctx context.Context, rawToken string) (int64, error) {
	return s.confirmations.Confirm(ctx, rawToken)
}

// Refresh rotates a refresh token and returns a new token pair. Like Login,
// an expired block on the owning account is lifted first, and blocked,
// deleted or unconfirmed accounts are refused.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*domain.AuthResult, error) {
	if err := s.unblockTokenOwner(ctx, refreshToken); err != nil {
		return nil, err
	}

	rotated, err := s.refreshTokens.Rotate(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	return &domain.AuthResult{
		Username:     rotated.Account.Username,
		Email:        rotated.Account.Email,
		CreatedAt:    rotated.Account.CreatedAt,
		UpdatedAt:    rotated.Account.UpdatedAt,
		AccessToken:  rotated.AccessToken,
		RefreshToken: rotated.RefreshToken.Token,
		Timestamp:    s.clock.Now(),
	}, nil
}

// unblockTokenOwner lifts an expired block on the account owning
// refreshToken. Unknown tokens are left for Rotate to report.
func (s *Service) unblockTokenOwner(ctx context.Context, refreshToken string) error {
	stores := s.tx.Stores()
	token, err := stores.RefreshTokens.GetByToken(ctx, refreshToken)
	if errors.Is(err, domain.ErrRefreshTokenNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	account, err := stores.Accounts.GetByID(ctx, token.AccountID)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = s.lockout.UnblockIfExpired(ctx, account)
	return err
}

// Logout revokes a refresh token. It is idempotent.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	return s.refreshTokens.Revoke(ctx, refreshToken)
}

// CheckUsernameExists reports whether username is taken.
func (s *Service) CheckUsernameExists(ctx context.Context, username string) (bool, error) {
	return s.tx.Stores().Accounts.ExistsByUsername(ctx, username)
}

// CheckEmailExists reports whether email is taken.
func (s *Service) CheckEmailExists(ctx context.Context, email string) (bool, error) {
	return s.tx.Stores().Accounts.ExistsByEmail(ctx, NormalizeEmail(email))
}

// GetAccount returns the account for a username.
func (s *Service) GetAccount(ctx context.Context, username string) (*domain.Account, error) {
	return s.tx.Stores().Accounts.GetByUsername(ctx, username)
}
