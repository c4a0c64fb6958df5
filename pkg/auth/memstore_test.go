package auth

import (
	"context"
	"sync"
	"time"

	"github.com/tendant/portal-auth/pkg/domain"
)

// memDB is an in-memory TxRunner. InTx serializes transactions and restores
// a snapshot when fn fails.
type memDB struct {
	txMu sync.Mutex
	mu   sync.Mutex

	nextID        int64
	accounts      map[int64]domain.Account
	attempts      map[int64]domain.LoginAttempt
	confirmations map[string]domain.ConfirmationToken
	refreshTokens map[string]domain.RefreshToken
}

func newMemDB() *memDB {
	return &memDB{
		accounts:      map[int64]domain.Account{},
		attempts:      map[int64]domain.LoginAttempt{},
		confirmations: map[string]domain.ConfirmationToken{},
		refreshTokens: map[string]domain.RefreshToken{},
	}
}

type memSnapshot struct {
	nextID        int64
	accounts      map[int64]domain.Account
	attempts      map[int64]domain.LoginAttempt
	confirmations map[string]domain.ConfirmationToken
	refreshTokens map[string]domain.RefreshToken
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (db *memDB) snapshot() memSnapshot {
	db.mu.Lock()
	defer db.mu.Unlock()
	return memSnapshot{
		nextID:        db.nextID,
		accounts:      copyMap(db.accounts),
		attempts:      copyMap(db.attempts),
		confirmations: copyMap(db.confirmations),
		refreshTokens: copyMap(db.refreshTokens),
	}
}

func (db *memDB) restore(s memSnapshot) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.nextID = s.nextID
	db.accounts = s.accounts
	db.attempts = s.attempts
	db.confirmations = s.confirmations
	db.refreshTokens = s.refreshTokens
}

func (db *memDB) Stores() Stores {
	return Stores{
		Accounts:      memAccounts{db},
		Attempts:      memAttempts{db},
		Confirmations: memConfirmations{db},
		RefreshTokens: memRefreshTokens{db},
	}
}

func (db *memDB) InTx(ctx context.Context, fn func(ctx context.Context, s Stores) error) error {
	db.txMu.Lock()
	defer db.txMu.Unlock()

	snap := db.snapshot()
	if err := fn(ctx, db.Stores()); err != nil {
		db.restore(snap)
		return err
	}
	return nil
}

// helpers for assertions

func (db *memDB) account(id int64) domain.Account {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.accounts[id]
}

func (db *memDB) attempt(accountID int64) (domain.LoginAttempt, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	a, ok := db.attempts[accountID]
	return a, ok
}

func (db *memDB) hasConfirmation(token string) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	_, ok := db.confirmations[token]
	return ok
}

func (db *memDB) hasRefreshToken(token string) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	_, ok := db.refreshTokens[token]
	return ok
}

func (db *memDB) setStatus(id int64, status domain.Status) {
	db.mu.Lock()
	defer db.mu.Unlock()
	a := db.accounts[id]
	a.Status = status
	db.accounts[id] = a
}

func (db *memDB) deleteAttempt(accountID int64) {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.attempts, accountID)
}

type memAccounts struct{ db *memDB }

func (s memAccounts) Create(_ context.Context, account *domain.Account) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, a := range s.db.accounts {
		if a.Username == account.Username {
			return domain.ErrUsernameAlreadyExists
		}
		if a.Email == account.Email {
			return domain.ErrEmailAlreadyExists
		}
	}
	s.db.nextID++
	account.ID = s.db.nextID
	s.db.accounts[account.ID] = *account
	return nil
}

func (s memAccounts) find(match func(a domain.Account) bool) (*domain.Account, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, a := range s.db.accounts {
		if match(a) {
			found := a
			return &found, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (s memAccounts) GetByID(_ context.Context, id int64) (*domain.Account, error) {
	return s.find(func(a domain.Account) bool { return a.ID == id })
}

func (s memAccounts) GetByUsername(_ context.Context, username string) (*domain.Account, error) {
	return s.find(func(a domain.Account) bool { return a.Username == username })
}

func (s memAccounts) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	return s.find(func(a domain.Account) bool { return a.Email == email })
}

func (s memAccounts) GetByUsernameOrEmail(_ context.Context, username, email string) (*domain.Account, error) {
	if a, err := s.find(func(a domain.Account) bool { return a.Username == username }); err == nil {
		return a, nil
	}
	return s.find(func(a domain.Account) bool { return a.Email == email })
}

func (s memAccounts) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := s.GetByUsername(ctx, username)
	return err == nil, nil
}

func (s memAccounts) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := s.GetByEmail(ctx, email)
	return err == nil, nil
}

func (s memAccounts) UpdateStatus(_ context.Context, id int64, status domain.Status) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	a, ok := s.db.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.Status = status
	s.db.accounts[id] = a
	return nil
}

type memAttempts struct{ db *memDB }

func (s memAttempts) Create(_ context.Context, attempt *domain.LoginAttempt) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.nextID++
	attempt.ID = s.db.nextID
	s.db.attempts[attempt.AccountID] = *attempt
	return nil
}

func (s memAttempts) GetByAccountID(_ context.Context, accountID int64) (*domain.LoginAttempt, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	a, ok := s.db.attempts[accountID]
	if !ok {
		return nil, domain.ErrAttemptCounterMissing
	}
	return &a, nil
}

func (s memAttempts) GetByAccountIDForUpdate(ctx context.Context, accountID int64) (*domain.LoginAttempt, error) {
	return s.GetByAccountID(ctx, accountID)
}

func (s memAttempts) Update(_ context.Context, attempt *domain.LoginAttempt) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.attempts[attempt.AccountID]; !ok {
		return domain.ErrAttemptCounterMissing
	}
	s.db.attempts[attempt.AccountID] = *attempt
	return nil
}

type memConfirmations struct{ db *memDB }

func (s memConfirmations) Create(_ context.Context, token *domain.ConfirmationToken) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, t := range s.db.confirmations {
		if t.AccountID == token.AccountID {
			return domain.ErrAlreadyExists
		}
	}
	s.db.nextID++
	token.ID = s.db.nextID
	s.db.confirmations[token.Token] = *token
	return nil
}

func (s memConfirmations) GetByToken(_ context.Context, token string) (*domain.ConfirmationToken, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	t, ok := s.db.confirmations[token]
	if !ok {
		return nil, domain.ErrConfirmationTokenNotFound
	}
	return &t, nil
}

func (s memConfirmations) DeleteByToken(_ context.Context, token string) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	_, ok := s.db.confirmations[token]
	delete(s.db.confirmations, token)
	return ok, nil
}

func (s memConfirmations) DeleteByAccountID(_ context.Context, accountID int64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for k, t := range s.db.confirmations {
		if t.AccountID == accountID {
			delete(s.db.confirmations, k)
		}
	}
	return nil
}

type memRefreshTokens struct{ db *memDB }

func (s memRefreshTokens) Create(_ context.Context, token *domain.RefreshToken) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.nextID++
	token.ID = s.db.nextID
	s.db.refreshTokens[token.Token] = *token
	return nil
}

func (s memRefreshTokens) GetByToken(_ context.Context, token string) (*domain.RefreshToken, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	t, ok := s.db.refreshTokens[token]
	if !ok {
		return nil, domain.ErrRefreshTokenNotFound
	}
	return &t, nil
}

func (s memRefreshTokens) GetByTokenForUpdate(ctx context.Context, token string) (*domain.RefreshToken, error) {
	return s.GetByToken(ctx, token)
}

func (s memRefreshTokens) Rotate(_ context.Context, oldToken, newToken string, lifetime int64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	t, ok := s.db.refreshTokens[oldToken]
	if !ok {
		return domain.ErrRefreshTokenNotFound
	}
	delete(s.db.refreshTokens, oldToken)
	t.Token = newToken
	t.Lifetime = lifetime
	s.db.refreshTokens[newToken] = t
	return nil
}

func (s memRefreshTokens) DeleteByToken(_ context.Context, token string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	delete(s.db.refreshTokens, token)
	return nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingNotifier struct {
	mu     sync.Mutex
	tokens []string
	err    error
}

func (n *recordingNotifier) NotifyRegistration(_ context.Context, _ *domain.Account, token *domain.ConfirmationToken) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tokens = append(n.tokens, token.Token)
	return n.err
}

func (n *recordingNotifier) last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.tokens) == 0 {
		return ""
	}
	return n.tokens[len(n.tokens)-1]
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.tokens)
}

var testHasherParams = Argon2Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

type harness struct {
	db       *memDB
	clock    *fakeClock
	codec    *TokenCodec
	lockout  *LockoutTracker
	confirm  *ConfirmationManager
	refresh  *RefreshTokenManager
	notifier *recordingNotifier
	svc      *Service
}

func newHarness(maxAttempts int) *harness {
	db := newMemDB()
	clock := newFakeClock()
	codec := NewTokenCodec(TokenConfig{Secret: []byte("test-secret"), Issuer: "portal-auth"}, clock)
	lockout := NewLockoutTracker(LockoutConfig{MaxAttempts: maxAttempts, BlockDuration: 10 * time.Minute}, db, clock)
	confirm := NewConfirmationManager(ConfirmationConfig{TTL: time.Hour}, db, clock)
	refresh := NewRefreshTokenManager(RefreshConfig{TTL: 24 * time.Hour}, db, codec, clock)
	notifier := &recordingNotifier{}

	svc := NewService(ServiceConfig{
		Tx:            db,
		Hasher:        NewArgon2Hasher(testHasherParams),
		Codec:         codec,
		Lockout:       lockout,
		Confirmations: confirm,
		RefreshTokens: refresh,
		Notifier:      notifier,
		Clock:         clock,
	})

	return &harness{
		db:       db,
		clock:    clock,
		codec:    codec,
		lockout:  lockout,
		confirm:  confirm,
		refresh:  refresh,
		notifier: notifier,
		svc:      svc,
	}
}

// seedAccount stores an account with a counter and returns its id.
func (h *harness) seedAccount(username string, status domain.Status) int64 {
	s := h.db.Stores()
	ctx := context.Background()
	a := &domain.Account{
		Username: username,
		Email:    username + "@example.com",
		Status:   status,
		Role:     domain.RoleUser,
	}
	if err := s.Accounts.Create(ctx, a); err != nil {
		panic(err)
	}
	if err := s.Attempts.Create(ctx, &domain.LoginAttempt{AccountID: a.ID}); err != nil {
		panic(err)
	}
	return a.ID
}
