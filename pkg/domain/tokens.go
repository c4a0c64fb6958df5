package domain

import "time"

// ConfirmationToken is the one-time credential mailed after registration.
// Lifetime is the absolute expiry in epoch milliseconds.
type ConfirmationToken struct {
	ID        int64
	Token     string
	Lifetime  int64
	AccountID int64
}

// Expired returns true if the token lifetime has passed.
func (t *ConfirmationToken) Expired(now time.Time) bool {
	return t.Lifetime < now.UnixMilli()
}

// RefreshToken is the opaque credential exchanged for a new access token.
// Lifetime is the absolute expiry in epoch milliseconds.
type RefreshToken struct {
	ID        int64
	Token     string
	Lifetime  int64
	AccountID int64
}

// Expired returns true if the token lifetime has passed.
func (t *RefreshToken) Expired(now time.Time) bool {
	return t.Lifetime < now.UnixMilli()
}

// AuthResult is returned by login and refresh.
type AuthResult struct {
	Username     string
	Email        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	AccessToken  string
	RefreshToken string
	Timestamp    time.Time
}
