package domain

import "time"

// Status is the lifecycle state of an account.
type Status string

// Account statuses. DELETE is terminal.
const (
	StatusAwait  Status = "AWAIT"
	StatusActive Status = "ACTIVE"
	StatusBlock  Status = "BLOCK"
	StatusDelete Status = "DELETE"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusAwait, StatusActive, StatusBlock, StatusDelete:
		return true
	}
	return false
}

// CanTransition reports whether an account in status s may move to status to.
//
//	AWAIT  -> ACTIVE  (confirmation)
//	ACTIVE -> BLOCK   (lockout)
//	BLOCK  -> ACTIVE  (block expired)
func (s Status) CanTransition(to Status) bool {
	switch s {
	case StatusAwait:
		return to == StatusActive
	case StatusActive:
		return to == StatusBlock
	case StatusBlock:
		return to == StatusActive
	}
	return false
}

// Role is the authorization scope embedded in access tokens.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Account represents a portal user.
type Account struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Status       Status
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CanAuthenticate returns true if the account may log in.
func (a *Account) CanAuthenticate() bool {
	return a.Status == StatusActive
}

// AuthenticationError returns why the account may not authenticate:
// ErrAccountBanned for BLOCK and DELETE, ErrAccountDisabled for AWAIT, nil
// for ACTIVE.
func (a *Account) AuthenticationError() error {
	if a.CanAuthenticate() {
		return nil
	}
	if a.Status == StatusAwait {
		return ErrAccountDisabled
	}
	return ErrAccountBanned
}

// LoginAttempt counts consecutive failed logins for one account.
// LockTime is epoch milliseconds; 0 means the account was never locked.
type LoginAttempt struct {
	ID            int64
	AccountID     int64
	NumberAttempt int
	LockTime      int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// LockExpired returns true once the lock time lies in the past.
func (a *LoginAttempt) LockExpired(now time.Time) bool {
	return a.LockTime < now.UnixMilli()
}
