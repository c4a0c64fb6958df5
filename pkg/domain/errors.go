package domain

import (
	"errors"
	"fmt"
)

// Account errors
var (
	ErrAccountNotFound       = errors.New("account not found")
	ErrAlreadyExists         = errors.New("account already exists")
	ErrUsernameAlreadyExists = fmt.Errorf("%w: username is taken", ErrAlreadyExists)
	ErrEmailAlreadyExists    = fmt.Errorf("%w: email is taken", ErrAlreadyExists)
	ErrIncorrectCredentials  = errors.New("incorrect username or password")
	ErrAccountBanned         = errors.New("account is blocked")
	ErrAccountDisabled       = errors.New("account is not confirmed")
	ErrInvalidTransition     = errors.New("invalid account status transition")
	ErrAttemptCounterMissing = errors.New("login attempt counter missing")
)

// Token errors
var (
	ErrConfirmationTokenNotFound = errors.New("confirmation token not found")
	ErrConfirmationTokenExpired  = errors.New("confirmation token expired")
	ErrRefreshTokenNotFound      = errors.New("refresh token not found")
	ErrRefreshTokenExpired       = errors.New("refresh token expired")
	ErrBearerMarkerMissing       = errors.New("bearer marker missing")
	ErrMalformedToken            = errors.New("malformed token")
	ErrAccessTokenExpired        = errors.New("access token expired")
	ErrInvalidToken              = errors.New("invalid token")
)

// Validation errors
var (
	ErrInvalidUsername = errors.New("invalid username")
	ErrInvalidEmail    = errors.New("invalid email address")
	ErrWeakPassword    = errors.New("password does not meet requirements")
)
