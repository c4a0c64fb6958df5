package auth

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"github.com/tendant/portal-auth/pkg/domain"
)

const (
	maxUsernameLength = 32
	maxEmailLength    = 64
	minPasswordLength = 8
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)

// ValidateUsername checks length and allowed characters.
func ValidateUsername(username string) error {
	if username == "" || len(username) > maxUsernameLength {
		return fmt.Errorf("%w: must be 1-%d characters", domain.ErrInvalidUsername, maxUsernameLength)
	}
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("%w: letters, digits, '.', '_' and '-' only", domain.ErrInvalidUsername)
	}
	return nil
}

// ValidateEmail checks that email is a bare address that fits the column.
func ValidateEmail(email string) error {
	if email == "" || len(email) > maxEmailLength {
		return fmt.Errorf("%w: must be 1-%d characters", domain.ErrInvalidEmail, maxEmailLength)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return domain.ErrInvalidEmail
	}
	return nil
}

// ValidatePassword enforces the minimum length.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: at least %d characters", domain.ErrWeakPassword, minPasswordLength)
	}
	return nil
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
