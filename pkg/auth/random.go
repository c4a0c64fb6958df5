package auth

import (
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// newConfirmationToken returns 32 hex characters drawn from a random UUID.
func newConfirmationToken() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate confirmation token: %w", err)
	}
	return hex.EncodeToString(id[:]), nil
}

// newRefreshToken returns a random UUID string.
func newRefreshToken() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return id.String(), nil
}
