package common

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/tendant/portal-auth/internal/httputil"
	"github.com/tendant/portal-auth/pkg/domain"
)

// WriteError maps a service error to its HTTP status and writes it. Errors
// with no mapping are logged and answered with 500 and fallback as message.
func WriteError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, fallback string) {
	status, message := Classify(err)
	if status == http.StatusInternalServerError {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Error(fallback, "path", r.URL.Path, "error", err)
		message = fallback
	}
	httputil.Error(w, status, message)
}

// Classify returns the HTTP status and client message for err.
func Classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrUsernameAlreadyExists):
		return http.StatusConflict, "username already exists"
	case errors.Is(err, domain.ErrEmailAlreadyExists):
		return http.StatusConflict, "email already exists"
	case errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict, "account already exists"
	case errors.Is(err, domain.ErrIncorrectCredentials):
		return http.StatusConflict, "incorrect username or password"
	case errors.Is(err, domain.ErrAccountBanned):
		return http.StatusConflict, "account is blocked"
	case errors.Is(err, domain.ErrAccountDisabled):
		return http.StatusForbidden, "account is not confirmed"

	case errors.Is(err, domain.ErrConfirmationTokenNotFound):
		return http.StatusUnauthorized, "confirmation token not found"
	case errors.Is(err, domain.ErrConfirmationTokenExpired):
		return http.StatusUnauthorized, "confirmation token expired"
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict, "account is not awaiting confirmation"
	case errors.Is(err, domain.ErrRefreshTokenNotFound):
		return http.StatusUnauthorized, "refresh token not found"
	case errors.Is(err, domain.ErrRefreshTokenExpired):
		return http.StatusUnauthorized, "refresh token expired"
	case errors.Is(err, domain.ErrAccessTokenExpired):
		return http.StatusUnauthorized, "access token expired"
	case errors.Is(err, domain.ErrMalformedToken), errors.Is(err, domain.ErrInvalidToken),
		errors.Is(err, domain.ErrBearerMarkerMissing):
		return http.StatusUnauthorized, "invalid access token"

	case errors.Is(err, domain.ErrInvalidUsername),
		errors.Is(err, domain.ErrInvalidEmail),
		errors.Is(err, domain.ErrWeakPassword):
		return http.StatusBadRequest, err.Error()

	case errors.Is(err, domain.ErrAccountNotFound):
		return http.StatusNotFound, "account not found"
	}
	return http.StatusInternalServerError, ""
}
