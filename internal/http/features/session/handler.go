package session

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/tendant/portal-auth/internal/http/features/account"
	"github.com/tendant/portal-auth/internal/http/features/common"
	"github.com/tendant/portal-auth/internal/httputil"
	"github.com/tendant/portal-auth/pkg/domain"
)

// Service is the subset of auth.Service used by the session endpoints.
type Service interface {
	Refresh(ctx context.Context, refreshToken string) (*domain.AuthResult, error)
	Logout(ctx context.Context, refreshToken string) error
}

// Handler handles session endpoints.
type Handler struct {
	logger  *slog.Logger
	service Service
	headers httputil.HeaderConfig
}

// NewHandler creates a new session handler.
func NewHandler(logger *slog.Logger, service Service, headers httputil.HeaderConfig) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, headers: headers}
}

// Refresh exchanges a refresh token for a new token pair.
// POST /refreshtoken
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	token, ok := httputil.GetRefreshToken(r, h.headers)
	if !ok {
		httputil.Error(w, http.StatusBadRequest, "refresh token is required")
		return
	}

	result, err := h.service.Refresh(r.Context(), token)
	if err != nil {
		common.WriteError(w, r, h.logger, err, "failed to refresh token")
		return
	}

	httputil.SetAuthHeaders(w, result.AccessToken, result.RefreshToken, h.headers)
	httputil.JSON(w, http.StatusOK, account.NewAuthResponse(result))
}

// Logout revokes the refresh token. Unknown tokens are not an error.
// POST /exit
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token, ok := httputil.GetRefreshToken(r, h.headers)
	if !ok {
		httputil.Error(w, http.StatusBadRequest, "refresh token is required")
		return
	}

	if err := h.service.Logout(r.Context(), token); err != nil {
		common.WriteError(w, r, h.logger, err, "failed to logout")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
