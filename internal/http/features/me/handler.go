package me

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/tendant/portal-auth/internal/http/features/common"
	"github.com/tendant/portal-auth/internal/http/middleware"
	"github.com/tendant/portal-auth/internal/httputil"
	"github.com/tendant/portal-auth/pkg/domain"
)

// Service is the subset of auth.Service used by the profile endpoint.
type Service interface {
	GetAccount(ctx context.Context, username string) (*domain.Account, error)
}

// Handler handles user profile endpoints.
type Handler struct {
	logger  *slog.Logger
	service Service
}

// NewHandler creates a new me handler.
func NewHandler(logger *slog.Logger, service Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// UserResponse represents the user profile response.
type UserResponse struct {
	Username string        `json:"username"`
	Email    string        `json:"email"`
	Role     domain.Role   `json:"role"`
	Status   domain.Status `json:"status"`
}

// GetMe returns the current user's profile.
// GET /me
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.GetPrincipal(r)
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	account, err := h.service.GetAccount(r.Context(), principal.Username)
	if err != nil {
		common.WriteError(w, r, h.logger, err, "failed to get user")
		return
	}

	httputil.JSON(w, http.StatusOK, UserResponse{
		Username: account.Username,
		Email:    account.Email,
		Role:     account.Role,
		Status:   account.Status,
	})
}
