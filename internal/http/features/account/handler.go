package account

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tendant/portal-auth/internal/http/features/common"
	"github.com/tendant/portal-auth/internal/httputil"
	"github.com/tendant/portal-auth/pkg/domain"
)

// Service is the subset of auth.Service used by the account endpoints.
type Service interface {
	Register(ctx context.Context, username, email, password string) (*domain.Account, error)
	Login(ctx context.Context, username, password string) (*domain.AuthResult, error)
	Confirm(ctx context.Context, rawToken string) (int64, error)
	ResendConfirmation(ctx context.Context, email string) error
	CheckUsernameExists(ctx context.Context, username string) (bool, error)
	CheckEmailExists(ctx context.Context, email string) (bool, error)
}

// Handler handles registration, login, confirmation and availability checks.
type Handler struct {
	logger  *slog.Logger
	service Service
	headers httputil.HeaderConfig
}

// NewHandler creates a new account handler.
func NewHandler(logger *slog.Logger, service Service, headers httputil.HeaderConfig) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, headers: headers}
}

// RegisterRequest represents a registration request.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterResponse represents a registration response.
type RegisterResponse struct {
	UserID    int64         `json:"user_id"`
	Message   string        `json:"message"`
	Status    domain.Status `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
}

// LoginRequest represents a login request.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse carries a freshly issued token pair.
type AuthResponse struct {
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	CreateAt      time.Time `json:"create_at"`
	UpdateAt      time.Time `json:"update_at"`
	Authorization string    `json:"authorization"`
	RefreshToken  string    `json:"refresh_token"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewAuthResponse converts a service result into its wire form.
func NewAuthResponse(result *domain.AuthResult) AuthResponse {
	return AuthResponse{
		Username:      result.Username,
		Email:         result.Email,
		CreateAt:      result.CreatedAt,
		UpdateAt:      result.UpdatedAt,
		Authorization: result.AccessToken,
		RefreshToken:  result.RefreshToken,
		Timestamp:     result.Timestamp,
	}
}

// ResendRequest represents a request for a new confirmation email.
type ResendRequest struct {
	Email string `json:"email"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Register creates an account awaiting email confirmation.
// POST /registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Email == "" || req.Password == "" {
		httputil.Error(w, http.StatusBadRequest, "username, email and password are required")
		return
	}

	account, err := h.service.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		common.WriteError(w, r, h.logger, err, "failed to register")
		return
	}

	h.logger.Info("account registered", "account_id", account.ID)

	httputil.JSON(w, http.StatusCreated, RegisterResponse{
		UserID:    account.ID,
		Message:   "registration successful, check your email to confirm the account",
		Status:    account.Status,
		Timestamp: time.Now().UTC(),
	})
}

// Login authenticates with username and password.
// POST /login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	if req.Username == "" || req.Password == "" {
		httputil.Error(w, http.StatusBadRequest, "username and password are required")
		return
	}

	result, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		common.WriteError(w, r, h.logger, err, "failed to login")
		return
	}

	httputil.SetAuthHeaders(w, result.AccessToken, result.RefreshToken, h.headers)
	httputil.JSON(w, http.StatusOK, NewAuthResponse(result))
}

// Confirm activates the account owning the token.
// GET /confirmation/{token}
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		httputil.Error(w, http.StatusBadRequest, "token is required")
		return
	}

	accountID, err := h.service.Confirm(r.Context(), token)
	if err != nil {
		common.WriteError(w, r, h.logger, err, "failed to confirm account")
		return
	}

	h.logger.Info("account confirmed", "account_id", accountID)

	httputil.JSON(w, http.StatusOK, MessageResponse{
		Message:   "account confirmed",
		Timestamp: time.Now().UTC(),
	})
}

// ResendConfirmation sends a new confirmation email. The response does not
// reveal whether the email is registered.
// POST /confirmation/resend
func (h *Handler) ResendConfirmation(w http.ResponseWriter, r *http.Request) {
	var req ResendRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" {
		httputil.Error(w, http.StatusBadRequest, "email is required")
		return
	}

	if err := h.service.ResendConfirmation(r.Context(), req.Email); err != nil {
		common.WriteError(w, r, h.logger, err, "failed to resend confirmation")
		return
	}

	httputil.JSON(w, http.StatusAccepted, MessageResponse{
		Message:   "if the account is awaiting confirmation, an email has been sent",
		Timestamp: time.Now().UTC(),
	})
}

// CheckName reports whether a username is free.
// GET /checkname?username=
func (h *Handler) CheckName(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.URL.Query().Get("username"))
	if username == "" {
		httputil.Error(w, http.StatusBadRequest, "username is required")
		return
	}

	taken, err := h.service.CheckUsernameExists(r.Context(), username)
	h.writeAvailability(w, r, taken, err, "username already exists")
}

// CheckEmail reports whether an email is free.
// GET /checkemail?email=
func (h *Handler) CheckEmail(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		httputil.Error(w, http.StatusBadRequest, "email is required")
		return
	}

	taken, err := h.service.CheckEmailExists(r.Context(), email)
	h.writeAvailability(w, r, taken, err, "email already exists")
}

func (h *Handler) writeAvailability(w http.ResponseWriter, r *http.Request, taken bool, err error, takenMessage string) {
	if err != nil {
		common.WriteError(w, r, h.logger, err, "failed to check availability")
		return
	}
	if taken {
		httputil.Error(w, http.StatusConflict, takenMessage)
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]bool{"available": true})
}
