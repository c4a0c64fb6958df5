package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/tendant/portal-auth/internal/httputil"
	"github.com/tendant/portal-auth/pkg/auth"
	"github.com/tendant/portal-auth/pkg/domain"
)

// Auth creates middleware that validates the access token carried in the
// configured header and stores the caller's principal in the request context.
func Auth(codec *auth.TokenCodec, headers httputil.HeaderConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := httputil.GetAccessToken(r, headers)
			if !ok {
				httputil.Error(w, http.StatusUnauthorized, "missing authorization")
				return
			}

			principal, err := codec.Authenticate(raw)
			if err != nil {
				if logger != nil {
					logger.Debug("rejected access token", "path", r.URL.Path, "error", err)
				}
				httputil.Error(w, http.StatusUnauthorized, tokenErrorMessage(err))
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
		})
	}
}

func tokenErrorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrAccessTokenExpired):
		return "access token expired"
	case errors.Is(err, domain.ErrMalformedToken):
		return "malformed access token"
	default:
		return "invalid access token"
	}
}

// GetPrincipal extracts the authenticated principal from the request context.
func GetPrincipal(r *http.Request) (*auth.Principal, bool) {
	return auth.PrincipalFrom(r.Context())
}
