package httputil

import (
	"net/http"
	"strings"
)

// HeaderConfig names the headers that carry tokens.
type HeaderConfig struct {
	AuthHeader    string
	RefreshHeader string
}

// DefaultHeaderConfig returns the default token header names.
func DefaultHeaderConfig() HeaderConfig {
	return HeaderConfig{
		AuthHeader:    "Authorization",
		RefreshHeader: "RefreshToken",
	}
}

// SetAuthHeaders echoes the issued access and refresh tokens as response
// headers. The access token already carries its bearer marker.
func SetAuthHeaders(w http.ResponseWriter, accessToken, refreshToken string, cfg HeaderConfig) {
	w.Header().Set(cfg.AuthHeader, accessToken)
	w.Header().Set(cfg.RefreshHeader, refreshToken)
	w.Header().Add("Access-Control-Expose-Headers", cfg.AuthHeader+", "+cfg.RefreshHeader)
}

// GetRefreshToken extracts the refresh token from its header.
func GetRefreshToken(r *http.Request, cfg HeaderConfig) (string, bool) {
	token := strings.TrimSpace(r.Header.Get(cfg.RefreshHeader))
	return token, token != ""
}

// GetAccessToken extracts the raw access token header, marker included.
func GetAccessToken(r *http.Request, cfg HeaderConfig) (string, bool) {
	token := strings.TrimSpace(r.Header.Get(cfg.AuthHeader))
	return token, token != ""
}
