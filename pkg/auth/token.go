package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/tendant/portal-auth/pkg/domain"
)

const (
	// DefaultBearerMarker prefixes every serialized access token.
	DefaultBearerMarker = "Bearer_"

	// DefaultAccessTokenTTL is used when no ttl is configured.
	DefaultAccessTokenTTL = 15 * time.Minute
)

// TokenConfig holds access token configuration.
type TokenConfig struct {
	Secret       []byte
	Issuer       string
	BearerMarker string
	TTL          time.Duration
}

// Claims represents the claims in an access token.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
}

// TokenCodec signs and verifies access tokens.
type TokenCodec struct {
	config TokenConfig
	clock  Clock
}

// NewTokenCodec creates a new token codec.
func NewTokenCodec(config TokenConfig, clock Clock) *TokenCodec {
	if config.BearerMarker == "" {
		config.BearerMarker = DefaultBearerMarker
	}
	if config.TTL == 0 {
		config.TTL = DefaultAccessTokenTTL
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &TokenCodec{config: config, clock: clock}
}

// TTL returns the default access token lifetime.
func (c *TokenCodec) TTL() time.Duration {
	return c.config.TTL
}

// BearerMarker returns the prefix carried by serialized tokens.
func (c *TokenCodec) BearerMarker() string {
	return c.config.BearerMarker
}

// CreateToken signs a token for subject and prefixes it with the bearer
// marker. A zero ttl selects the configured default; a negative ttl yields a
// token that is already expired.
func (c *TokenCodec) CreateToken(subject string, role domain.Role, ttl time.Duration) (string, error) {
	if ttl == 0 {
		ttl = c.config.TTL
	}
	now := c.clock.Now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    c.config.Issuer,
			ID:        uuid.NewString(),
		},
		Role: string(role),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.config.Secret)
	if err != nil {
		return "", err
	}
	return c.config.BearerMarker + signed, nil
}

// StripBearerMarker removes the marker prefix. Input without the marker is
// rejected with domain.ErrBearerMarkerMissing; it is never passed through.
func (c *TokenCodec) StripBearerMarker(raw string) (string, error) {
	if !strings.HasPrefix(raw, c.config.BearerMarker) {
		return "", domain.ErrBearerMarkerMissing
	}
	return strings.TrimPrefix(raw, c.config.BearerMarker), nil
}

// Parse verifies a serialized token and returns its claims.
//
// Errors: domain.ErrMalformedToken when the marker is missing or the token
// cannot be decoded, domain.ErrAccessTokenExpired for a well-formed token past
// its expiry, domain.ErrInvalidToken for anything else (bad signature,
// unexpected algorithm).
func (c *TokenCodec) Parse(raw string) (*Claims, error) {
	tokenString, err := c.StripBearerMarker(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformedToken, err)
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidToken
		}
		return c.config.Secret, nil
	}, jwt.WithTimeFunc(c.clock.Now), jwt.WithExpirationRequired())
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, domain.ErrMalformedToken
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, domain.ErrAccessTokenExpired
		default:
			return nil, domain.ErrInvalidToken
		}
	}
	if !token.Valid {
		return nil, domain.ErrInvalidToken
	}
	return claims, nil
}

// IsValid reports whether raw carries a verified, unexpired token. It never
// panics on garbage input.
func (c *TokenCodec) IsValid(raw string) bool {
	_, err := c.Parse(raw)
	return err == nil
}

// GetSubject returns the subject of a valid token.
func (c *TokenCodec) GetSubject(raw string) (string, error) {
	claims, err := c.Parse(raw)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}
