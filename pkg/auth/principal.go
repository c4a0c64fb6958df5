package auth

import (
	"context"

	"github.com/tendant/portal-auth/pkg/domain"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	Username string
	Role     domain.Role
}

type principalKey struct{}

// WithPrincipal returns a context carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal stored in ctx.
func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}

// Authenticate validates a raw access token, bearer marker included, and
// returns its principal.
func (c *TokenCodec) Authenticate(raw string) (*Principal, error) {
	claims, err := c.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &Principal{Username: claims.Subject, Role: domain.Role(claims.Role)}, nil
}
