package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/tendant/portal-auth/pkg/domain"
)

func TestTokenCodec_Authenticate(t *testing.T) {
	clock := newFakeClock()
	codec := NewTokenCodec(TokenConfig{Secret: []byte("secret")}, clock)

	token, err := codec.CreateToken("alice", domain.RoleAdmin, 0)
	if err != nil {
		t.Fatal(err)
	}

	p, err := codec.Authenticate(token)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if p.Username != "alice" || p.Role != domain.RoleAdmin {
		t.Errorf("principal = %+v", p)
	}

	if _, err := codec.Authenticate("garbage"); !errors.Is(err, domain.ErrMalformedToken) {
		t.Errorf("Authenticate(garbage) error = %v, want %v", err, domain.ErrMalformedToken)
	}
}

func TestPrincipalContext(t *testing.T) {
	ctx := context.Background()
	if _, ok := PrincipalFrom(ctx); ok {
		t.Error("empty context should carry no principal")
	}

	ctx = WithPrincipal(ctx, &Principal{Username: "alice", Role: domain.RoleUser})
	p, ok := PrincipalFrom(ctx)
	if !ok || p.Username != "alice" {
		t.Errorf("PrincipalFrom() = %+v, %v", p, ok)
	}
}
