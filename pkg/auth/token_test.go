package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tendant/portal-auth/pkg/domain"
)

func newTestCodec(clock Clock) *TokenCodec {
	return NewTokenCodec(TokenConfig{Secret: []byte("test-secret"), Issuer: "portal-auth"}, clock)
}

func TestTokenCodec_RoundTrip(t *testing.T) {
	codec := newTestCodec(nil)

	for _, subject := range []string{"alice", "bob.smith", "user_42", "ü"} {
		token, err := codec.CreateToken(subject, domain.RoleUser, time.Hour)
		if err != nil {
			t.Fatalf("CreateToken(%q) failed: %v", subject, err)
		}

		got, err := codec.GetSubject(token)
		if err != nil {
			t.Fatalf("GetSubject failed: %v", err)
		}
		if got != subject {
			t.Errorf("GetSubject() = %q, want %q", got, subject)
		}
	}
}

func TestTokenCodec_Expiry(t *testing.T) {
	codec := newTestCodec(nil)

	expired, err := codec.CreateToken("alice", domain.RoleUser, -time.Second)
	if err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}
	if codec.IsValid(expired) {
		t.Error("token with negative ttl should be rejected")
	}
	if _, err := codec.GetSubject(expired); !errors.Is(err, domain.ErrAccessTokenExpired) {
		t.Errorf("GetSubject() error = %v, want %v", err, domain.ErrAccessTokenExpired)
	}

	fresh, err := codec.CreateToken("alice", domain.RoleUser, time.Hour)
	if err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}
	if !codec.IsValid(fresh) {
		t.Error("freshly created token should be valid")
	}
}

func TestTokenCodec_ExpiresWithClock(t *testing.T) {
	clock := newFakeClock()
	codec := newTestCodec(clock)

	token, err := codec.CreateToken("alice", domain.RoleUser, time.Minute)
	if err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}
	if !codec.IsValid(token) {
		t.Fatal("token should be valid before expiry")
	}

	clock.Advance(2 * time.Minute)
	if codec.IsValid(token) {
		t.Error("token should be invalid after expiry")
	}
}

func TestTokenCodec_DefaultTTL(t *testing.T) {
	codec := newTestCodec(newFakeClock())

	token, err := codec.CreateToken("alice", domain.RoleAdmin, 0)
	if err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}

	claims, err := codec.Parse(token)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != DefaultAccessTokenTTL {
		t.Errorf("token lifetime = %v, want %v", got, DefaultAccessTokenTTL)
	}
	if claims.Role != string(domain.RoleAdmin) {
		t.Errorf("Role = %q, want %q", claims.Role, domain.RoleAdmin)
	}
	if claims.Issuer != "portal-auth" {
		t.Errorf("Issuer = %q, want %q", claims.Issuer, "portal-auth")
	}
	if claims.ID == "" {
		t.Error("token should carry an ID")
	}
}

func TestTokenCodec_BearerMarker(t *testing.T) {
	codec := newTestCodec(nil)

	token, err := codec.CreateToken("alice", domain.RoleUser, time.Hour)
	if err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}
	if !strings.HasPrefix(token, DefaultBearerMarker) {
		t.Errorf("token %q should start with %q", token, DefaultBearerMarker)
	}

	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr error
	}{
		{"marker present", "Bearer_abc.def.ghi", "abc.def.ghi", nil},
		{"marker absent", "abc.def.ghi", "", domain.ErrBearerMarkerMissing},
		{"space scheme is not the marker", "Bearer abc", "", domain.ErrBearerMarkerMissing},
		{"only one marker stripped", "Bearer_Bearer_abc", "Bearer_abc", nil},
		{"empty", "", "", domain.ErrBearerMarkerMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := codec.StripBearerMarker(tt.raw)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("StripBearerMarker(%q) error = %v, want %v", tt.raw, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("StripBearerMarker(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestTokenCodec_CustomMarker(t *testing.T) {
	codec := NewTokenCodec(TokenConfig{Secret: []byte("s"), BearerMarker: "Token:"}, nil)

	token, err := codec.CreateToken("alice", domain.RoleUser, time.Hour)
	if err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}
	if !strings.HasPrefix(token, "Token:") {
		t.Errorf("token %q should start with custom marker", token)
	}
	if !codec.IsValid(token) {
		t.Error("token with custom marker should be valid")
	}
}

func TestTokenCodec_RejectsBadInput(t *testing.T) {
	codec := newTestCodec(nil)
	other := NewTokenCodec(TokenConfig{Secret: []byte("other-secret")}, nil)

	foreign, err := other.CreateToken("alice", domain.RoleUser, time.Hour)
	if err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}

	valid, err := codec.CreateToken("alice", domain.RoleUser, time.Hour)
	if err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}
	unmarked := strings.TrimPrefix(valid, DefaultBearerMarker)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("failed to build unsigned token: %v", err)
	}

	tests := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{"garbage", "Bearer_not-a-token", domain.ErrMalformedToken},
		{"empty after marker", "Bearer_", domain.ErrMalformedToken},
		{"missing marker", unmarked, domain.ErrMalformedToken},
		{"wrong secret", foreign, domain.ErrInvalidToken},
		{"unsigned", DefaultBearerMarker + none, domain.ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if codec.IsValid(tt.raw) {
				t.Errorf("IsValid(%q) = true, want false", tt.raw)
			}
			if _, err := codec.GetSubject(tt.raw); !errors.Is(err, tt.wantErr) {
				t.Errorf("GetSubject() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
