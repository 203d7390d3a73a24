package auth

import (
	"errors"
	"testing"
	"time"
)

func newTestService(t *testing.T, keys ...string) *Service {
	t.Helper()
	hashes := make([]string, len(keys))
	for i, k := range keys {
		hashes[i] = HashAPIKey(k)
	}
	return NewService(&Config{
		JWTSecret:    []byte("0123456789abcdef0123456789abcdef"),
		TokenExpiry:  time.Hour,
		APIKeyHashes: hashes,
	}, nil)
}

func TestTokenRoundTrip(t *testing.T) {
	svc := newTestService(t)

	token, err := svc.GenerateToken("user-1", "ops@vendix.com")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != "user-1" || claims.Email != "ops@vendix.com" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := newTestService(t)

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := svc.ValidateToken(token); err == nil {
			t.Errorf("ValidateToken(%q) should fail", token)
		}
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	svc := newTestService(t)
	other := NewService(&Config{
		JWTSecret:   []byte("ffffffffffffffffffffffffffffffff"),
		TokenExpiry: time.Hour,
	}, nil)

	token, err := other.GenerateToken("user-1", "")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := svc.ValidateToken(token); err == nil {
		t.Error("token signed with a different secret should be rejected")
	}
}

func TestExpiredToken(t *testing.T) {
	svc := NewService(&Config{
		JWTSecret:   []byte("0123456789abcdef0123456789abcdef"),
		TokenExpiry: -time.Minute,
	}, nil)

	token, err := svc.GenerateToken("user-1", "")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := svc.ValidateToken(token); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("err = %v, want ErrExpiredToken", err)
	}
}

func TestValidateAPIKey(t *testing.T) {
	svc := newTestService(t, "vx_good-key")

	if err := svc.ValidateAPIKey("vx_good-key"); err != nil {
		t.Errorf("known key rejected: %v", err)
	}
	if err := svc.ValidateAPIKey("vx_wrong-key"); !errors.Is(err, ErrInvalidAPIKey) {
		t.Errorf("err = %v, want ErrInvalidAPIKey", err)
	}
	if err := svc.ValidateAPIKey(""); !errors.Is(err, ErrInvalidAPIKey) {
		t.Errorf("err = %v, want ErrInvalidAPIKey", err)
	}
}

func TestValidateAPIKeyNoKeysConfigured(t *testing.T) {
	svc := newTestService(t)

	if err := svc.ValidateAPIKey("anything"); !errors.Is(err, ErrInvalidAPIKey) {
		t.Errorf("err = %v, want ErrInvalidAPIKey when no keys are configured", err)
	}
}

func TestExtractBearerToken(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"Bearer abc123", "abc123"},
		{"bearer abc123", "abc123"},
		{"Basic abc123", ""},
		{"Bearer", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := ExtractBearerToken(tc.header); got != tc.want {
			t.Errorf("ExtractBearerToken(%q) = %q, want %q", tc.header, got, tc.want)
		}
	}
}

func TestGenerateAPIKeyUnique(t *testing.T) {
	a, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey: %v", err)
	}
	b, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey: %v", err)
	}
	if a == b {
		t.Error("keys should be unique")
	}
	if HashAPIKey(a) == HashAPIKey(b) {
		t.Error("hashes should differ")
	}
}
