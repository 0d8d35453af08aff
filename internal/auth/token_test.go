package auth

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestTokenService(t *testing.T, opts ...TokenOption) *TokenService {
	t.Helper()
	svc, err := NewTokenService("unit-test-secret", opts...)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return svc
}

func TestTokenIssueAndValidate(t *testing.T) {
	svc := newTestTokenService(t, WithIssuer("rollbook-test"))

	token, expiresAt, err := svc.Issue("teacher@example.com", RoleTeacher)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !expiresAt.After(time.Now()) {
		t.Fatalf("expected future expiry, got %v", expiresAt)
	}

	claims, err := svc.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.Subject != "teacher@example.com" {
		t.Fatalf("unexpected subject: %s", claims.Subject)
	}
	if claims.Role != RoleTeacher {
		t.Fatalf("unexpected role: %s", claims.Role)
	}
	if claims.Issuer != "rollbook-test" {
		t.Fatalf("unexpected issuer: %s", claims.Issuer)
	}
	if claims.ID == "" {
		t.Fatal("expected jti claim")
	}
}

func TestTokenExpiryBoundary(t *testing.T) {
	issued := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	now := issued
	svc := newTestTokenService(t,
		WithTTL(30*time.Minute),
		WithClock(func() time.Time { return now }),
	)

	token, expiresAt, err := svc.Issue("a@x.com", RoleAdmin)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !expiresAt.Equal(issued.Add(30 * time.Minute)) {
		t.Fatalf("unexpected expiry: %v", expiresAt)
	}

	now = issued.Add(30*time.Minute - time.Second)
	if _, err := svc.Validate(token); err != nil {
		t.Fatalf("token should be valid just before expiry: %v", err)
	}

	now = issued.Add(30 * time.Minute)
	if _, err := svc.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken at expiry, got %v", err)
	}

	now = issued.Add(31 * time.Minute)
	if _, err := svc.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after expiry, got %v", err)
	}
}

func TestTokenTamperedSignature(t *testing.T) {
	svc := newTestTokenService(t)

	token, _, err := svc.Issue("a@x.com", RoleTeacher)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %s", token)
	}
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		t.Fatalf("decode signature: %v", err)
	}
	sig[0] ^= 0x01
	tampered := parts[0] + "." + parts[1] + "." + base64.RawURLEncoding.EncodeToString(sig)

	if _, err := svc.Validate(tampered); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for tampered signature, got %v", err)
	}
}

func TestTokenWrongSecret(t *testing.T) {
	issuing := newTestTokenService(t)
	verifying, err := NewTokenService("a-different-secret")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	token, _, err := issuing.Issue("a@x.com", RoleTeacher)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := verifying.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken across secrets, got %v", err)
	}
}

func TestTokenMalformed(t *testing.T) {
	svc := newTestTokenService(t)
	for _, raw := range []string{"", "garbage", "a.b", "a.b.c", "....."} {
		if _, err := svc.Validate(raw); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken for %q, got %v", raw, err)
		}
	}
}

func TestTokenIssuerMismatch(t *testing.T) {
	issuing := newTestTokenService(t, WithIssuer("someone-else"))
	verifying := newTestTokenService(t)

	token, _, err := issuing.Issue("a@x.com", RoleTeacher)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := verifying.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for foreign issuer, got %v", err)
	}
}

func TestIssueRejectsBadInput(t *testing.T) {
	svc := newTestTokenService(t)
	if _, _, err := svc.Issue("", RoleTeacher); err == nil {
		t.Fatal("expected error for empty subject")
	}
	if _, _, err := svc.Issue("a@x.com", Role("principal")); err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestNewTokenServiceRequiresSecret(t *testing.T) {
	if _, err := NewTokenService("   "); err == nil {
		t.Fatal("expected error for blank secret")
	}
}
