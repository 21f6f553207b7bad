package supabase

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestVerifySessionToken(t *testing.T) {
	secret := "test_secret"
	now := time.Unix(1700000000, 0)

	claims := jwt.MapClaims{
		"sub":   "user-123",
		"email": "buyer@example.com",
		"aud":   "authenticated",
		"exp":   now.Add(10 * time.Minute).Unix(),
		"iat":   now.Add(-1 * time.Minute).Unix(),
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := tok.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	got, err := VerifySessionToken(s, secret, now)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got.UserID != "user-123" {
		t.Fatalf("user id mismatch: %q", got.UserID)
	}
	if got.Email != "buyer@example.com" {
		t.Fatalf("email mismatch: %q", got.Email)
	}
}

func TestVerifySessionToken_WrongSecret(t *testing.T) {
	now := time.Unix(1700000000, 0)
	claims := jwt.MapClaims{
		"sub": "user-123",
		"exp": now.Add(10 * time.Minute).Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := tok.SignedString([]byte("secret-a"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := VerifySessionToken(s, "secret-b", now); err == nil {
		t.Fatal("expected verification failure with wrong secret")
	}
}

func TestVerifySessionToken_Expired(t *testing.T) {
	secret := "test_secret"
	now := time.Unix(1700000000, 0)
	claims := jwt.MapClaims{
		"sub": "user-123",
		"exp": now.Add(-1 * time.Minute).Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := tok.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := VerifySessionToken(s, secret, now); err == nil {
		t.Fatal("expected expired token to fail")
	}
}
