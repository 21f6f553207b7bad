package mplink

import (
	"errors"
	"testing"
	"time"
)

func TestStateRoundTrip(t *testing.T) {
	now := time.Unix(1700000000, 0)
	token := EncodeState(42, now, "secret")

	got, err := DecodeState(token, "secret", now.Add(time.Minute), 10*time.Minute)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != 42 {
		t.Fatalf("expected vendor 42, got %d", got)
	}
}

func TestStateTamperDetection(t *testing.T) {
	now := time.Unix(1700000000, 0)
	token := EncodeState(42, now, "secret")

	// Flip one byte at every position; decode must never succeed.
	for i := 0; i < len(token); i++ {
		b := []byte(token)
		if b[i] == 'A' {
			b[i] = 'B'
		} else {
			b[i] = 'A'
		}
		if _, err := DecodeState(string(b), "secret", now, 10*time.Minute); err == nil {
			t.Fatalf("tampered token at byte %d decoded successfully", i)
		}
	}
}

func TestStateWrongSecret(t *testing.T) {
	now := time.Unix(1700000000, 0)
	token := EncodeState(42, now, "secret-a")

	if _, err := DecodeState(token, "secret-b", now, 10*time.Minute); !errors.Is(err, ErrStateInvalid) {
		t.Fatalf("expected ErrStateInvalid, got %v", err)
	}
}

func TestStateExpiry(t *testing.T) {
	now := time.Unix(1700000000, 0)
	token := EncodeState(42, now, "secret")

	if _, err := DecodeState(token, "secret", now.Add(11*time.Minute), 10*time.Minute); !errors.Is(err, ErrStateExpired) {
		t.Fatalf("expected ErrStateExpired, got %v", err)
	}

	// maxAge 0 disables the check.
	if _, err := DecodeState(token, "secret", now.Add(24*time.Hour), 0); err != nil {
		t.Fatalf("expected no expiry with maxAge 0, got %v", err)
	}
}

func TestStateMissingFields(t *testing.T) {
	now := time.Unix(1700000000, 0)
	for _, tok := range []string{"", "not-base64url!!", "e30", "eyJ2Ijo0Mn0"} {
		if _, err := DecodeState(tok, "secret", now, 0); err == nil {
			t.Fatalf("token %q decoded successfully", tok)
		}
	}
}
