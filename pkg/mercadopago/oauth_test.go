package mercadopago

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestExchangeCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth/token" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("unexpected content type %s", ct)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if got := r.PostFormValue("redirect_uri"); got != "https://app.example/cb" {
			t.Errorf("redirect_uri = %q", got)
		}
		// user_id arrives as a number from the real endpoint.
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "at",
			"token_type":    "bearer",
			"refresh_token": "rt",
			"expires_in":    21600,
			"user_id":       123456789,
			"live_mode":     true,
		})
	}))
	defer srv.Close()

	c := OAuthClient{
		BaseURL:      srv.URL,
		ClientID:     "id",
		ClientSecret: "secret",
		RedirectURI:  "https://app.example/cb",
	}
	tr, err := c.ExchangeCode(context.Background(), "code-1")
	if err != nil {
		t.Fatal(err)
	}
	if tr.AccessToken != "at" || tr.RefreshToken != "rt" {
		t.Fatalf("unexpected tokens: %+v", tr)
	}
	if tr.UserID.String() != "123456789" {
		t.Fatalf("user_id = %q", tr.UserID)
	}
	if !tr.LiveMode {
		t.Fatal("live_mode should be true")
	}

	now := time.Now()
	at := tr.ExpiresAt(now)
	if at == nil || !at.Equal(now.Add(6*time.Hour)) {
		t.Fatalf("ExpiresAt = %v", at)
	}
}

func TestExchangeCodeAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","status":400}`))
	}))
	defer srv.Close()

	c := OAuthClient{BaseURL: srv.URL}
	_, err := c.ExchangeCode(context.Background(), "expired-code")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Status != http.StatusBadRequest {
		t.Fatalf("status = %d", apiErr.Status)
	}
	if apiErr.Body == "" {
		t.Fatal("error body should be preserved")
	}
}

func TestExpiresAtUnknown(t *testing.T) {
	tr := TokenResponse{AccessToken: "at"}
	if at := tr.ExpiresAt(time.Now()); at != nil {
		t.Fatalf("expected nil expiry when expires_in absent, got %v", at)
	}
}

func TestIDAcceptsStringAndNumber(t *testing.T) {
	var tr TokenResponse
	if err := json.Unmarshal([]byte(`{"user_id":"U1"}`), &tr); err != nil {
		t.Fatal(err)
	}
	if tr.UserID.String() != "U1" {
		t.Fatalf("user_id = %q", tr.UserID)
	}
	if err := json.Unmarshal([]byte(`{"user_id":42}`), &tr); err != nil {
		t.Fatal(err)
	}
	if tr.UserID.String() != "42" {
		t.Fatalf("user_id = %q", tr.UserID)
	}
	if err := json.Unmarshal([]byte(`{"user_id":null}`), &tr); err != nil {
		t.Fatal(err)
	}
}
