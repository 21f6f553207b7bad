package mercadopago

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// OAuthClient talks to Mercado Pago's /oauth/token endpoint for both the
// initial code exchange and later refresh-token rotations.
type OAuthClient struct {
	HTTPClient   *http.Client
	BaseURL      string
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// TokenResponse is the token endpoint response. refresh_token may be absent
// on refresh (Mercado Pago sometimes rotates it, sometimes not).
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope"`
	RefreshToken string `json:"refresh_token"`
	UserID       ID     `json:"user_id"`
	LiveMode     bool   `json:"live_mode"`
}

// ExpiresAt converts expires_in into an absolute timestamp, or nil when the
// provider didn't send one (unknown expiry: skip proactive refresh).
func (t *TokenResponse) ExpiresAt(now time.Time) *time.Time {
	if t.ExpiresIn <= 0 {
		return nil
	}
	at := now.Add(time.Duration(t.ExpiresIn) * time.Second)
	return &at
}

// APIError carries the provider's error body for diagnostics. The body never
// contains our client secret (it is only sent in the request), so it is safe
// to relay to callers.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("mercadopago api error: status=%d body=%s", e.Status, e.Body)
	}
	return fmt.Sprintf("mercadopago api error: status=%d", e.Status)
}

func (o OAuthClient) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", o.ClientID)
	form.Set("client_secret", o.ClientSecret)
	form.Set("code", code)
	form.Set("redirect_uri", o.RedirectURI)
	return o.token(ctx, form)
}

func (o OAuthClient) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", o.ClientID)
	form.Set("client_secret", o.ClientSecret)
	form.Set("refresh_token", refreshToken)
	return o.token(ctx, form)
}

func (o OAuthClient) token(ctx context.Context, form url.Values) (*TokenResponse, error) {
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	base := strings.TrimRight(o.BaseURL, "/")
	if base == "" {
		base = DefaultAPIBaseURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := o.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return nil, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Status: resp.StatusCode, Body: string(b)}
	}

	var tr TokenResponse
	if err := json.Unmarshal(b, &tr); err != nil {
		return nil, fmt.Errorf("decode token response failed: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("token endpoint returned empty access_token")
	}
	return &tr, nil
}
