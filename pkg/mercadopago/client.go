package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const DefaultAPIBaseURL = "https://api.mercadopago.com"

// Client calls Mercado Pago's REST API with a per-call bearer token. It is
// stateless: the same value serves every vendor (and the global app token).
type Client struct {
	HTTPClient *http.Client
	BaseURL    string
}

type Payment struct {
	ID                ID      `json:"id"`
	Status            string  `json:"status"`
	StatusDetail      string  `json:"status_detail"`
	ExternalReference string  `json:"external_reference"`
	PreferenceID      string  `json:"preference_id"`
	LiveMode          bool    `json:"live_mode"`
	TransactionAmount float64 `json:"transaction_amount"`
}

func (c Client) GetPayment(ctx context.Context, paymentID, accessToken string) (*Payment, error) {
	if paymentID == "" {
		return nil, fmt.Errorf("missing payment id")
	}

	var p Payment
	if err := c.doJSON(ctx, http.MethodGet, "/v1/payments/"+paymentID, accessToken, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

type PreferenceItem struct {
	ID         string  `json:"id,omitempty"`
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	CurrencyID string  `json:"currency_id,omitempty"`
	UnitPrice  float64 `json:"unit_price"`
}

type PreferenceRequest struct {
	Items             []PreferenceItem `json:"items"`
	PayerEmail        string           `json:"-"`
	ExternalReference string           `json:"external_reference"`
	Marketplace       string           `json:"marketplace,omitempty"`
	MarketplaceFee    float64          `json:"marketplace_fee,omitempty"`
	AutoReturn        string           `json:"auto_return,omitempty"`
}

type Preference struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

func (p PreferenceRequest) MarshalJSON() ([]byte, error) {
	type alias PreferenceRequest
	body := struct {
		alias
		Payer *struct {
			Email string `json:"email"`
		} `json:"payer,omitempty"`
	}{alias: alias(p)}
	if p.PayerEmail != "" {
		body.Payer = &struct {
			Email string `json:"email"`
		}{Email: p.PayerEmail}
	}
	return json.Marshal(body)
}

func (c Client) CreatePreference(ctx context.Context, accessToken string, req PreferenceRequest) (*Preference, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("missing preference items")
	}

	var pref Preference
	if err := c.doJSON(ctx, http.MethodPost, "/checkout/preferences", accessToken, req, &pref); err != nil {
		return nil, err
	}
	if pref.ID == "" {
		return nil, fmt.Errorf("preference create returned empty id")
	}
	return &pref, nil
}

func (c Client) doJSON(ctx context.Context, method, path, accessToken string, reqBody any, respBody any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	base := strings.TrimRight(c.BaseURL, "/")
	if base == "" {
		base = DefaultAPIBaseURL
	}
	if accessToken == "" {
		return fmt.Errorf("missing access token")
	}

	var buf bytes.Buffer
	if reqBody != nil {
		if err := json.NewEncoder(&buf).Encode(reqBody); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, base+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)
	if method == http.MethodPost {
		// Mercado Pago dedupes writes on this header.
		req.Header.Set("X-Idempotency-Key", uuid.NewString())
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	b, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return readErr
	}

	// Surface the provider error body for non-2xx so callers can see
	// invalid-token vs not-found vs scope problems.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Body: string(b)}
	}

	if respBody != nil && len(b) > 0 {
		if err := json.Unmarshal(b, respBody); err != nil {
			return fmt.Errorf("decode mercadopago response failed: %w body=%s", err, string(b))
		}
	}

	return nil
}
