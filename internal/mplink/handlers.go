package mplink

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"marketplace/internal/api"
	"marketplace/internal/mpaccount"
	"marketplace/internal/vendor"
	"marketplace/pkg/config"
	"marketplace/pkg/mercadopago"
)

type VendorStore interface {
	FindByID(ctx context.Context, id int64) (*vendor.Vendor, error)
}

type AccountStore interface {
	Upsert(ctx context.Context, a *mpaccount.Account) (*mpaccount.Account, error)
}

type Handlers struct {
	Cfg      config.Config
	Vendors  VendorStore
	Accounts AccountStore
	OAuth    mercadopago.OAuthClient
}

// Start begins the account-linking flow: verifies the caller owns the vendor,
// mints a signed state token and redirects to the provider's authorization
// page.
func (h Handlers) Start(w http.ResponseWriter, r *http.Request) {
	vendorID, err := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get("vendorId")), 10, 64)
	if err != nil || vendorID <= 0 {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "missing or invalid vendorId")
		return
	}

	sess := api.SessionFromContext(r.Context())
	if sess == nil {
		api.RedirectToLogin(w, r, h.Cfg.LoginURL)
		return
	}

	if !h.ownsVendor(r.Context(), vendorID, sess.UserID) {
		api.WriteError(w, http.StatusForbidden, "FORBIDDEN", "vendor not owned by caller")
		return
	}

	state := EncodeState(vendorID, time.Now(), h.Cfg.MercadoPago.StateSecret)

	authURL, err := url.Parse(strings.TrimRight(h.Cfg.MercadoPago.AuthBaseURL, "/") + "/authorization")
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "bad auth base url")
		return
	}
	q := authURL.Query()
	q.Set("client_id", h.Cfg.MercadoPago.ClientID)
	q.Set("response_type", "code")
	q.Set("platform_id", "mp")
	q.Set("redirect_uri", h.Cfg.MercadoPago.RedirectURI)
	q.Set("state", state)
	authURL.RawQuery = q.Encode()

	http.Redirect(w, r, authURL.String(), http.StatusFound)
}

// Callback completes the flow: verifies the state token, re-checks vendor
// ownership against the now-authenticated caller, exchanges the code and
// persists the merchant link.
func (h Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	code := strings.TrimSpace(qs.Get("code"))
	state := strings.TrimSpace(qs.Get("state"))

	if code == "" || state == "" {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "missing code or state")
		return
	}

	vendorID, err := DecodeState(state, h.Cfg.MercadoPago.StateSecret, time.Now(), h.Cfg.MercadoPago.StateMaxAge)
	if err != nil {
		if errors.Is(err, ErrStateExpired) {
			api.WriteError(w, http.StatusBadRequest, "STATE_EXPIRED", "state token expired, restart linking")
			return
		}
		api.WriteError(w, http.StatusBadRequest, "STATE_INVALID", "state not verified")
		return
	}

	// The provider redirect loses our session on some browsers (third-party
	// cookie handling); bounce through login with this exact callback URL as
	// the return target so the flow resumes.
	sess := api.SessionFromContext(r.Context())
	if sess == nil {
		api.RedirectToLogin(w, r, h.Cfg.LoginURL)
		return
	}

	if !h.ownsVendor(r.Context(), vendorID, sess.UserID) {
		api.WriteError(w, http.StatusForbidden, "FORBIDDEN", "vendor not owned by caller")
		return
	}

	tr, err := h.OAuth.ExchangeCode(r.Context(), code)
	if err != nil {
		var apiErr *mercadopago.APIError
		if errors.As(err, &apiErr) {
			// Relay the provider's error body for diagnosability. It never
			// contains our client secret.
			api.WriteError(w, http.StatusBadRequest, "EXCHANGE_FAILED", apiErr.Body)
			return
		}
		api.WriteError(w, http.StatusBadGateway, "EXCHANGE_FAILED", fmt.Sprintf("token exchange: %v", err))
		return
	}

	now := time.Now()
	if _, err := h.Accounts.Upsert(r.Context(), &mpaccount.Account{
		VendorID:       vendorID,
		MPUserID:       tr.UserID.String(),
		AccessToken:    tr.AccessToken,
		RefreshToken:   tr.RefreshToken,
		LiveMode:       tr.LiveMode,
		TokenExpiresAt: tr.ExpiresAt(now),
	}); err != nil {
		log.Printf("mplink callback: save account failed vendor=%d err=%v", vendorID, err)
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to save merchant link")
		return
	}

	http.Redirect(w, r, strings.TrimRight(h.Cfg.AppBaseURL, "/")+"/dashboard", http.StatusFound)
}

func (h Handlers) ownsVendor(ctx context.Context, vendorID int64, userID string) bool {
	v, err := h.Vendors.FindByID(ctx, vendorID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			log.Printf("mplink: vendor lookup failed vendor=%d err=%v", vendorID, err)
		}
		return false
	}
	return v.OwnerID == userID
}
