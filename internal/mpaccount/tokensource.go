package mpaccount

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/singleflight"

	"marketplace/pkg/mercadopago"
)

// RefreshBuffer is how close to expiry a token may get before we refresh it
// proactively instead of handing it out.
const RefreshBuffer = 5 * time.Minute

// ErrNotLinked means the vendor has no Mercado Pago account on file.
var ErrNotLinked = errors.New("mercadopago account not linked for vendor")

// ErrNoRefreshToken means the stored link carries no refresh token, so the
// expired access token cannot be renewed; the vendor must re-link. Always
// wrapped in a *RefreshError.
var ErrNoRefreshToken = errors.New("no refresh token available")

// RefreshError wraps a failed token renewal. The stored credentials are left
// untouched when this is returned.
type RefreshError struct {
	VendorID int64
	Err      error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("refresh token for vendor %d: %v", e.VendorID, e.Err)
}

func (e *RefreshError) Unwrap() error { return e.Err }

// Store is the persistence capability TokenSource needs.
type Store interface {
	FindByVendor(ctx context.Context, vendorID int64) (*Account, error)
	UpdateTokens(ctx context.Context, vendorID int64, accessToken, refreshToken string, expiresAt *time.Time) error
}

// TokenSource hands out a valid access token for a vendor, refreshing it
// through the provider when it is expired or inside the refresh buffer.
type TokenSource struct {
	Store Store
	OAuth mercadopago.OAuthClient

	// Now is overridable in tests; defaults to time.Now.
	Now func() time.Time

	group singleflight.Group
}

// ValidAccessToken returns an access token usable right now.
//
// Returns ErrNotLinked when no account exists and *RefreshError when the
// renewal call fails or no refresh token is available. A nil token_expires_at
// skips proactive refresh: the stored token is returned as-is and callers
// handle a provider 401 reactively.
func (s *TokenSource) ValidAccessToken(ctx context.Context, vendorID int64) (string, error) {
	now := s.now()

	acct, err := s.Store.FindByVendor(ctx, vendorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotLinked
		}
		return "", err
	}

	if acct.TokenExpiresAt == nil || now.Add(RefreshBuffer).Before(*acct.TokenExpiresAt) {
		return acct.AccessToken, nil
	}

	return s.refresh(ctx, acct)
}

// refresh renews the token through the provider. Concurrent callers for the
// same vendor share one in-flight renewal; Mercado Pago may rotate the
// refresh token on every call, so double-calling can invalidate credentials.
func (s *TokenSource) refresh(ctx context.Context, acct *Account) (string, error) {
	token, err, _ := s.group.Do(fmt.Sprintf("vendor:%d", acct.VendorID), func() (any, error) {
		if acct.RefreshToken == "" {
			return "", &RefreshError{VendorID: acct.VendorID, Err: ErrNoRefreshToken}
		}

		log.Printf("refreshing mercadopago token vendor=%d", acct.VendorID)

		tr, err := s.OAuth.Refresh(ctx, acct.RefreshToken)
		if err != nil {
			return "", &RefreshError{VendorID: acct.VendorID, Err: err}
		}

		// The provider may return a rotated refresh token or omit the field;
		// keep the old one when absent.
		newRefresh := tr.RefreshToken
		if newRefresh == "" {
			newRefresh = acct.RefreshToken
		}

		if err := s.Store.UpdateTokens(ctx, acct.VendorID, tr.AccessToken, newRefresh, tr.ExpiresAt(s.now())); err != nil {
			return "", err
		}

		return tr.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}

func (s *TokenSource) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
