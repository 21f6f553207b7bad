package mpaccount

import "time"

// Account is a vendor's linked Mercado Pago merchant account: the provider's
// user id plus the OAuth credentials needed to act on the vendor's behalf.
// At most one per vendor; re-linking replaces the row.
type Account struct {
	VendorID     int64
	MPUserID     string
	AccessToken  string
	RefreshToken string
	LiveMode     bool

	// TokenExpiresAt is nil when the provider didn't report an expiry.
	// Nil means: skip proactive refresh, let callers react to 401s.
	TokenExpiresAt *time.Time

	LinkedAt time.Time
}
