package mpaccount

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func (r *Repository) FindByVendor(ctx context.Context, vendorID int64) (*Account, error) {
	const q = `
SELECT vendor_id, mp_user_id, access_token, COALESCE(refresh_token,''), live_mode, token_expires_at, linked_at
FROM mp_accounts
WHERE vendor_id = $1
`
	a := &Account{}
	if err := r.db.QueryRow(ctx, q, vendorID).Scan(
		&a.VendorID, &a.MPUserID, &a.AccessToken, &a.RefreshToken, &a.LiveMode, &a.TokenExpiresAt, &a.LinkedAt,
	); err != nil {
		return nil, err
	}
	return a, nil
}

// Upsert stores the credentials from a completed OAuth exchange. Re-linking an
// already-linked vendor replaces the row; it is a supported recovery path.
func (r *Repository) Upsert(ctx context.Context, a *Account) (*Account, error) {
	const q = `
INSERT INTO mp_accounts (vendor_id, mp_user_id, access_token, refresh_token, live_mode, token_expires_at)
VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)
ON CONFLICT (vendor_id) DO UPDATE SET
  mp_user_id = EXCLUDED.mp_user_id,
  access_token = EXCLUDED.access_token,
  refresh_token = EXCLUDED.refresh_token,
  live_mode = EXCLUDED.live_mode,
  token_expires_at = EXCLUDED.token_expires_at,
  linked_at = NOW()
RETURNING vendor_id, mp_user_id, access_token, COALESCE(refresh_token,''), live_mode, token_expires_at, linked_at
`
	out := &Account{}
	if err := r.db.QueryRow(ctx, q, a.VendorID, a.MPUserID, a.AccessToken, a.RefreshToken, a.LiveMode, a.TokenExpiresAt).Scan(
		&out.VendorID, &out.MPUserID, &out.AccessToken, &out.RefreshToken, &out.LiveMode, &out.TokenExpiresAt, &out.LinkedAt,
	); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateTokens persists a refresh result. mp_user_id and live_mode don't
// change on refresh and are left alone.
func (r *Repository) UpdateTokens(ctx context.Context, vendorID int64, accessToken, refreshToken string, expiresAt *time.Time) error {
	const q = `
UPDATE mp_accounts
SET access_token = $2, refresh_token = NULLIF($3, ''), token_expires_at = $4
WHERE vendor_id = $1
`
	_, err := r.db.Exec(ctx, q, vendorID, accessToken, refreshToken, expiresAt)
	return err
}
