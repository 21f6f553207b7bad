package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"marketplace/pkg/config"
	"marketplace/pkg/db"
)

// Seeds a linked vendor and a pending order so the webhook flow can be
// exercised locally without going through the real OAuth dance:
//
//	go run ./cmd/dev/devflow -owner-id <supabase-user-uuid> -access-token TEST-...
//	go run ./cmd/dev/simwebhook -payment-id <id from MP sandbox>
func main() {
	var (
		ownerID     = flag.String("owner-id", "", "identity provider user id that owns the vendor")
		vendorName  = flag.String("vendor-name", "Dev Vendor", "vendor display name")
		accessToken = flag.String("access-token", "", "vendor access token (sandbox TEST-... token)")
		mpUserID    = flag.String("mp-user-id", "dev-merchant", "provider merchant id")
		total       = flag.String("total", "100.00", "order total")
		userID      = flag.String("user-id", "", "buying user id (defaults to -owner-id)")
	)
	flag.Parse()

	if *ownerID == "" || *accessToken == "" {
		fmt.Fprintln(os.Stderr, "missing -owner-id or -access-token")
		os.Exit(2)
	}
	if *userID == "" {
		*userID = *ownerID
	}

	cfg := config.Load()
	ctx := context.Background()

	pool, err := db.Open(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "db open: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.MigrationsPath != "" {
		if err := db.Migrate(cfg.MigrationsPath, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
			os.Exit(1)
		}
	}

	var vendorID int64
	err = pool.QueryRow(ctx, `
INSERT INTO vendors (owner_id, name)
VALUES ($1, $2)
RETURNING id
`, *ownerID, *vendorName).Scan(&vendorID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "insert vendor: %v\n", err)
		os.Exit(1)
	}

	// Sandbox tokens don't expire on a schedule we care about in dev; give
	// it a generous expiry so the token source never tries to refresh.
	expires := time.Now().Add(180 * 24 * time.Hour)
	_, err = pool.Exec(ctx, `
INSERT INTO mp_accounts (vendor_id, mp_user_id, access_token, live_mode, token_expires_at)
VALUES ($1, $2, $3, false, $4)
ON CONFLICT (vendor_id) DO UPDATE SET
  access_token = EXCLUDED.access_token,
  token_expires_at = EXCLUDED.token_expires_at
`, vendorID, *mpUserID, *accessToken, expires)
	if err != nil {
		fmt.Fprintf(os.Stderr, "insert mp account: %v\n", err)
		os.Exit(1)
	}

	var orderID int64
	err = pool.QueryRow(ctx, `
INSERT INTO orders (vendor_id, user_id, status, total)
VALUES ($1, $2, 'PENDING', $3)
RETURNING id
`, vendorID, *userID, *total).Scan(&orderID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "insert order: %v\n", err)
		os.Exit(1)
	}

	_, err = pool.Exec(ctx, `
INSERT INTO order_items (order_id, title, quantity, unit_price)
VALUES ($1, 'Dev item', 1, $2)
`, orderID, *total)
	if err != nil {
		fmt.Fprintf(os.Stderr, "insert order item: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("vendor=%d order=%d\n", vendorID, orderID)
	fmt.Printf("start a checkout: POST /v1/orders/%d/start-payment (external_reference will be %d)\n", orderID, orderID)
}
