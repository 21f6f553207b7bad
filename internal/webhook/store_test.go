package webhook

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"marketplace/internal/order"
	"marketplace/pkg/config"
	"marketplace/pkg/db"
)

// These tests run against a real Postgres because the invariants they cover
// live in SQL: the event_id gate and the conditional status update. Set
// TEST_DATABASE_URL (a disposable database) to enable them.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	cfg := config.Config{DirectURL: url, DatabaseURL: url}
	require.NoError(t, db.Migrate("file://../../migrations", cfg))

	pool, err := db.Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func seedPendingOrder(t *testing.T, pool *pgxpool.Pool) int64 {
	t.Helper()
	ctx := context.Background()

	var vendorID int64
	require.NoError(t, pool.QueryRow(ctx, `
INSERT INTO vendors (owner_id, name) VALUES ($1, 'Test Vendor') RETURNING id
`, uuid.NewString()).Scan(&vendorID))

	var orderID int64
	require.NoError(t, pool.QueryRow(ctx, `
INSERT INTO orders (vendor_id, user_id, status, total) VALUES ($1, 'user-1', 'PENDING', 100.00) RETURNING id
`, vendorID).Scan(&orderID))
	return orderID
}

func TestApplyPaymentUpdateDuplicateDelivery(t *testing.T) {
	pool := testPool(t)
	s := Store{DB: pool}
	ctx := context.Background()

	orderID := seedPendingOrder(t, pool)
	eventID := uuid.NewString()

	out, err := s.ApplyPaymentUpdate(ctx, eventID, orderID, order.StatusApproved, "555", "pref-1")
	require.NoError(t, err)
	require.Equal(t, OutcomeApplied, out)

	// Redelivery of the same event is swallowed by the event_id gate.
	out, err = s.ApplyPaymentUpdate(ctx, eventID, orderID, order.StatusApproved, "555", "pref-1")
	require.NoError(t, err)
	require.Equal(t, OutcomeDuplicate, out)

	ord, err := s.FindOrder(ctx, orderID)
	require.NoError(t, err)
	require.NotNil(t, ord)
	require.Equal(t, order.StatusApproved, ord.Status)
	require.Equal(t, "555", ord.PaymentID)
	require.Equal(t, "pref-1", ord.PreferenceID)
}

func TestApplyPaymentUpdateNoStatusRegression(t *testing.T) {
	pool := testPool(t)
	s := Store{DB: pool}
	ctx := context.Background()

	orderID := seedPendingOrder(t, pool)

	out, err := s.ApplyPaymentUpdate(ctx, uuid.NewString(), orderID, order.StatusApproved, "555", "")
	require.NoError(t, err)
	require.Equal(t, OutcomeApplied, out)

	// A stale pending notification arriving late must not regress the order.
	out, err = s.ApplyPaymentUpdate(ctx, uuid.NewString(), orderID, order.StatusPending, "555", "")
	require.NoError(t, err)
	require.Equal(t, OutcomeConflict, out)

	// Re-applying the terminal status is allowed (duplicate deliveries with
	// fresh event ids converge).
	out, err = s.ApplyPaymentUpdate(ctx, uuid.NewString(), orderID, order.StatusApproved, "", "")
	require.NoError(t, err)
	require.Equal(t, OutcomeApplied, out)

	ord, err := s.FindOrder(ctx, orderID)
	require.NoError(t, err)
	require.NotNil(t, ord)
	require.Equal(t, order.StatusApproved, ord.Status)
	// payment_id was set by the first delivery and never cleared by the
	// empty-id redelivery.
	require.Equal(t, "555", ord.PaymentID)
}

func TestFindOrderAbsent(t *testing.T) {
	pool := testPool(t)
	s := Store{DB: pool}

	ord, err := s.FindOrder(context.Background(), -1)
	require.NoError(t, err)
	require.Nil(t, ord)
}
