package webhook

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"marketplace/internal/order"
	"marketplace/pkg/db"
)

// Store is the pgx-backed OrderStore. The delivery record and the order
// update share one transaction so a redelivered notification either fully
// applied before or fully applies now, never halfway.
type Store struct {
	DB *pgxpool.Pool
}

func (s Store) FindOrder(ctx context.Context, id int64) (*order.Order, error) {
	const q = `
SELECT id, vendor_id, user_id, status, COALESCE(payment_id,''), COALESCE(preference_id,''), total, created_at
FROM orders
WHERE id = $1
`
	o := &order.Order{}
	var status string
	err := s.DB.QueryRow(ctx, q, id).Scan(
		&o.ID, &o.VendorID, &o.UserID, &status, &o.PaymentID, &o.PreferenceID, &o.Total, &o.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if o.Status, err = order.ParseStatus(status); err != nil {
		return nil, err
	}
	return o, nil
}

func (s Store) ApplyPaymentUpdate(ctx context.Context, eventID string, orderID int64, to order.Status, paymentID, preferenceID string) (Outcome, error) {
	outcome := OutcomeApplied

	err := db.WithTx(ctx, s.DB, func(tx pgx.Tx) error {
		// Idempotency gate: a duplicate event_id means this exact delivery
		// was already processed. DO NOTHING instead of catching 23505 so the
		// transaction isn't aborted on the duplicate path.
		const qEvent = `
INSERT INTO webhook_deliveries (event_id, order_id, payment_id, mapped_status, processed_at)
VALUES ($1, $2, NULLIF($3, ''), $4, NOW())
ON CONFLICT (event_id) DO NOTHING
`
		tag, err := tx.Exec(ctx, qEvent, eventID, orderID, paymentID, string(to))
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			outcome = OutcomeDuplicate
			return nil
		}

		// Conditional write: the WHERE clause encodes order.CanReconcile so
		// concurrent duplicate deliveries can't race a read-then-write.
		// payment_id/preference_id are set once known and never nulled out.
		const qUpdate = `
UPDATE orders
SET status = $2,
    payment_id = COALESCE(NULLIF($3, ''), payment_id),
    preference_id = COALESCE(NULLIF($4, ''), preference_id)
WHERE id = $1 AND (status = 'PENDING' OR status = $2)
`
		upd, err := tx.Exec(ctx, qUpdate, orderID, string(to), paymentID, preferenceID)
		if err != nil {
			return err
		}
		if upd.RowsAffected() == 0 {
			outcome = OutcomeConflict
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return outcome, nil
}
