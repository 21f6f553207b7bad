package order

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func (r *Repository) FindByID(ctx context.Context, id int64) (*Order, error) {
	const q = `
SELECT id, vendor_id, user_id, status, COALESCE(payment_id,''), COALESCE(preference_id,''), total, created_at
FROM orders
WHERE id = $1
`
	o := &Order{}
	var status string
	if err := r.db.QueryRow(ctx, q, id).Scan(
		&o.ID, &o.VendorID, &o.UserID, &status, &o.PaymentID, &o.PreferenceID, &o.Total, &o.CreatedAt,
	); err != nil {
		return nil, err
	}
	st, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}
	o.Status = st
	return o, nil
}

// FindForUser loads an order with its line items, scoped to the buying user.
func (r *Repository) FindForUser(ctx context.Context, id int64, userID string) (*Order, error) {
	const q = `
SELECT id, vendor_id, user_id, status, COALESCE(payment_id,''), COALESCE(preference_id,''), total, created_at
FROM orders
WHERE id = $1 AND user_id = $2
`
	o := &Order{}
	var status string
	if err := r.db.QueryRow(ctx, q, id, userID).Scan(
		&o.ID, &o.VendorID, &o.UserID, &status, &o.PaymentID, &o.PreferenceID, &o.Total, &o.CreatedAt,
	); err != nil {
		return nil, err
	}
	st, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}
	o.Status = st

	const qi = `
SELECT title, quantity, unit_price
FROM order_items
WHERE order_id = $1
ORDER BY id
`
	rows, err := r.db.Query(ctx, qi, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.Title, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return o, nil
}

func (r *Repository) SetPreference(ctx context.Context, id int64, preferenceID string) error {
	const q = `UPDATE orders SET preference_id = $2 WHERE id = $1`
	_, err := r.db.Exec(ctx, q, id, preferenceID)
	return err
}
