package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID       int64
	VendorID int64
	UserID   string
	Status   Status

	// PaymentID and PreferenceID are set once known and never cleared by
	// later notifications.
	PaymentID    string
	PreferenceID string

	Total     decimal.Decimal
	CreatedAt time.Time

	Items []Item
}

// Item is a line snapshotted at order creation; the checkout preference is
// built from these so the payment flow never touches the product catalog.
type Item struct {
	Title     string
	Quantity  int
	UnitPrice decimal.Decimal
}
