package order

import "fmt"

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusCancelled Status = "CANCELLED"
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown status: %s", s)
	}
}

func (s Status) IsTerminal() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// StatusFromPayment maps a Mercado Pago payment status onto an order status.
// ok is false for statuses we don't recognize; the order is left unchanged.
func StatusFromPayment(mpStatus string) (Status, bool) {
	switch mpStatus {
	case "approved":
		return StatusApproved, true
	case "pending", "in_process":
		return StatusPending, true
	case "rejected":
		return StatusRejected, true
	case "cancelled", "refunded", "charged_back":
		return StatusCancelled, true
	default:
		return "", false
	}
}

// CanReconcile reports whether a webhook-driven transition is allowed.
// Notifications arrive duplicated and out of order; a terminal status never
// regresses, and terminal states don't flip into each other. Re-applying the
// current status is allowed so duplicate deliveries converge.
func CanReconcile(from, to Status) bool {
	if from == to {
		return true
	}
	return from == StatusPending
}
