package order

import "testing"

func TestStatusFromPayment(t *testing.T) {
	cases := map[string]Status{
		"approved":     StatusApproved,
		"pending":      StatusPending,
		"in_process":   StatusPending,
		"rejected":     StatusRejected,
		"cancelled":    StatusCancelled,
		"refunded":     StatusCancelled,
		"charged_back": StatusCancelled,
	}
	for mpStatus, want := range cases {
		got, ok := StatusFromPayment(mpStatus)
		if !ok {
			t.Fatalf("status %q not mapped", mpStatus)
		}
		if got != want {
			t.Fatalf("status %q: expected %s, got %s", mpStatus, want, got)
		}
	}

	if _, ok := StatusFromPayment("authorized_pending_capture"); ok {
		t.Fatal("unrecognized status should not map")
	}
}

func TestParseStatus(t *testing.T) {
	for _, want := range []Status{StatusPending, StatusApproved, StatusRejected, StatusCancelled} {
		got, err := ParseStatus(string(want))
		if err != nil {
			t.Fatalf("parse %q: %v", want, err)
		}
		if got != want {
			t.Fatalf("parse %q: got %q", want, got)
		}
	}

	for _, s := range []string{"", "paid", "pending", "approved"} {
		if _, err := ParseStatus(s); err == nil {
			t.Fatalf("parse %q should fail", s)
		}
	}
}

func TestCanReconcile(t *testing.T) {
	// Pending can move anywhere, including staying pending.
	for _, to := range []Status{StatusPending, StatusApproved, StatusRejected, StatusCancelled} {
		if !CanReconcile(StatusPending, to) {
			t.Fatalf("PENDING -> %s should be allowed", to)
		}
	}

	// Terminal statuses never regress and never flip to another terminal.
	for _, from := range []Status{StatusApproved, StatusRejected, StatusCancelled} {
		if CanReconcile(from, StatusPending) {
			t.Fatalf("%s -> PENDING should be rejected", from)
		}
		if !CanReconcile(from, from) {
			t.Fatalf("%s -> %s (duplicate delivery) should be allowed", from, from)
		}
		for _, to := range []Status{StatusApproved, StatusRejected, StatusCancelled} {
			if from != to && CanReconcile(from, to) {
				t.Fatalf("%s -> %s should be rejected", from, to)
			}
		}
	}
}
