package payments

import (
	"errors"
	"testing"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusCompleted, false}, // must pass through Processing

		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusFailed, true},
		{StatusProcessing, StatusCancelled, true},
		{StatusProcessing, StatusRefunded, false},

		// Completed can only be refunded, never cancelled.
		{StatusCompleted, StatusRefunded, true},
		{StatusCompleted, StatusCancelled, false},
		{StatusCompleted, StatusProcessing, false},

		{StatusFailed, StatusCancelled, true},
		{StatusFailed, StatusProcessing, false},

		{StatusRefunded, StatusCancelled, false},
		{StatusRefunded, StatusRefunded, false},

		// cancelling twice stays legal
		{StatusCancelled, StatusCancelled, true},
		{StatusCancelled, StatusPending, false},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestTransitionLeavesPaymentUntouchedOnFailure(t *testing.T) {
	p := &Payment{Status: StatusCompleted}
	if err := p.Transition(StatusCancelled); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Transition(Cancelled) err = %v, want ErrInvalidTransition", err)
	}
	if p.Status != StatusCompleted {
		t.Fatalf("status = %s after failed transition, want COMPLETED", p.Status)
	}
}

func TestMarkHelpers(t *testing.T) {
	p := &Payment{Status: StatusProcessing}
	p.MarkCompleted("ref-123")
	if p.Status != StatusCompleted || p.PaidAt == nil || p.ProviderReference != "ref-123" {
		t.Fatalf("MarkCompleted: status=%s paidAt=%v ref=%q", p.Status, p.PaidAt, p.ProviderReference)
	}

	p.MarkRefunded("customer request")
	if p.Status != StatusRefunded || p.RefundedAt == nil {
		t.Fatalf("MarkRefunded: status=%s refundedAt=%v", p.Status, p.RefundedAt)
	}
	if p.FailureReason != "Refund reason: customer request" {
		t.Fatalf("refund reason = %q", p.FailureReason)
	}

	f := &Payment{Status: StatusProcessing}
	f.MarkFailed("card declined")
	if f.Status != StatusFailed || f.FailureReason != "card declined" {
		t.Fatalf("MarkFailed: status=%s reason=%q", f.Status, f.FailureReason)
	}
}
