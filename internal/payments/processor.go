package payments

import "context"

// Processor stands in for a real payment gateway. A nil error means the
// charge went through; a non-nil error becomes the failure reason.
type Processor interface {
	Attempt(ctx context.Context, p *Payment) error
}

// SimulatedProcessor approves everything. The default until a gateway
// integration exists.
type SimulatedProcessor struct{}

func (SimulatedProcessor) Attempt(context.Context, *Payment) error { return nil }
