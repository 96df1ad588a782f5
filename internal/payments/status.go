package payments

import "errors"

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
	StatusRefunded   Status = "REFUNDED"
	StatusCancelled  Status = "CANCELLED"
)

var ErrInvalidTransition = errors.New("invalid payment status transition")

// validNext is the single source of transition legality. Completed can only
// be refunded, never cancelled; cancelling an already-cancelled payment is a
// no-op transition and stays legal.
var validNext = map[Status]map[Status]bool{
	StatusPending:    {StatusProcessing: true, StatusCancelled: true},
	StatusProcessing: {StatusCompleted: true, StatusFailed: true, StatusCancelled: true},
	StatusCompleted:  {StatusRefunded: true},
	StatusFailed:     {StatusCancelled: true},
	StatusRefunded:   {},
	StatusCancelled:  {StatusCancelled: true},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

func (p *Payment) Transition(to Status) error {
	if !CanTransition(p.Status, to) {
		return ErrInvalidTransition
	}
	p.Status = to
	return nil
}
