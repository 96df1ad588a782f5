package orders

import "errors"

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusShipped   Status = "SHIPPED"
	StatusDelivered Status = "DELIVERED"
	StatusCancelled Status = "CANCELLED"
	StatusRefunded  Status = "REFUNDED"
)

var ErrInvalidTransition = errors.New("invalid order status transition")

var anyTarget = map[Status]bool{
	StatusPending:   true,
	StatusConfirmed: true,
	StatusShipped:   true,
	StatusDelivered: true,
	StatusCancelled: true,
	StatusRefunded:  true,
}

// validNext is the single source of transition legality. Pending, Confirmed
// and Shipped deliberately accept any target: no monotonic ordering is
// enforced between them, which keeps the administrative override path open.
var validNext = map[Status]map[Status]bool{
	StatusPending:   anyTarget,
	StatusConfirmed: anyTarget,
	StatusShipped:   anyTarget,
	StatusDelivered: {StatusRefunded: true},
	StatusCancelled: {},
	StatusRefunded:  {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// Transition moves the order to the target status, or fails leaving the
// order untouched.
func (o *Order) Transition(to Status) error {
	if !CanTransition(o.Status, to) {
		return ErrInvalidTransition
	}
	o.Status = to
	return nil
}

func ValidStatus(s Status) bool {
	return anyTarget[s]
}
