package inventory

import "fmt"

// InsufficientStockError is a business rejection, never fatal: the caller can
// retry with a smaller quantity.
type InsufficientStockError struct {
	Product   string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %q: available %d, requested %d",
		e.Product, e.Available, e.Requested)
}
