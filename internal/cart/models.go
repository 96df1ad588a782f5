package cart

import (
	"errors"

	"github.com/ariefcatur/go-retail-fulfillment/internal/catalog"
	"github.com/ariefcatur/go-retail-fulfillment/internal/inventory"
)

var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrItemNotFound    = errors.New("cart item not found")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
)

// Cart holds a user's pending selection. One cart per user, created lazily,
// at most one line per product.
type Cart struct {
	ID     string
	UserID string
	Lines  []Line
}

type Line struct {
	CartID    string
	ProductID string
	Quantity  int
}

// ValidateLines re-checks every line against the current product state. Used
// both by the standalone checkout validation and by order creation; closes
// the window between add-to-cart and checkout. Never mutates stock.
func ValidateLines(lines []Line, product func(id string) (catalog.Product, bool)) error {
	if len(lines) == 0 {
		return ErrEmptyCart
	}
	for _, l := range lines {
		p, ok := product(l.ProductID)
		if !ok {
			return catalog.ErrNotFound
		}
		if !p.Active {
			return catalog.ErrProductUnavailable
		}
		if p.Stock < l.Quantity {
			return &inventory.InsufficientStockError{
				Product:   p.Name,
				Available: p.Stock,
				Requested: l.Quantity,
			}
		}
	}
	return nil
}
