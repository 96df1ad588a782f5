package cart

import (
	"context"

	"go.uber.org/zap"

	"github.com/ariefcatur/go-retail-fulfillment/internal/catalog"
	"github.com/ariefcatur/go-retail-fulfillment/internal/inventory"
	"github.com/ariefcatur/go-retail-fulfillment/internal/postgres"
)

// ProductStore is the slice of the catalog the cart needs.
type ProductStore interface {
	Get(ctx context.Context, q postgres.DBTX, id string) (catalog.Product, error)
	GetForUpdate(ctx context.Context, q postgres.DBTX, id string) (catalog.Product, error)
}

type LineStore interface {
	GetOrCreate(ctx context.Context, q postgres.DBTX, userID string) (Cart, error)
	LineQuantity(ctx context.Context, q postgres.DBTX, cartID, productID string) (int, bool, error)
	UpsertLine(ctx context.Context, q postgres.DBTX, cartID, productID string, qty int) error
	UpdateLine(ctx context.Context, q postgres.DBTX, cartID, productID string, qty int) error
	DeleteLine(ctx context.Context, q postgres.DBTX, cartID, productID string) error
	ClearByUser(ctx context.Context, q postgres.DBTX, userID string) error
}

type Service struct {
	DB       postgres.Beginner
	Pool     postgres.DBTX
	Products ProductStore
	Lines    LineStore
	Log      *zap.Logger
}

func (s *Service) Get(ctx context.Context, userID string) (Cart, error) {
	return s.Lines.GetOrCreate(ctx, s.Pool, userID)
}

// AddItem merges the quantity into an existing line or creates one. The
// product row lock serializes concurrent adds for the same product, so the
// read-merge-write cannot lose an update. Adding to the cart does not
// reserve stock.
func (s *Service) AddItem(ctx context.Context, userID, productID string, qty int) (Cart, error) {
	if qty < 1 {
		return Cart{}, ErrInvalidQuantity
	}
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return Cart{}, err
	}
	defer tx.Rollback(ctx)

	p, err := s.Products.GetForUpdate(ctx, tx, productID)
	if err != nil {
		return Cart{}, err
	}
	if !p.Active {
		return Cart{}, catalog.ErrProductUnavailable
	}

	c, err := s.Lines.GetOrCreate(ctx, tx, userID)
	if err != nil {
		return Cart{}, err
	}

	merged := qty
	if existing, found, err := s.Lines.LineQuantity(ctx, tx, c.ID, productID); err != nil {
		return Cart{}, err
	} else if found {
		merged += existing
	}
	if p.Stock < merged {
		return Cart{}, &inventory.InsufficientStockError{
			Product:   p.Name,
			Available: p.Stock,
			Requested: merged,
		}
	}
	if err := s.Lines.UpsertLine(ctx, tx, c.ID, productID, merged); err != nil {
		return Cart{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Cart{}, err
	}
	s.Log.Debug("cart item added",
		zap.String("user_id", userID), zap.String("product_id", productID), zap.Int("quantity", merged))
	return s.Get(ctx, userID)
}

func (s *Service) UpdateItemQuantity(ctx context.Context, userID, productID string, qty int) (Cart, error) {
	if qty < 1 {
		return Cart{}, ErrInvalidQuantity
	}
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return Cart{}, err
	}
	defer tx.Rollback(ctx)

	p, err := s.Products.GetForUpdate(ctx, tx, productID)
	if err != nil {
		return Cart{}, err
	}
	if p.Stock < qty {
		return Cart{}, &inventory.InsufficientStockError{
			Product:   p.Name,
			Available: p.Stock,
			Requested: qty,
		}
	}

	c, err := s.Lines.GetOrCreate(ctx, tx, userID)
	if err != nil {
		return Cart{}, err
	}
	if err := s.Lines.UpdateLine(ctx, tx, c.ID, productID, qty); err != nil {
		return Cart{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Cart{}, err
	}
	return s.Get(ctx, userID)
}

func (s *Service) RemoveItem(ctx context.Context, userID, productID string) (Cart, error) {
	c, err := s.Lines.GetOrCreate(ctx, s.Pool, userID)
	if err != nil {
		return Cart{}, err
	}
	if err := s.Lines.DeleteLine(ctx, s.Pool, c.ID, productID); err != nil {
		return Cart{}, err
	}
	return s.Get(ctx, userID)
}

func (s *Service) Clear(ctx context.Context, userID string) error {
	return s.Lines.ClearByUser(ctx, s.Pool, userID)
}

// ValidateForCheckout re-validates every line against live product state.
// First violation aborts; stock is not touched.
func (s *Service) ValidateForCheckout(ctx context.Context, userID string) error {
	c, err := s.Lines.GetOrCreate(ctx, s.Pool, userID)
	if err != nil {
		return err
	}
	products := make(map[string]catalog.Product, len(c.Lines))
	for _, l := range c.Lines {
		p, err := s.Products.Get(ctx, s.Pool, l.ProductID)
		if err != nil {
			return err
		}
		products[l.ProductID] = p
	}
	return ValidateLines(c.Lines, func(id string) (catalog.Product, bool) {
		p, ok := products[id]
		return p, ok
	})
}
