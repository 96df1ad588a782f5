package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ariefcatur/go-retail-fulfillment/internal/catalog"
	"github.com/ariefcatur/go-retail-fulfillment/internal/postgres"
)

var ErrNegativeQuantity = errors.New("stock quantity cannot be negative")

// Movement types recorded in the audit trail.
const (
	MovementReserve = "reserve"
	MovementRelease = "release"
	MovementAdjust  = "adjustment"
)

type Movement struct {
	ID        string
	ProductID string
	Type      string
	Quantity  int
	PrevStock int
	NewStock  int
	OrderID   string
	CreatedAt time.Time
}

// Ledger is the only component allowed to mutate stock counts. Every method
// runs against the caller's DBTX; multi-product atomicity is the caller's
// transaction boundary.
type Ledger struct {
	Products catalog.Repo
}

// Reserve locks the product row, checks availability and decrements stock.
// An inactive product or a shortage both surface as InsufficientStockError,
// carrying the quantities the caller needs to report. Returns the locked
// product so order creation can snapshot name/sku/price without re-reading.
func (l Ledger) Reserve(ctx context.Context, q postgres.DBTX, orderID, productID string, qty int) (catalog.Product, error) {
	p, err := l.Products.GetForUpdate(ctx, q, productID)
	if err != nil {
		return catalog.Product{}, err
	}
	if !p.Active || p.Stock < qty {
		return catalog.Product{}, &InsufficientStockError{
			Product:   p.Name,
			Available: p.Stock,
			Requested: qty,
		}
	}
	if err := l.apply(ctx, q, p, MovementReserve, -qty, orderID); err != nil {
		return catalog.Product{}, err
	}
	return p, nil
}

// Release restores previously reserved stock. There is no upper bound check:
// giving back what was reserved is always valid.
func (l Ledger) Release(ctx context.Context, q postgres.DBTX, orderID, productID string, qty int) error {
	p, err := l.Products.GetForUpdate(ctx, q, productID)
	if err != nil {
		return err
	}
	return l.apply(ctx, q, p, MovementRelease, qty, orderID)
}

// SetQuantity is the administrative overwrite behind the stock endpoint.
func (l Ledger) SetQuantity(ctx context.Context, q postgres.DBTX, productID string, qty int) error {
	if qty < 0 {
		return ErrNegativeQuantity
	}
	p, err := l.Products.GetForUpdate(ctx, q, productID)
	if err != nil {
		return err
	}
	return l.apply(ctx, q, p, MovementAdjust, qty-p.Stock, "")
}

func (l Ledger) apply(ctx context.Context, q postgres.DBTX, p catalog.Product, typ string, delta int, orderID string) error {
	next := p.Stock + delta
	if _, err := q.Exec(ctx,
		`UPDATE products SET stock=$2, updated_at=now() WHERE id=$1`, p.ID, next); err != nil {
		return err
	}
	var ref any
	if orderID != "" {
		ref = orderID
	}
	_, err := q.Exec(ctx, `
		INSERT INTO stock_movements(id, product_id, type, quantity, prev_stock, new_stock, order_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		uuid.NewString(), p.ID, typ, delta, p.Stock, next, ref)
	return err
}

// MovementsForOrder lists the audit rows tied to one order, newest first.
func (l Ledger) MovementsForOrder(ctx context.Context, q postgres.DBTX, orderID string) ([]Movement, error) {
	rows, err := q.Query(ctx, `
		SELECT id, product_id, type, quantity, prev_stock, new_stock, COALESCE(order_id, ''), created_at
		FROM stock_movements WHERE order_id=$1 ORDER BY created_at DESC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Movement
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.Type, &m.Quantity, &m.PrevStock, &m.NewStock, &m.OrderID, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
