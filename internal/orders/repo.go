package orders

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-retail-fulfillment/internal/postgres"
)

type Repo struct{}

const orderCols = `id, order_number, user_id, status, shipping_address, billing_address,
	notes, COALESCE(tracking_number, ''),
	subtotal::text, tax_amount::text, shipping_amount::text, discount_amount::text, total_amount::text,
	created_at, updated_at`

func (Repo) Insert(ctx context.Context, q postgres.DBTX, o *Order) error {
	_, err := q.Exec(ctx, `
		INSERT INTO orders(id, order_number, user_id, status, shipping_address, billing_address,
			notes, subtotal, tax_amount, shipping_amount, discount_amount, total_amount)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		o.ID, o.OrderNumber, o.UserID, o.Status, o.ShippingAddress, o.BillingAddress, o.Notes,
		o.Subtotal.String(), o.TaxAmount.String(), o.ShippingAmount.String(),
		o.DiscountAmount.String(), o.TotalAmount.String())
	if err != nil {
		return err
	}
	for _, l := range o.Lines {
		if _, err := q.Exec(ctx, `
			INSERT INTO order_items(id, order_id, product_id, product_name, sku, quantity, unit_price, discount)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			l.ID, o.ID, l.ProductID, l.ProductName, l.SKU, l.Quantity,
			l.UnitPrice.String(), l.Discount.String()); err != nil {
			return err
		}
	}
	return nil
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var sub, tax, ship, disc, total string
	err := row.Scan(&o.ID, &o.OrderNumber, &o.UserID, &o.Status, &o.ShippingAddress, &o.BillingAddress,
		&o.Notes, &o.TrackingNumber, &sub, &tax, &ship, &disc, &total, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	for dst, s := range map[*decimal.Decimal]string{
		&o.Subtotal: sub, &o.TaxAmount: tax, &o.ShippingAmount: ship,
		&o.DiscountAmount: disc, &o.TotalAmount: total,
	} {
		if *dst, err = decimal.NewFromString(s); err != nil {
			return nil, err
		}
	}
	return &o, nil
}

func (r Repo) loadLines(ctx context.Context, q postgres.DBTX, o *Order) error {
	rows, err := q.Query(ctx, `
		SELECT id, order_id, product_id, product_name, sku, quantity, unit_price::text, discount::text
		FROM order_items WHERE order_id=$1 ORDER BY id`, o.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var l Line
		var price, disc string
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.ProductName, &l.SKU, &l.Quantity, &price, &disc); err != nil {
			return err
		}
		if l.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return err
		}
		if l.Discount, err = decimal.NewFromString(disc); err != nil {
			return err
		}
		o.Lines = append(o.Lines, l)
	}
	return rows.Err()
}

func (r Repo) Get(ctx context.Context, q postgres.DBTX, id string) (*Order, error) {
	o, err := scanOrder(q.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1`, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadLines(ctx, q, o); err != nil {
		return nil, err
	}
	return o, nil
}

// GetForUpdate locks the order row so status transitions on the same order
// are serialized.
func (r Repo) GetForUpdate(ctx context.Context, q postgres.DBTX, id string) (*Order, error) {
	o, err := scanOrder(q.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadLines(ctx, q, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r Repo) GetByNumber(ctx context.Context, q postgres.DBTX, number string) (*Order, error) {
	o, err := scanOrder(q.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE order_number=$1`, number))
	if err != nil {
		return nil, err
	}
	if err := r.loadLines(ctx, q, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r Repo) ListByUser(ctx context.Context, q postgres.DBTX, userID string) ([]*Order, error) {
	rows, err := q.Query(ctx, `SELECT `+orderCols+` FROM orders WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, o := range out {
		if err := r.loadLines(ctx, q, o); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (Repo) UpdateStatus(ctx context.Context, q postgres.DBTX, id string, st Status) error {
	ct, err := q.Exec(ctx, `UPDATE orders SET status=$2, updated_at=now() WHERE id=$1`, id, st)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (Repo) UpdateTracking(ctx context.Context, q postgres.DBTX, id, tracking string) error {
	ct, err := q.Exec(ctx, `UPDATE orders SET tracking_number=$2, updated_at=now() WHERE id=$1`, id, tracking)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
