package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ariefcatur/go-retail-fulfillment/internal/postgres"
)

type Repo struct{}

// GetOrCreate returns the user's cart, creating it on first access.
func (r Repo) GetOrCreate(ctx context.Context, q postgres.DBTX, userID string) (Cart, error) {
	c := Cart{UserID: userID}
	err := q.QueryRow(ctx, `SELECT id FROM carts WHERE user_id=$1`, userID).Scan(&c.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		c.ID = uuid.NewString()
		_, err = q.Exec(ctx, `
			INSERT INTO carts(id, user_id) VALUES ($1,$2)
			ON CONFLICT (user_id) DO NOTHING`, c.ID, userID)
		if err != nil {
			return Cart{}, err
		}
		// re-read in case a concurrent insert won
		err = q.QueryRow(ctx, `SELECT id FROM carts WHERE user_id=$1`, userID).Scan(&c.ID)
	}
	if err != nil {
		return Cart{}, err
	}
	c.Lines, err = r.lines(ctx, q, c.ID)
	return c, err
}

func (Repo) lines(ctx context.Context, q postgres.DBTX, cartID string) ([]Line, error) {
	rows, err := q.Query(ctx, `
		SELECT cart_id, product_id, quantity FROM cart_items WHERE cart_id=$1 ORDER BY product_id`, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.CartID, &l.ProductID, &l.Quantity); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (Repo) LineQuantity(ctx context.Context, q postgres.DBTX, cartID, productID string) (int, bool, error) {
	var qty int
	err := q.QueryRow(ctx, `
		SELECT quantity FROM cart_items WHERE cart_id=$1 AND product_id=$2`, cartID, productID).Scan(&qty)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	return qty, err == nil, err
}

// UpsertLine writes the absolute quantity for one (cart, product) pair. The
// caller computes the merged quantity under the product row lock, so the
// upsert never loses a concurrent update.
func (Repo) UpsertLine(ctx context.Context, q postgres.DBTX, cartID, productID string, qty int) error {
	_, err := q.Exec(ctx, `
		INSERT INTO cart_items(cart_id, product_id, quantity)
		VALUES ($1,$2,$3)
		ON CONFLICT (cart_id, product_id) DO UPDATE SET quantity = EXCLUDED.quantity`,
		cartID, productID, qty)
	return err
}

func (Repo) UpdateLine(ctx context.Context, q postgres.DBTX, cartID, productID string, qty int) error {
	ct, err := q.Exec(ctx, `
		UPDATE cart_items SET quantity=$3 WHERE cart_id=$1 AND product_id=$2`, cartID, productID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (Repo) DeleteLine(ctx context.Context, q postgres.DBTX, cartID, productID string) error {
	_, err := q.Exec(ctx, `DELETE FROM cart_items WHERE cart_id=$1 AND product_id=$2`, cartID, productID)
	return err
}

func (Repo) ClearByUser(ctx context.Context, q postgres.DBTX, userID string) error {
	_, err := q.Exec(ctx, `
		DELETE FROM cart_items WHERE cart_id IN (SELECT id FROM carts WHERE user_id=$1)`, userID)
	return err
}
