package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-retail-fulfillment/internal/postgres"
)

var (
	ErrNotFound           = errors.New("product not found")
	ErrProductUnavailable = errors.New("product is not available")
)

type Product struct {
	ID        string
	SKU       string
	Name      string
	Price     decimal.Decimal
	Stock     int
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repo is the narrow read surface the fulfillment core needs from the
// product catalog. Catalog CRUD, categories and search live elsewhere.
type Repo struct{}

const productCols = `id, sku, name, price::text, stock, active, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	var price string
	if err := row.Scan(&p.ID, &p.SKU, &p.Name, &price, &p.Stock, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return Product{}, fmt.Errorf("parse price: %w", err)
	}
	p.Price = d
	return p, nil
}

func (Repo) Get(ctx context.Context, q postgres.DBTX, id string) (Product, error) {
	return scanProduct(q.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id=$1`, id))
}

// GetForUpdate locks the product row for the rest of the transaction. This is
// what serializes concurrent reservations and cart merges per product.
func (Repo) GetForUpdate(ctx context.Context, q postgres.DBTX, id string) (Product, error) {
	return scanProduct(q.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id=$1 FOR UPDATE`, id))
}

func (Repo) List(ctx context.Context, q postgres.DBTX) ([]Product, error) {
	rows, err := q.Query(ctx, `SELECT `+productCols+` FROM products ORDER BY sku`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
