package payments

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-retail-fulfillment/internal/postgres"
)

type Repo struct{}

const paymentCols = `id, transaction_id, order_id, amount::text, method, status,
	COALESCE(provider, ''), COALESCE(provider_reference, ''), COALESCE(failure_reason, ''),
	currency, created_at, updated_at, paid_at, refunded_at`

func (Repo) Insert(ctx context.Context, q postgres.DBTX, p *Payment) error {
	_, err := q.Exec(ctx, `
		INSERT INTO payments(id, transaction_id, order_id, amount, method, status, provider, currency)
		VALUES ($1,$2,$3,$4,$5,$6,NULLIF($7,''),$8)`,
		p.ID, p.TransactionID, p.OrderID, p.Amount.String(), p.Method, p.Status, p.Provider, p.Currency)
	var pgErr *pgconn.PgError
	// unique constraint on order_id is the hard guarantee behind
	// at-most-one-payment-per-order
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicatePayment
	}
	return err
}

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	var amount string
	err := row.Scan(&p.ID, &p.TransactionID, &p.OrderID, &amount, &p.Method, &p.Status,
		&p.Provider, &p.ProviderReference, &p.FailureReason, &p.Currency,
		&p.CreatedAt, &p.UpdatedAt, &p.PaidAt, &p.RefundedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if p.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, err
	}
	return &p, nil
}

func (Repo) Get(ctx context.Context, q postgres.DBTX, id string) (*Payment, error) {
	return scanPayment(q.QueryRow(ctx, `SELECT `+paymentCols+` FROM payments WHERE id=$1`, id))
}

// GetForUpdate locks the payment row so concurrent process/refund/cancel
// calls on the same payment are serialized.
func (Repo) GetForUpdate(ctx context.Context, q postgres.DBTX, id string) (*Payment, error) {
	return scanPayment(q.QueryRow(ctx, `SELECT `+paymentCols+` FROM payments WHERE id=$1 FOR UPDATE`, id))
}

func (Repo) GetByOrder(ctx context.Context, q postgres.DBTX, orderID string) (*Payment, error) {
	return scanPayment(q.QueryRow(ctx, `SELECT `+paymentCols+` FROM payments WHERE order_id=$1`, orderID))
}

func (Repo) GetByTransactionID(ctx context.Context, q postgres.DBTX, txnID string) (*Payment, error) {
	return scanPayment(q.QueryRow(ctx, `SELECT `+paymentCols+` FROM payments WHERE transaction_id=$1`, txnID))
}

func (Repo) Update(ctx context.Context, q postgres.DBTX, p *Payment) error {
	_, err := q.Exec(ctx, `
		UPDATE payments SET status=$2, provider_reference=NULLIF($3,''), failure_reason=NULLIF($4,''),
			paid_at=$5, refunded_at=$6, updated_at=now()
		WHERE id=$1`,
		p.ID, p.Status, p.ProviderReference, p.FailureReason, p.PaidAt, p.RefundedAt)
	return err
}
