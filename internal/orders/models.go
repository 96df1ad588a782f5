package orders

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("order not found")

// Order is created once and never deleted; cancellation and refund are
// status transitions, not erasure.
type Order struct {
	ID              string
	OrderNumber     string
	UserID          string
	Status          Status
	Lines           []Line
	ShippingAddress string
	BillingAddress  string
	Notes           string
	TrackingNumber  string
	Subtotal        decimal.Decimal
	TaxAmount       decimal.Decimal
	ShippingAmount  decimal.Decimal
	DiscountAmount  decimal.Decimal
	TotalAmount     decimal.Decimal
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Line is a snapshot taken at order creation. Name, SKU and price are copied
// from the product and stay frozen even if the product changes later.
type Line struct {
	ID          string
	OrderID     string
	ProductID   string
	ProductName string
	SKU         string
	Quantity    int
	UnitPrice   decimal.Decimal
	Discount    decimal.Decimal
}

func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))).Sub(l.Discount)
}

// CalculateTotals recomputes subtotal and total from the line snapshots.
// The total is never edited independently of them.
func (o *Order) CalculateTotals() {
	sub := decimal.Zero
	for _, l := range o.Lines {
		sub = sub.Add(l.Total())
	}
	o.Subtotal = sub
	o.TotalAmount = sub.Add(o.TaxAmount).Add(o.ShippingAmount).Sub(o.DiscountAmount)
}

func NewOrderNumber() string {
	return fmt.Sprintf("ORD-%d-%04d", time.Now().UnixMilli(), rand.Intn(10000))
}
