package orders

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestLineTotal(t *testing.T) {
	l := Line{Quantity: 3, UnitPrice: dec("10.50"), Discount: dec("1.50")}
	if got := l.Total(); !got.Equal(dec("30.00")) {
		t.Fatalf("Total() = %s, want 30.00", got)
	}
}

func TestCalculateTotals(t *testing.T) {
	o := &Order{
		Lines: []Line{
			{Quantity: 2, UnitPrice: dec("10.50")},
			{Quantity: 1, UnitPrice: dec("5.25"), Discount: dec("0.25")},
		},
		TaxAmount:      dec("1.00"),
		ShippingAmount: dec("2.00"),
		DiscountAmount: dec("0.50"),
	}
	o.CalculateTotals()

	if !o.Subtotal.Equal(dec("26.00")) {
		t.Errorf("Subtotal = %s, want 26.00", o.Subtotal)
	}
	// total = subtotal + tax + shipping - discount, always
	want := o.Subtotal.Add(o.TaxAmount).Add(o.ShippingAmount).Sub(o.DiscountAmount)
	if !o.TotalAmount.Equal(want) {
		t.Errorf("TotalAmount = %s, want %s", o.TotalAmount, want)
	}
	if !o.TotalAmount.Equal(dec("28.50")) {
		t.Errorf("TotalAmount = %s, want 28.50", o.TotalAmount)
	}
}

func TestCalculateTotalsEmptyOrder(t *testing.T) {
	o := &Order{}
	o.CalculateTotals()
	if !o.Subtotal.IsZero() || !o.TotalAmount.IsZero() {
		t.Fatalf("empty order totals = %s / %s, want zero", o.Subtotal, o.TotalAmount)
	}
}

func TestNewOrderNumberFormat(t *testing.T) {
	n := NewOrderNumber()
	if !strings.HasPrefix(n, "ORD-") {
		t.Fatalf("order number %q missing ORD- prefix", n)
	}
	if parts := strings.Split(n, "-"); len(parts) != 3 {
		t.Fatalf("order number %q has %d segments, want 3", n, len(parts))
	}
}
