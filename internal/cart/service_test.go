package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-retail-fulfillment/internal/catalog"
	"github.com/ariefcatur/go-retail-fulfillment/internal/inventory"
	"github.com/ariefcatur/go-retail-fulfillment/internal/postgres"
)

type fakeTx struct{ pgx.Tx }

func (fakeTx) Commit(context.Context) error   { return nil }
func (fakeTx) Rollback(context.Context) error { return nil }

type fakeDB struct{}

func (fakeDB) Begin(context.Context) (pgx.Tx, error) { return fakeTx{}, nil }

type fakeProducts struct {
	byID map[string]catalog.Product
}

func (f *fakeProducts) Get(_ context.Context, _ postgres.DBTX, id string) (catalog.Product, error) {
	p, ok := f.byID[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

func (f *fakeProducts) GetForUpdate(ctx context.Context, q postgres.DBTX, id string) (catalog.Product, error) {
	return f.Get(ctx, q, id)
}

type fakeLines struct {
	cartID string
	userID string
	qty    map[string]int // by product id
}

func newFakeLines(userID string) *fakeLines {
	return &fakeLines{cartID: "c1", userID: userID, qty: map[string]int{}}
}

func (f *fakeLines) GetOrCreate(_ context.Context, _ postgres.DBTX, userID string) (Cart, error) {
	c := Cart{ID: f.cartID, UserID: userID}
	for pid, q := range f.qty {
		c.Lines = append(c.Lines, Line{CartID: f.cartID, ProductID: pid, Quantity: q})
	}
	return c, nil
}

func (f *fakeLines) LineQuantity(_ context.Context, _ postgres.DBTX, _, productID string) (int, bool, error) {
	q, ok := f.qty[productID]
	return q, ok, nil
}

func (f *fakeLines) UpsertLine(_ context.Context, _ postgres.DBTX, _, productID string, qty int) error {
	f.qty[productID] = qty
	return nil
}

func (f *fakeLines) UpdateLine(_ context.Context, _ postgres.DBTX, _, productID string, qty int) error {
	if _, ok := f.qty[productID]; !ok {
		return ErrItemNotFound
	}
	f.qty[productID] = qty
	return nil
}

func (f *fakeLines) DeleteLine(_ context.Context, _ postgres.DBTX, _, productID string) error {
	delete(f.qty, productID)
	return nil
}

func (f *fakeLines) ClearByUser(_ context.Context, _ postgres.DBTX, _ string) error {
	f.qty = map[string]int{}
	return nil
}

func newTestService(products map[string]catalog.Product) (*Service, *fakeLines) {
	lines := newFakeLines("u1")
	svc := &Service{
		DB:       fakeDB{},
		Products: &fakeProducts{byID: products},
		Lines:    lines,
		Log:      zap.NewNop(),
	}
	return svc, lines
}

func activeProduct(id, name string, stock int) map[string]catalog.Product {
	return map[string]catalog.Product{
		id: {ID: id, Name: name, SKU: "SKU-" + id, Stock: stock, Active: true},
	}
}

func TestAddItemMergesQuantities(t *testing.T) {
	svc, lines := newTestService(activeProduct("p1", "Widget", 10))
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, "u1", "p1", 2); err != nil {
		t.Fatalf("first AddItem: %v", err)
	}
	c, err := svc.AddItem(ctx, "u1", "p1", 3)
	if err != nil {
		t.Fatalf("second AddItem: %v", err)
	}
	if len(c.Lines) != 1 {
		t.Fatalf("lines = %d, want 1 merged line", len(c.Lines))
	}
	if lines.qty["p1"] != 5 {
		t.Fatalf("quantity = %d, want 5", lines.qty["p1"])
	}
}

func TestAddItemRejectsMergedOverstock(t *testing.T) {
	svc, lines := newTestService(activeProduct("p1", "Widget", 4))
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, "u1", "p1", 3); err != nil {
		t.Fatalf("first AddItem: %v", err)
	}
	_, err := svc.AddItem(ctx, "u1", "p1", 2)

	var stockErr *inventory.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("err = %v, want InsufficientStockError", err)
	}
	// the merged quantity is what gets rejected, not the increment
	if stockErr.Requested != 5 || stockErr.Available != 4 {
		t.Fatalf("stockErr = %+v", stockErr)
	}
	if lines.qty["p1"] != 3 {
		t.Fatalf("quantity = %d, want 3 unchanged", lines.qty["p1"])
	}
}

func TestAddItemInactiveProduct(t *testing.T) {
	svc, _ := newTestService(map[string]catalog.Product{
		"p1": {ID: "p1", Name: "Widget", Stock: 10, Active: false},
	})
	if _, err := svc.AddItem(context.Background(), "u1", "p1", 1); !errors.Is(err, catalog.ErrProductUnavailable) {
		t.Fatalf("err = %v, want catalog.ErrProductUnavailable", err)
	}
}

func TestAddItemInvalidQuantity(t *testing.T) {
	svc, _ := newTestService(activeProduct("p1", "Widget", 10))
	for _, qty := range []int{0, -1} {
		if _, err := svc.AddItem(context.Background(), "u1", "p1", qty); !errors.Is(err, ErrInvalidQuantity) {
			t.Errorf("AddItem(qty=%d) err = %v, want ErrInvalidQuantity", qty, err)
		}
	}
}

func TestUpdateItemQuantityMissingLine(t *testing.T) {
	svc, _ := newTestService(activeProduct("p1", "Widget", 10))
	if _, err := svc.UpdateItemQuantity(context.Background(), "u1", "p1", 2); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("err = %v, want ErrItemNotFound", err)
	}
}

func TestUpdateItemQuantitySetsAbsoluteValue(t *testing.T) {
	svc, lines := newTestService(activeProduct("p1", "Widget", 10))
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, "u1", "p1", 2); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if _, err := svc.UpdateItemQuantity(ctx, "u1", "p1", 7); err != nil {
		t.Fatalf("UpdateItemQuantity: %v", err)
	}
	if lines.qty["p1"] != 7 {
		t.Fatalf("quantity = %d, want 7", lines.qty["p1"])
	}
}

func TestRemoveItemAndClear(t *testing.T) {
	svc, lines := newTestService(activeProduct("p1", "Widget", 10))
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, "u1", "p1", 2); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	c, err := svc.RemoveItem(ctx, "u1", "p1")
	if err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	if len(c.Lines) != 0 {
		t.Fatalf("lines = %d after remove, want 0", len(c.Lines))
	}

	if _, err := svc.AddItem(ctx, "u1", "p1", 1); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if err := svc.Clear(ctx, "u1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if len(lines.qty) != 0 {
		t.Fatalf("lines remain after Clear: %v", lines.qty)
	}
}

func TestValidateForCheckoutEmptyCart(t *testing.T) {
	svc, _ := newTestService(activeProduct("p1", "Widget", 10))
	if err := svc.ValidateForCheckout(context.Background(), "u1"); !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("err = %v, want ErrEmptyCart", err)
	}
}

func TestValidateForCheckoutCatchesStockDrop(t *testing.T) {
	products := activeProduct("p1", "Widget", 10)
	svc, _ := newTestService(products)
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, "u1", "p1", 5); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	// stock drops between add and checkout
	fp := svc.Products.(*fakeProducts)
	p := fp.byID["p1"]
	p.Stock = 2
	fp.byID["p1"] = p

	err := svc.ValidateForCheckout(ctx, "u1")
	var stockErr *inventory.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("err = %v, want InsufficientStockError", err)
	}
	if stockErr.Available != 2 || stockErr.Requested != 5 {
		t.Fatalf("stockErr = %+v", stockErr)
	}
}
