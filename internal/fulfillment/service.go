package fulfillment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-retail-fulfillment/internal/cart"
	"github.com/ariefcatur/go-retail-fulfillment/internal/catalog"
	kafkax "github.com/ariefcatur/go-retail-fulfillment/internal/kafka"
	"github.com/ariefcatur/go-retail-fulfillment/internal/orders"
	"github.com/ariefcatur/go-retail-fulfillment/internal/postgres"
	"github.com/ariefcatur/go-retail-fulfillment/internal/redisx"
)

type Catalog interface {
	Get(ctx context.Context, q postgres.DBTX, id string) (catalog.Product, error)
}

type Users interface {
	Get(ctx context.Context, q postgres.DBTX, id string) (catalog.User, error)
}

// Ledger is the only path to stock mutation the orchestrator uses.
type Ledger interface {
	Reserve(ctx context.Context, q postgres.DBTX, orderID, productID string, qty int) (catalog.Product, error)
	Release(ctx context.Context, q postgres.DBTX, orderID, productID string, qty int) error
	SetQuantity(ctx context.Context, q postgres.DBTX, productID string, qty int) error
}

type CartStore interface {
	GetOrCreate(ctx context.Context, q postgres.DBTX, userID string) (cart.Cart, error)
	ClearByUser(ctx context.Context, q postgres.DBTX, userID string) error
}

type OrderStore interface {
	Insert(ctx context.Context, q postgres.DBTX, o *orders.Order) error
	Get(ctx context.Context, q postgres.DBTX, id string) (*orders.Order, error)
	GetForUpdate(ctx context.Context, q postgres.DBTX, id string) (*orders.Order, error)
	ListByUser(ctx context.Context, q postgres.DBTX, userID string) ([]*orders.Order, error)
	UpdateStatus(ctx context.Context, q postgres.DBTX, id string, st orders.Status) error
	UpdateTracking(ctx context.Context, q postgres.DBTX, id, tracking string) error
}

// Service coordinates cart -> order creation, cancellation and the stock
// reservations both imply. Every write path runs inside one transaction
// opened here: validate, reserve, persist, clear is all-or-nothing.
type Service struct {
	DB       postgres.Beginner
	Pool     postgres.DBTX
	Users    Users
	Products Catalog
	Ledger   Ledger
	Carts    CartStore
	Orders   OrderStore
	Producer *kafkax.Producer
	Redis    *redis.Client
	Name     string
	Log      *zap.Logger
}

type LineRequest struct {
	ProductID string
	Quantity  int
	Discount  decimal.Decimal
}

type CreateOrderRequest struct {
	UserID          string
	ShippingAddress string
	BillingAddress  string
	Notes           string
	TaxAmount       decimal.Decimal
	ShippingAmount  decimal.Decimal
	DiscountAmount  decimal.Decimal
	// Items is only used by CreateOrder; CreateOrderFromCart reads the cart.
	Items []LineRequest
}

// CreateOrderFromCart turns the user's cart into a PENDING order: validate
// every line, snapshot product name/sku/price, reserve stock per line,
// compute totals, persist, clear the cart. A failed reservation on any line
// rolls the whole attempt back; no partial stock decrement is ever visible.
func (s *Service) CreateOrderFromCart(ctx context.Context, req CreateOrderRequest) (*orders.Order, error) {
	if _, err := s.Users.Get(ctx, s.Pool, req.UserID); err != nil {
		return nil, err
	}
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	c, err := s.Carts.GetOrCreate(ctx, tx, req.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.validateLines(ctx, tx, c.Lines); err != nil {
		return nil, err
	}

	o := s.newOrder(req)
	for _, l := range c.Lines {
		if err := s.reserveLine(ctx, tx, o, l.ProductID, l.Quantity, decimal.Zero); err != nil {
			return nil, err
		}
	}
	o.CalculateTotals()

	if err := s.Orders.Insert(ctx, tx, o); err != nil {
		return nil, err
	}
	if err := s.Carts.ClearByUser(ctx, tx, req.UserID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.cacheStatus(ctx, o.ID, o.Status)
	s.publishCreated(o)
	s.Log.Info("order created from cart",
		zap.String("order_id", o.ID), zap.String("order_number", o.OrderNumber),
		zap.String("user_id", o.UserID), zap.String("total", o.TotalAmount.String()))
	return o, nil
}

// CreateOrder is the same pipeline without a cart source: items come in
// directly, each validated and reserved before the order is persisted.
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (*orders.Order, error) {
	if len(req.Items) == 0 {
		return nil, cart.ErrEmptyCart
	}
	for _, it := range req.Items {
		if it.Quantity < 1 {
			return nil, cart.ErrInvalidQuantity
		}
	}
	if _, err := s.Users.Get(ctx, s.Pool, req.UserID); err != nil {
		return nil, err
	}
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	o := s.newOrder(req)
	for _, it := range req.Items {
		if err := s.reserveLine(ctx, tx, o, it.ProductID, it.Quantity, it.Discount); err != nil {
			return nil, err
		}
	}
	o.CalculateTotals()

	if err := s.Orders.Insert(ctx, tx, o); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.cacheStatus(ctx, o.ID, o.Status)
	s.publishCreated(o)
	s.Log.Info("order created",
		zap.String("order_id", o.ID), zap.String("order_number", o.OrderNumber),
		zap.String("user_id", o.UserID), zap.String("total", o.TotalAmount.String()))
	return o, nil
}

// CancelOrder releases every line's reservation and moves the order to
// CANCELLED in the same transaction. Shipped and delivered orders cannot be
// cancelled any more.
func (s *Service) CancelOrder(ctx context.Context, orderID string) (*orders.Order, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	o, err := s.Orders.GetForUpdate(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status == orders.StatusShipped || o.Status == orders.StatusDelivered {
		return nil, orders.ErrInvalidTransition
	}
	if err := o.Transition(orders.StatusCancelled); err != nil {
		return nil, err
	}
	released := make([]orders.LineQty, 0, len(o.Lines))
	for _, l := range o.Lines {
		if err := s.Ledger.Release(ctx, tx, o.ID, l.ProductID, l.Quantity); err != nil {
			return nil, err
		}
		released = append(released, orders.LineQty{ProductID: l.ProductID, Qty: l.Quantity})
	}
	if err := s.Orders.UpdateStatus(ctx, tx, o.ID, o.Status); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.cacheStatus(ctx, o.ID, o.Status)
	s.publish(orders.EventOrderCancelled, orders.TopicOrderCancelled, o.ID,
		orders.OrderCancelledPayload{OrderID: o.ID, Released: released})
	s.Log.Info("order cancelled", zap.String("order_id", o.ID))
	return o, nil
}

// UpdateStatus applies an explicit status change through the transition
// table. Used by the administrative endpoint; cancellation must go through
// CancelOrder so stock is released.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, st orders.Status, tracking string) (*orders.Order, error) {
	if !orders.ValidStatus(st) {
		return nil, fmt.Errorf("%w: unknown status %q", orders.ErrInvalidTransition, st)
	}
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	o, err := s.Orders.GetForUpdate(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if err := o.Transition(st); err != nil {
		return nil, err
	}
	if err := s.Orders.UpdateStatus(ctx, tx, o.ID, o.Status); err != nil {
		return nil, err
	}
	if tracking != "" {
		o.TrackingNumber = tracking
		if err := s.Orders.UpdateTracking(ctx, tx, o.ID, tracking); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	s.cacheStatus(ctx, o.ID, o.Status)
	return o, nil
}

// SetStock is the administrative absolute overwrite.
func (s *Service) SetStock(ctx context.Context, productID string, qty int) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := s.Ledger.SetQuantity(ctx, tx, productID, qty); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Service) GetOrder(ctx context.Context, id string) (*orders.Order, error) {
	return s.Orders.Get(ctx, s.Pool, id)
}

func (s *Service) ListOrders(ctx context.Context, userID string) ([]*orders.Order, error) {
	return s.Orders.ListByUser(ctx, s.Pool, userID)
}

func (s *Service) newOrder(req CreateOrderRequest) *orders.Order {
	billing := req.BillingAddress
	if billing == "" {
		billing = req.ShippingAddress
	}
	return &orders.Order{
		ID:              uuid.NewString(),
		OrderNumber:     orders.NewOrderNumber(),
		UserID:          req.UserID,
		Status:          orders.StatusPending,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  billing,
		Notes:           req.Notes,
		TaxAmount:       req.TaxAmount,
		ShippingAmount:  req.ShippingAmount,
		DiscountAmount:  req.DiscountAmount,
		CreatedAt:       time.Now(),
	}
}

func (s *Service) validateLines(ctx context.Context, q postgres.DBTX, lines []cart.Line) error {
	products := make(map[string]catalog.Product, len(lines))
	for _, l := range lines {
		p, err := s.Products.Get(ctx, q, l.ProductID)
		if err != nil {
			return err
		}
		products[l.ProductID] = p
	}
	return cart.ValidateLines(lines, func(id string) (catalog.Product, bool) {
		p, ok := products[id]
		return p, ok
	})
}

// reserveLine decrements stock under the product row lock and appends the
// frozen line snapshot to the order.
func (s *Service) reserveLine(ctx context.Context, q postgres.DBTX, o *orders.Order, productID string, qty int, discount decimal.Decimal) error {
	p, err := s.Ledger.Reserve(ctx, q, o.ID, productID, qty)
	if err != nil {
		return err
	}
	o.Lines = append(o.Lines, orders.Line{
		ID:          uuid.NewString(),
		OrderID:     o.ID,
		ProductID:   p.ID,
		ProductName: p.Name,
		SKU:         p.SKU,
		Quantity:    qty,
		UnitPrice:   p.Price,
		Discount:    discount,
	})
	return nil
}

func (s *Service) cacheStatus(ctx context.Context, orderID string, st orders.Status) {
	if s.Redis == nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	_ = s.Redis.Set(ctx, key, fmt.Sprintf(`{"status":%q}`, st), redisx.TTLStatusCache).Err()
}

func (s *Service) publishCreated(o *orders.Order) {
	lines := make([]orders.LineQty, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, orders.LineQty{ProductID: l.ProductID, Qty: l.Quantity})
	}
	s.publish(orders.EventOrderCreated, orders.TopicOrderCreated, o.ID, orders.OrderCreatedPayload{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		UserID:      o.UserID,
		Lines:       lines,
		Total:       o.TotalAmount.String(),
	})
}

func (s *Service) publish(eventType, topic, orderID string, payload any) {
	if s.Producer == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.Name,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	s.Producer.Publish(topic, orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
