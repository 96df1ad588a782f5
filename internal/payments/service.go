package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/ariefcatur/go-retail-fulfillment/internal/kafka"
	"github.com/ariefcatur/go-retail-fulfillment/internal/orders"
	"github.com/ariefcatur/go-retail-fulfillment/internal/postgres"
)

type PaymentStore interface {
	Insert(ctx context.Context, q postgres.DBTX, p *Payment) error
	Get(ctx context.Context, q postgres.DBTX, id string) (*Payment, error)
	GetForUpdate(ctx context.Context, q postgres.DBTX, id string) (*Payment, error)
	GetByOrder(ctx context.Context, q postgres.DBTX, orderID string) (*Payment, error)
	Update(ctx context.Context, q postgres.DBTX, p *Payment) error
}

type OrderStore interface {
	GetForUpdate(ctx context.Context, q postgres.DBTX, id string) (*orders.Order, error)
	UpdateStatus(ctx context.Context, q postgres.DBTX, id string, st orders.Status) error
}

type Service struct {
	DB        postgres.Beginner
	Pool      postgres.DBTX
	Payments  PaymentStore
	Orders    OrderStore
	Processor Processor
	Producer  *kafkax.Producer
	Name      string
	Log       *zap.Logger
}

type CreateRequest struct {
	OrderID  string
	Method   Method
	Provider string
}

// Create fixes the amount to the order's total at this moment. The duplicate
// check runs under the order row lock and is backed by the unique order_id
// constraint, so two concurrent creates cannot both succeed.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Payment, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	o, err := s.Orders.GetForUpdate(ctx, tx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if o.Status == orders.StatusCancelled || o.Status == orders.StatusRefunded {
		return nil, ErrInvalidOrderState
	}
	if _, err := s.Payments.GetByOrder(ctx, tx, req.OrderID); err == nil {
		return nil, ErrDuplicatePayment
	} else if err != ErrNotFound {
		return nil, err
	}

	p := &Payment{
		ID:            uuid.NewString(),
		TransactionID: NewTransactionID(),
		OrderID:       o.ID,
		Amount:        o.TotalAmount,
		Method:        req.Method,
		Status:        StatusPending,
		Provider:      req.Provider,
		Currency:      "USD",
		CreatedAt:     time.Now(),
	}
	if err := s.Payments.Insert(ctx, tx, p); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	s.Log.Info("payment created",
		zap.String("payment_id", p.ID), zap.String("order_id", o.ID),
		zap.String("amount", p.Amount.String()))
	return p, nil
}

// Process runs the pluggable gateway outcome. Success completes the payment
// and pushes the owning order to CONFIRMED; failure records the reason and
// leaves the order alone.
func (s *Service) Process(ctx context.Context, paymentID, providerRef string) (*Payment, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	p, err := s.Payments.GetForUpdate(ctx, tx, paymentID)
	if err != nil {
		return nil, err
	}
	if err := p.Transition(StatusProcessing); err != nil {
		return nil, err
	}

	if procErr := s.Processor.Attempt(ctx, p); procErr != nil {
		p.MarkFailed(procErr.Error())
		if err := s.Payments.Update(ctx, tx, p); err != nil {
			return nil, err
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}
		s.Log.Warn("payment failed",
			zap.String("payment_id", p.ID), zap.String("reason", p.FailureReason))
		s.publish(orders.EventPaymentFailed, orders.TopicPaymentFailed, p.OrderID,
			orders.PaymentFailedPayload{OrderID: p.OrderID, TransactionID: p.TransactionID, Reason: p.FailureReason})
		return p, nil
	}

	p.MarkCompleted(providerRef)
	if err := s.Payments.Update(ctx, tx, p); err != nil {
		return nil, err
	}
	o, err := s.Orders.GetForUpdate(ctx, tx, p.OrderID)
	if err != nil {
		return nil, err
	}
	if err := o.Transition(orders.StatusConfirmed); err != nil {
		return nil, err
	}
	if err := s.Orders.UpdateStatus(ctx, tx, o.ID, o.Status); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	s.Log.Info("payment completed",
		zap.String("payment_id", p.ID), zap.String("order_id", p.OrderID))
	s.publish(orders.EventPaymentCompleted, orders.TopicPaymentCompleted, p.OrderID,
		orders.PaymentCompletedPayload{
			OrderID: p.OrderID, TransactionID: p.TransactionID,
			Amount: p.Amount.String(), Currency: p.Currency,
		})
	return p, nil
}

// Refund is only legal from COMPLETED and pushes the owning order to
// REFUNDED. Stock is not released: refund is not cancellation.
func (s *Service) Refund(ctx context.Context, paymentID, reason string) (*Payment, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	p, err := s.Payments.GetForUpdate(ctx, tx, paymentID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(p.Status, StatusRefunded) {
		return nil, ErrInvalidTransition
	}
	p.MarkRefunded(reason)
	if err := s.Payments.Update(ctx, tx, p); err != nil {
		return nil, err
	}
	o, err := s.Orders.GetForUpdate(ctx, tx, p.OrderID)
	if err != nil {
		return nil, err
	}
	if err := o.Transition(orders.StatusRefunded); err != nil {
		return nil, err
	}
	if err := s.Orders.UpdateStatus(ctx, tx, o.ID, o.Status); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	s.Log.Info("payment refunded",
		zap.String("payment_id", p.ID), zap.String("order_id", p.OrderID))
	s.publish(orders.EventPaymentRefunded, orders.TopicPaymentRefunded, p.OrderID,
		orders.PaymentRefundedPayload{OrderID: p.OrderID, TransactionID: p.TransactionID, Reason: reason})
	return p, nil
}

// Cancel voids a payment record. Completed payments must go through Refund;
// the order and its stock are never touched here.
func (s *Service) Cancel(ctx context.Context, paymentID string) (*Payment, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	p, err := s.Payments.GetForUpdate(ctx, tx, paymentID)
	if err != nil {
		return nil, err
	}
	if err := p.Transition(StatusCancelled); err != nil {
		return nil, err
	}
	if err := s.Payments.Update(ctx, tx, p); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Payment, error) {
	return s.Payments.Get(ctx, s.Pool, id)
}

func (s *Service) GetByOrder(ctx context.Context, orderID string) (*Payment, error) {
	return s.Payments.GetByOrder(ctx, s.Pool, orderID)
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
