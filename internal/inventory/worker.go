package inventory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/ariefcatur/go-retail-fulfillment/internal/kafka"
	"github.com/ariefcatur/go-retail-fulfillment/internal/orders"
	"github.com/ariefcatur/go-retail-fulfillment/internal/postgres"
	"github.com/ariefcatur/go-retail-fulfillment/internal/redisx"
)

// Worker audits cancellation events against the stock movement trail. The
// release itself happens inside the cancel transaction; this consumer only
// verifies the bookkeeping lines up and flags drift.
type Worker struct {
	Ledger Ledger
	Pool   postgres.DBTX
	Redis  *redis.Client
	Name   string
	Log    *zap.Logger
}

func (w *Worker) HandleOrderCancelled(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventOrderCancelled {
		return nil // ignore
	}

	// dedup by event_id so redeliveries are no-ops
	dkey := fmt.Sprintf(redisx.KeyDedup, w.Name, env.EventID)
	if exists, _ := redisx.Exists(ctx, w.Redis, dkey); exists {
		return nil
	}

	p, err := kafkax.UnwrapPayload[orders.OrderCancelledPayload](env.Payload)
	if err != nil {
		return err
	}

	movements, err := w.Ledger.MovementsForOrder(ctx, w.Pool, p.OrderID)
	if err != nil {
		return err
	}
	releasedByProduct := map[string]int{}
	for _, mv := range movements {
		if mv.Type == MovementRelease {
			releasedByProduct[mv.ProductID] += mv.Quantity
		}
	}
	for _, l := range p.Released {
		if releasedByProduct[l.ProductID] < l.Qty {
			w.Log.Warn("release bookkeeping mismatch",
				zap.String("order_id", p.OrderID),
				zap.String("product_id", l.ProductID),
				zap.Int("expected", l.Qty),
				zap.Int("recorded", releasedByProduct[l.ProductID]))
		}
	}
	_ = w.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	w.Log.Debug("order cancellation audited", zap.String("order_id", p.OrderID))
	return nil
}
