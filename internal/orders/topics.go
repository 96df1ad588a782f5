package orders

const (
	TopicOrderCreated     = "order.created"
	TopicOrderCancelled   = "order.cancelled"
	TopicPaymentCompleted = "order.payment.completed"
	TopicPaymentFailed    = "order.payment.failed"
	TopicPaymentRefunded  = "order.payment.refunded"
)

// Partition key = order_id so all events for one order keep their ordering.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
