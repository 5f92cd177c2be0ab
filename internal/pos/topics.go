package pos

const (
	TopicOrderCreated = "pos.order.created"
	TopicOrderPaid    = "pos.order.paid"
	TopicOrderPrinted = "pos.order.printed"
)

// Partition key = order_id so all events of one order stay ordered.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
