package orders

const (
	TopicOrderCreated      = "order.created"
	TopicOrderCanceled     = "order.canceled"
	TopicStockReleaseRetry = "inventory.release.retry"
)

// Partition key = order_id, so all events of one order keep their order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
