package redisx

import "time"

const (
	// Read representation of an order: order:{order_id} -> JSON
	KeyOrder = "order:%s"

	// Catalog snapshot of a product: product:{product_id} -> JSON
	KeyProduct = "product:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLEntity = 5 * time.Minute
	TTLDedup  = 48 * time.Hour
	// A dedup key is held this long while its event is being applied.
	TTLClaim = 30 * time.Second
)
