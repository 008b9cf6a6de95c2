package orders

import (
	"context"

	kafkago "github.com/segmentio/kafka-go"
)

// Ledger is the stock side of the saga. Reserve fails with InsufficientStock
// or NotFound; Release only with NotFound or transport failures.
type Ledger interface {
	Reserve(ctx context.Context, productID string, qty int) error
	Release(ctx context.Context, productID string, qty int) error
}

// Catalog returns nil, nil for an unknown product.
type Catalog interface {
	GetProductByID(ctx context.Context, productID string) (*Product, error)
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}
