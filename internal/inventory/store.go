package inventory

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ariefcatur/go-smartorder/internal/apperr"
)

// StockRecord is the quantity on hand for one product in one store.
type StockRecord struct {
	ProductID      string `json:"productId"`
	StoreID        string `json:"storeId"`
	QuantityOnHand int    `json:"quantityOnHand"`
}

// Store owns the StockRecords. Reserve must check and decrement in one atomic
// step per record: concurrent reservations never drive a quantity below zero.
type Store interface {
	Reserve(ctx context.Context, productID string, qty int) error
	Release(ctx context.Context, productID string, qty int) error
	Quantity(ctx context.Context, productID string) (int, error)
	Quantities(ctx context.Context) (map[string]int, error)
	Provision(ctx context.Context, rec StockRecord) error
}

// MemoryStore keeps records in process. Each record is updated with a
// compare-and-swap loop, so reservations on different products never contend.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*memRecord
}

type memRecord struct {
	storeID string
	qty     atomic.Int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]*memRecord{}}
}

func (s *MemoryStore) get(productID string) (*memRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[productID]
	return r, ok
}

func (s *MemoryStore) Reserve(_ context.Context, productID string, qty int) error {
	r, ok := s.get(productID)
	if !ok {
		return apperr.NotFound(productID, "stock record not found")
	}
	for {
		cur := r.qty.Load()
		if cur < int64(qty) {
			return apperr.InsufficientStock(productID)
		}
		if r.qty.CompareAndSwap(cur, cur-int64(qty)) {
			return nil
		}
	}
}

func (s *MemoryStore) Release(_ context.Context, productID string, qty int) error {
	r, ok := s.get(productID)
	if !ok {
		return apperr.NotFound(productID, "stock record not found")
	}
	for {
		cur := r.qty.Load()
		if cur+int64(qty) > MaxQuantity {
			return errOnHandOverflow(productID)
		}
		if r.qty.CompareAndSwap(cur, cur+int64(qty)) {
			return nil
		}
	}
}

func errOnHandOverflow(productID string) error {
	return &apperr.Error{Kind: apperr.KindInvalid, ProductID: productID, Msg: "release would exceed the maximum quantity on hand"}
}

func (s *MemoryStore) Quantity(_ context.Context, productID string) (int, error) {
	r, ok := s.get(productID)
	if !ok {
		return 0, apperr.NotFound(productID, "stock record not found")
	}
	return int(r.qty.Load()), nil
}

func (s *MemoryStore) Quantities(context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int, len(s.records))
	for id, r := range s.records {
		out[id] = int(r.qty.Load())
	}
	return out, nil
}

func (s *MemoryStore) Provision(_ context.Context, rec StockRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.ProductID]; ok {
		return &apperr.Error{Kind: apperr.KindConflict, ProductID: rec.ProductID, Msg: "stock record already exists"}
	}
	r := &memRecord{storeID: rec.StoreID}
	r.qty.Store(int64(rec.QuantityOnHand))
	s.records[rec.ProductID] = r
	return nil
}
