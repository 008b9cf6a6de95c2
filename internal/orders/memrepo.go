package orders

import (
	"context"
	"sync"

	"github.com/ariefcatur/go-smartorder/internal/apperr"
)

// MemoryRepository is an in-process Repository for local runs and tests.
// Stored orders are deep-copied on the way in and out.
type MemoryRepository struct {
	mu     sync.Mutex
	orders map[string]*Order
	seq    []string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{orders: map[string]*Order{}}
}

func clone(o *Order) *Order {
	c := *o
	c.Items = append([]LineItem(nil), o.Items...)
	return &c
}

func (r *MemoryRepository) Create(_ context.Context, o *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[o.ID]; ok {
		return &apperr.Error{Kind: apperr.KindConflict, OrderID: o.ID, Msg: "order already exists"}
	}
	r.orders[o.ID] = clone(o)
	r.seq = append(r.seq, o.ID)
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (*Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, apperr.OrderNotFound(id)
	}
	return clone(o), nil
}

func (r *MemoryRepository) List(context.Context) ([]Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Order, 0, len(r.seq))
	for _, id := range r.seq {
		if o, ok := r.orders[id]; ok {
			out = append(out, *clone(o))
		}
	}
	return out, nil
}

func (r *MemoryRepository) Update(_ context.Context, o *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.orders[o.ID]
	if !ok {
		return apperr.OrderNotFound(o.ID)
	}
	cur.CustomerName = o.CustomerName
	cur.OrderDate = o.OrderDate
	cur.Items = append([]LineItem(nil), o.Items...)
	return nil
}

func (r *MemoryRepository) MarkCanceled(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return apperr.OrderNotFound(id)
	}
	if o.Canceled {
		return apperr.AlreadyCanceled(id)
	}
	o.Canceled = true
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[id]; !ok {
		return apperr.OrderNotFound(id)
	}
	delete(r.orders, id)
	for i, s := range r.seq {
		if s == id {
			r.seq = append(r.seq[:i], r.seq[i+1:]...)
			break
		}
	}
	return nil
}
