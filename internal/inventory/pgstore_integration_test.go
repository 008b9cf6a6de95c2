package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ariefcatur/go-smartorder/internal/apperr"
	"github.com/ariefcatur/go-smartorder/internal/postgres/pgtest"
)

func TestPGStore(t *testing.T) {
	pool := pgtest.Connect(t, "stock_records")
	ctx := context.Background()
	l := NewLedger(&PGStore{DB: pool}, nil, nil)

	if err := l.Provision(ctx, StockRecord{ProductID: "A", StoreID: "s1", QuantityOnHand: 20}); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if err := l.Provision(ctx, StockRecord{ProductID: "A", StoreID: "s1", QuantityOnHand: 1}); apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("duplicate provision err = %v", err)
	}
	if err := l.Reserve(ctx, "A", 25); !errors.Is(err, apperr.ErrInsufficientStock) {
		t.Fatalf("Reserve err = %v", err)
	}
	if err := l.Reserve(ctx, "missing", 1); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("Reserve missing err = %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.Reserve(ctx, "A", 1)
		}()
	}
	wg.Wait()
	if n, _ := l.GetQuantity(ctx, "A"); n != 0 {
		t.Fatalf("qty = %d, want 0", n)
	}

	if err := l.Release(ctx, "A", 3); err != nil {
		t.Fatalf("Release: %v", err)
	}
	all, err := l.GetAllQuantities(ctx)
	if err != nil || all["A"] != 3 {
		t.Fatalf("all = %v, %v", all, err)
	}
}
