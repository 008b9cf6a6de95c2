package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ariefcatur/go-smartorder/internal/apperr"
	"github.com/ariefcatur/go-smartorder/internal/postgres/pgtest"
	"github.com/shopspring/decimal"
)

func TestPGRepository(t *testing.T) {
	pool := pgtest.Connect(t, "order_items", "orders")
	ctx := context.Background()
	r := &PGRepository{DB: pool}

	o := &Order{
		ID: "11111111-1111-1111-1111-111111111111", UserID: "u1", CustomerName: "Lan",
		OrderDate: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Items: []LineItem{
			{ProductID: "A", ProductName: "Apple", Quantity: 2, UnitPrice: decimal.RequireFromString("1.25")},
			{ProductID: "B", ProductName: "Banana", Quantity: 1, UnitPrice: decimal.RequireFromString("0.50")},
		},
	}
	if err := r.Create(ctx, o); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := r.Get(ctx, o.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Items) != 2 || got.Items[0].ProductID != "A" || !got.TotalAmount().Equal(decimal.RequireFromString("3")) {
		t.Fatalf("got = %+v", got)
	}

	got.Items = got.Items[:1]
	got.CustomerName = "Mai"
	if err := r.Update(ctx, got); err != nil {
		t.Fatalf("Update: %v", err)
	}
	list, err := r.List(ctx)
	if err != nil || len(list) != 1 || len(list[0].Items) != 1 || list[0].CustomerName != "Mai" {
		t.Fatalf("List = %+v, %v", list, err)
	}

	if err := r.MarkCanceled(ctx, o.ID); err != nil {
		t.Fatalf("MarkCanceled: %v", err)
	}
	if err := r.MarkCanceled(ctx, o.ID); !errors.Is(err, apperr.ErrAlreadyCanceled) {
		t.Fatalf("second MarkCanceled err = %v", err)
	}
	if err := r.Delete(ctx, o.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := r.Get(ctx, o.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("Get after delete err = %v", err)
	}
}
