package inventory

import (
	"context"
	"fmt"
	"math"

	"github.com/ariefcatur/go-smartorder/internal/apperr"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// MaxQuantity is the largest quantity a single record or request may carry;
// quantity_on_hand is an INTEGER column.
const MaxQuantity = math.MaxInt32

// Ledger is the only writer of StockRecords. It validates input, delegates the
// atomic update to its Store and records the outcome.
type Ledger struct {
	store Store
	log   *zap.Logger
	ops   *prometheus.CounterVec // op, outcome
}

func NewLedger(store Store, log *zap.Logger, ops *prometheus.CounterVec) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{store: store, log: log.With(zap.String("component", "ledger")), ops: ops}
}

func (l *Ledger) Reserve(ctx context.Context, productID string, qty int) error {
	if err := validate(productID, qty); err != nil {
		return err
	}
	err := l.store.Reserve(ctx, productID, qty)
	l.observe("reserve", productID, qty, err)
	return err
}

// Release adds qty back. The only ceiling is MaxQuantity on hand.
func (l *Ledger) Release(ctx context.Context, productID string, qty int) error {
	if err := validate(productID, qty); err != nil {
		return err
	}
	err := l.store.Release(ctx, productID, qty)
	l.observe("release", productID, qty, err)
	return err
}

func (l *Ledger) GetQuantity(ctx context.Context, productID string) (int, error) {
	if productID == "" {
		return 0, apperr.Invalid("productId is required")
	}
	n, err := l.store.Quantity(ctx, productID)
	if err != nil && apperr.KindOf(err) == apperr.KindInternal {
		l.log.Error("quantity_lookup_failed", zap.String("product_id", productID), zap.Error(err))
	}
	return n, err
}

func (l *Ledger) GetAllQuantities(ctx context.Context) (map[string]int, error) {
	m, err := l.store.Quantities(ctx)
	if err != nil {
		l.log.Error("quantities_lookup_failed", zap.Error(err))
	}
	return m, err
}

func (l *Ledger) Provision(ctx context.Context, rec StockRecord) error {
	if rec.ProductID == "" || rec.StoreID == "" {
		return apperr.Invalid("productId and storeId are required")
	}
	if rec.QuantityOnHand < 0 {
		return apperr.Invalid("quantity must not be negative")
	}
	if rec.QuantityOnHand > MaxQuantity {
		return apperr.Invalid(fmt.Sprintf("quantity must not exceed %d", MaxQuantity))
	}
	err := l.store.Provision(ctx, rec)
	l.observe("provision", rec.ProductID, rec.QuantityOnHand, err)
	return err
}

func validate(productID string, qty int) error {
	if productID == "" {
		return apperr.Invalid("productId is required")
	}
	if qty <= 0 {
		return apperr.Invalid("quantity must be greater than zero")
	}
	if qty > MaxQuantity {
		return apperr.Invalid(fmt.Sprintf("quantity must not exceed %d", MaxQuantity))
	}
	return nil
}

func (l *Ledger) observe(op, productID string, qty int, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(apperr.KindOf(err))
	}
	if l.ops != nil {
		l.ops.WithLabelValues(op, outcome).Inc()
	}
	fields := []zap.Field{
		zap.String("op", op),
		zap.String("product_id", productID),
		zap.Int("quantity", qty),
		zap.String("outcome", outcome),
	}
	switch {
	case err == nil:
		l.log.Debug("ledger_op", fields...)
	case apperr.KindOf(err) == apperr.KindInternal:
		l.log.Error("ledger_op_failed", append(fields, zap.Error(err))...)
	default:
		l.log.Info("ledger_op_rejected", fields...)
	}
}
