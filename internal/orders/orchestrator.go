package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ariefcatur/go-smartorder/internal/apperr"
	"github.com/ariefcatur/go-smartorder/internal/cache"
	kafkax "github.com/ariefcatur/go-smartorder/internal/kafka"
	"github.com/ariefcatur/go-smartorder/internal/metrics"
	"github.com/ariefcatur/go-smartorder/internal/redisx"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Deps struct {
	Repo    Repository
	Catalog Catalog
	Ledger  Ledger
	Cache   *cache.ReadThrough
	Log     *zap.Logger
	Metrics *metrics.Metrics

	// Optional event publishers; nil disables the topic.
	Created      Publisher
	Canceled     Publisher
	ReleaseRetry Publisher

	ServiceName string
}

// Orchestrator runs order creation and cancellation as a saga over the
// catalog, the ledger and the order store.
type Orchestrator struct {
	Deps
	tracer trace.Tracer
	now    func() time.Time
	newID  func() string
}

func NewOrchestrator(d Deps) *Orchestrator {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Cache == nil {
		d.Cache = cache.NewReadThrough(cache.Nop{}, redisx.TTLEntity, d.Log, nil)
	}
	d.Log = d.Log.With(zap.String("component", "orchestrator"))
	return &Orchestrator{
		Deps:   d,
		tracer: otel.Tracer("orders"),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

type ItemRequest struct {
	ProductID string
	Quantity  int
}

type CreateOrderInput struct {
	CustomerName string
	OrderDate    time.Time
	Items        []ItemRequest
}

func orderKey(id string) string { return fmt.Sprintf(redisx.KeyOrder, id) }

// CreateOrder reserves every item in sequence and persists the order. Any
// failure releases what this call already reserved, newest first, so either
// the whole order is recorded or no stock change remains.
func (o *Orchestrator) CreateOrder(ctx context.Context, actorID string, in CreateOrderInput) (_ *Order, err error) {
	if actorID == "" {
		return nil, apperr.Unauthorized("caller identity could not be resolved")
	}
	if len(in.Items) == 0 {
		return nil, apperr.Invalid("order must contain at least one item")
	}
	for _, it := range in.Items {
		if it.ProductID == "" || it.Quantity <= 0 || it.Quantity > MaxItemQuantity {
			return nil, apperr.Invalid(fmt.Sprintf("each item needs a productId and a quantity between 1 and %d", MaxItemQuantity))
		}
	}

	// Once reserving starts the sequence runs to completion.
	ctx = context.WithoutCancel(ctx)
	ctx, span := o.tracer.Start(ctx, "orders.CreateOrder",
		trace.WithAttributes(attribute.String("order.actor_id", actorID), attribute.Int("order.items", len(in.Items))))
	start := time.Now()
	log := o.Log.With(zap.String("actor_id", actorID))
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = string(apperr.KindOf(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		span.End()
		if o.Metrics != nil {
			o.Metrics.OrderCreateDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
		}
	}()

	var rlog reservationLog
	items := make([]LineItem, 0, len(in.Items))
	for _, it := range in.Items {
		p, err := o.Catalog.GetProductByID(ctx, it.ProductID)
		if err != nil {
			o.compensate(ctx, "", &rlog, "catalog_unavailable")
			return nil, o.classify(log, it.ProductID, err)
		}
		if p == nil {
			o.compensate(ctx, "", &rlog, "product_not_found")
			log.Info("order_rejected", zap.String("product_id", it.ProductID), zap.String("reason", "product not found"))
			return nil, apperr.NotFound(it.ProductID, "product not found")
		}

		if err := o.Ledger.Reserve(ctx, p.ID, it.Quantity); err != nil {
			rlog.denied(p.ID, it.Quantity, string(apperr.KindOf(err)))
			o.compensate(ctx, "", &rlog, string(apperr.KindOf(err)))
			return nil, o.classify(log, p.ID, err)
		}
		rlog.granted(p.ID, it.Quantity)

		items = append(items, LineItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    it.Quantity,
			UnitPrice:   p.UnitPrice,
		})
	}

	orderDate := in.OrderDate
	if orderDate.IsZero() {
		orderDate = o.now()
	}
	order := &Order{
		ID:           o.newID(),
		UserID:       actorID,
		CustomerName: in.CustomerName,
		OrderDate:    orderDate.UTC(),
		Items:        items,
	}
	if err := o.Repo.Create(ctx, order); err != nil {
		o.compensate(ctx, order.ID, &rlog, "persist_failed")
		log.Error("order_persist_failed", zap.String("order_id", order.ID), zap.Error(err))
		return nil, fmt.Errorf("persist order: %w", err)
	}

	cache.PutJSON(ctx, o.Cache, orderKey(order.ID), order)
	o.publish(o.Created, order.ID, EventOrderCreated, OrderCreatedPayload{
		OrderID:     order.ID,
		UserID:      order.UserID,
		Items:       itemQtys(order.Items),
		TotalAmount: order.TotalAmount(),
	})
	span.SetAttributes(attribute.String("order.id", order.ID))
	log.Info("order_created", zap.String("order_id", order.ID), zap.Int("items", len(items)),
		zap.String("total_amount", order.TotalAmount().String()))
	return order, nil
}

// classify keeps business outcomes as they are and turns anything else into
// UpstreamUnavailable naming the product.
func (o *Orchestrator) classify(log *zap.Logger, productID string, err error) error {
	switch apperr.KindOf(err) {
	case apperr.KindNotFound, apperr.KindInsufficientStock, apperr.KindInvalid:
		log.Info("order_rejected", zap.String("product_id", productID), zap.Error(err))
		return err
	case apperr.KindUpstreamUnavailable, apperr.KindUnauthorized:
		log.Warn("order_upstream_failed", zap.String("product_id", productID), zap.Error(err))
		return err
	default:
		log.Error("order_upstream_failed", zap.String("product_id", productID), zap.Error(err))
		return apperr.Upstream(productID, err)
	}
}

// compensate releases every granted reservation in reverse order. A release
// that fails is logged and queued for retry; it does not stop the others.
func (o *Orchestrator) compensate(ctx context.Context, orderID string, rlog *reservationLog, reason string) {
	steps := rlog.undo()
	if len(steps) == 0 {
		return
	}
	ctx, span := o.tracer.Start(ctx, "orders.Compensate",
		trace.WithAttributes(attribute.String("saga.reason", reason), attribute.Int("saga.steps", len(steps))))
	defer span.End()

	for _, s := range steps {
		outcome := "released"
		if err := o.Ledger.Release(ctx, s.ProductID, s.RequestedQty); err != nil {
			outcome = "failed"
			span.RecordError(err)
			o.Log.Error("compensation_release_failed",
				zap.String("product_id", s.ProductID),
				zap.Int("quantity", s.RequestedQty),
				zap.String("reason", reason),
				zap.Error(err))
			o.queueRetry(orderID, s.ProductID, s.RequestedQty, "COMPENSATION")
		}
		if o.Metrics != nil {
			o.Metrics.Compensations.WithLabelValues(reason, outcome).Inc()
		}
	}
	o.Log.Info("saga_compensated", zap.String("reason", reason), zap.Int("steps", len(steps)))
}

// CancelOrder moves the order to Canceled and gives its stock back. The
// transition is claimed first, so a concurrent second cancel fails with
// AlreadyCanceled and never releases twice. Every item is attempted; failed
// releases are returned joined and queued for retry.
func (o *Orchestrator) CancelOrder(ctx context.Context, orderID string) (err error) {
	ctx = context.WithoutCancel(ctx)
	ctx, span := o.tracer.Start(ctx, "orders.CancelOrder", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(apperr.KindOf(err)))
		}
		span.End()
	}()
	log := o.Log.With(zap.String("order_id", orderID))

	order, err := o.Repo.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if !CanTransition(order.Status(), StatusCanceled) {
		return apperr.AlreadyCanceled(orderID)
	}
	if err := o.Repo.MarkCanceled(ctx, orderID); err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			log.Error("order_cancel_persist_failed", zap.Error(err))
		}
		return err
	}
	order.Canceled = true

	var released, failed []ItemQty
	var errs []error
	for _, it := range order.Items {
		if rerr := o.Ledger.Release(ctx, it.ProductID, it.Quantity); rerr != nil {
			log.Error("cancel_release_failed", zap.String("product_id", it.ProductID), zap.Int("quantity", it.Quantity), zap.Error(rerr))
			errs = append(errs, fmt.Errorf("release %s x%d: %w", it.ProductID, it.Quantity, rerr))
			failed = append(failed, ItemQty{ProductID: it.ProductID, Qty: it.Quantity})
			o.queueRetry(orderID, it.ProductID, it.Quantity, "CANCEL")
			continue
		}
		released = append(released, ItemQty{ProductID: it.ProductID, Qty: it.Quantity})
	}

	cache.PutJSON(ctx, o.Cache, orderKey(orderID), order)
	o.publish(o.Canceled, orderID, EventOrderCanceled, OrderCanceledPayload{
		OrderID: orderID, Released: released, FailedReleases: failed,
	})

	if len(errs) > 0 {
		pids := make([]string, 0, len(failed))
		for _, f := range failed {
			pids = append(pids, f.ProductID)
		}
		return &apperr.Error{
			Kind:    apperr.KindUpstreamUnavailable,
			OrderID: orderID,
			Msg:     "order canceled but stock release failed for " + strings.Join(pids, ", "),
			Err:     errors.Join(errs...),
		}
	}
	log.Info("order_canceled", zap.Int("items", len(released)))
	return nil
}

// GetOrder reads through the order cache.
func (o *Orchestrator) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	order, err := cache.GetJSON(ctx, o.Cache, orderKey(orderID), func(ctx context.Context) (*Order, error) {
		return o.Repo.Get(ctx, orderID)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (o *Orchestrator) ListOrders(ctx context.Context) ([]Order, error) {
	return o.Repo.List(ctx)
}

type UpdateOrderInput struct {
	CustomerName string
	OrderDate    time.Time
	Items        []LineItem
}

// UpdateOrder replaces the order's editable fields and items. Stock is not
// touched. The cached copy is overwritten in the same call.
func (o *Orchestrator) UpdateOrder(ctx context.Context, orderID string, in UpdateOrderInput) (*Order, error) {
	for _, it := range in.Items {
		if it.ProductID == "" || it.Quantity <= 0 || it.Quantity > MaxItemQuantity || it.UnitPrice.IsNegative() {
			return nil, apperr.Invalid(fmt.Sprintf("items need a productId, a quantity between 1 and %d and unitPrice >= 0", MaxItemQuantity))
		}
	}
	order, err := o.Repo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	order.CustomerName = in.CustomerName
	if !in.OrderDate.IsZero() {
		order.OrderDate = in.OrderDate.UTC()
	}
	order.Items = append([]LineItem(nil), in.Items...)
	if err := o.Repo.Update(ctx, order); err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			o.Log.Error("order_update_failed", zap.String("order_id", orderID), zap.Error(err))
		}
		o.Cache.Invalidate(ctx, orderKey(orderID))
		return nil, err
	}
	cache.PutJSON(ctx, o.Cache, orderKey(orderID), order)
	return order, nil
}

// DeleteOrder removes the record only; stock is not released.
func (o *Orchestrator) DeleteOrder(ctx context.Context, orderID string) error {
	if err := o.Repo.Delete(ctx, orderID); err != nil {
		return err
	}
	o.Cache.Invalidate(ctx, orderKey(orderID))
	return nil
}

func (o *Orchestrator) queueRetry(orderID, productID string, qty int, reason string) {
	o.publish(o.ReleaseRetry, orderID, EventStockReleaseRetry, StockReleaseRetryPayload{
		OrderID: orderID, ProductID: productID, Quantity: qty, Reason: reason,
	})
}

func (o *Orchestrator) publish(p Publisher, orderID, eventType string, payload any) {
	if p == nil {
		return
	}
	key := orderID
	if key == "" {
		key = uuid.NewString()
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    o.now().UTC(),
		Producer:      o.ServiceName,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Publish(PartitionKey(key), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
