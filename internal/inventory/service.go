package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-smartorder/internal/apperr"
	kafkax "github.com/ariefcatur/go-smartorder/internal/kafka"
	"github.com/ariefcatur/go-smartorder/internal/orders"
	"github.com/ariefcatur/go-smartorder/internal/redisx"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var errRetryInFlight = errors.New("release retry already in flight")

// RetryService applies stock releases that failed while an order was being
// canceled. Events are deduplicated by event id so a redelivered message
// never releases twice. The dedup key is claimed for TTLClaim while the
// release runs and only kept for TTLDedup once the event is settled.
type RetryService struct {
	Ledger      *Ledger
	Redis       redis.Cmdable // nil disables dedup
	Log         *zap.Logger
	ServiceName string
}

// HandleReleaseRetry is installed as the consumer handler.
func (s *RetryService) HandleReleaseRetry(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		s.Log.Error("retry_decode_failed", zap.Error(err), zap.Int64("offset", m.Offset))
		return nil // poison message, commit and move on
	}
	if env.EventType != orders.EventStockReleaseRetry {
		return nil
	}

	p, err := kafkax.UnwrapPayload[orders.StockReleaseRetryPayload](env.Payload)
	if err != nil {
		s.Log.Error("retry_decode_failed", zap.Error(err), zap.String("event_id", env.EventID))
		return nil
	}
	log := s.Log.With(
		zap.String("event_id", env.EventID),
		zap.String("order_id", p.OrderID),
		zap.String("product_id", p.ProductID),
		zap.Int("quantity", p.Quantity),
	)

	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	if s.Redis != nil {
		st, err := redisx.Claim(ctx, s.Redis, dkey, redisx.TTLClaim)
		if err != nil {
			return fmt.Errorf("dedup claim: %w", err)
		}
		switch st {
		case redisx.Settled:
			log.Info("retry_duplicate_skipped")
			return nil
		case redisx.InFlight:
			return errRetryInFlight
		}
	}

	err = s.Ledger.Release(ctx, p.ProductID, p.Quantity)
	switch {
	case err == nil:
		log.Info("retry_release_applied")
		s.settle(ctx, log, dkey)
		return nil
	case errors.Is(err, apperr.ErrNotFound), errors.Is(err, apperr.ErrInvalid):
		log.Error("retry_release_dropped", zap.Error(err))
		s.settle(ctx, log, dkey)
		return nil
	default:
		if s.Redis != nil {
			_ = s.Redis.Del(ctx, dkey).Err()
		}
		return err
	}
}

// settle extends the claim on dkey to the full dedup window. The release has
// already happened, so a failure here is logged rather than retried.
func (s *RetryService) settle(ctx context.Context, log *zap.Logger, dkey string) {
	if s.Redis == nil {
		return
	}
	if err := redisx.Settle(ctx, s.Redis, dkey, redisx.TTLDedup); err != nil {
		log.Warn("retry_dedup_settle_failed", zap.Error(err))
	}
}
