package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

func TestPublishNeverBlocks(t *testing.T) {
	p := NewProducer([]string{"127.0.0.1:1"}, "test", 1, zap.NewNop())
	done := make(chan struct{})
	go func() {
		p.Publish([]byte("k"), []byte("1"))
		p.Publish([]byte("k"), []byte("2")) // inbox full, dropped
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Publish blocked on a full inbox")
	}
	p.Close()
	p.Close()
}

func TestPublishAfterCloseIsDropped(t *testing.T) {
	p := NewProducer([]string{"127.0.0.1:1"}, "test", 4, zap.NewNop())
	p.Close()
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("Publish after Close panicked: %v", r)
		}
	}()
	p.Publish([]byte("k"), []byte("late"))
	if n := len(p.inbox); n != 0 {
		t.Fatalf("inbox holds %d messages after close", n)
	}
}

func TestHandleRetriesThenSucceeds(t *testing.T) {
	c := &Consumer{log: zap.NewNop(), backoff: time.Millisecond, maxBackoff: time.Millisecond}
	calls := 0
	err := c.handle(context.Background(), func(context.Context, kafka.Message) error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	}, 0, kafka.Message{})
	if err != nil || calls != 2 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}
}

func TestHandleOutlastsLongOutage(t *testing.T) {
	c := &Consumer{log: zap.NewNop(), backoff: time.Millisecond, maxBackoff: 4 * time.Millisecond}
	calls := 0
	err := c.handle(context.Background(), func(context.Context, kafka.Message) error {
		calls++
		if calls < 20 {
			return errors.New("ledger db down")
		}
		return nil
	}, 0, kafka.Message{})
	if err != nil || calls != 20 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}
}

func TestHandleKeepsRetryingUntilCancel(t *testing.T) {
	c := &Consumer{log: zap.NewNop(), backoff: time.Millisecond, maxBackoff: 2 * time.Millisecond}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	calls := 0
	err := c.handle(ctx, func(context.Context, kafka.Message) error {
		calls++
		return errors.New("down")
	}, 0, kafka.Message{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v", err)
	}
	if calls < 4 {
		t.Fatalf("gave up after %d calls", calls)
	}
}

func TestHandleStopsOnCancel(t *testing.T) {
	c := &Consumer{log: zap.NewNop()}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.handle(ctx, func(context.Context, kafka.Message) error { return errors.New("down") }, 0, kafka.Message{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

func TestUnwrapPayload(t *testing.T) {
	type payload struct {
		OrderID string `json:"order_id"`
	}
	p, err := UnwrapPayload[payload](MustMarshal(payload{OrderID: "o-1"}))
	if err != nil || p.OrderID != "o-1" {
		t.Fatalf("p=%+v err=%v", p, err)
	}
	if _, err := UnwrapPayload[payload]([]byte("[")); err == nil {
		t.Fatalf("expected decode error")
	}
}
