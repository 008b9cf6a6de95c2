package redisx

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})
}

type ClaimState int

const (
	Claimed  ClaimState = iota // this call took the key
	InFlight                   // another holder has not settled yet
	Settled                    // the work behind the key is done
)

const claimPending = "pending"

// Claim takes key for ttl if nobody holds it. A holder that crashes before
// Settle loses the key when ttl runs out.
func Claim(ctx context.Context, rdb redis.Cmdable, key string, ttl time.Duration) (ClaimState, error) {
	ok, err := rdb.SetNX(ctx, key, claimPending, ttl).Result()
	if err != nil {
		return 0, err
	}
	if ok {
		return Claimed, nil
	}
	v, err := rdb.Get(ctx, key).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return InFlight, nil // expired in between; the next attempt can claim it
	case err != nil:
		return 0, err
	case v == claimPending:
		return InFlight, nil
	}
	return Settled, nil
}

// Settle marks key done for ttl.
func Settle(ctx context.Context, rdb redis.Cmdable, key string, ttl time.Duration) error {
	return rdb.Set(ctx, key, "done", ttl).Err()
}
