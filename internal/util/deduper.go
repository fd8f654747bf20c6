package util

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Deduper struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewDeduper(rdb *redis.Client, ttl time.Duration) *Deduper {
	return &Deduper{rdb: rdb, ttl: ttl}
}

// AcquireOnce tries to acquire a dedup lock for a given handler + emailID.
// Returns true if this is the first time processing, false on a duplicate.
// When redis is unavailable processing is allowed rather than blocked; the
// downstream handlers are idempotent.
func (d *Deduper) AcquireOnce(ctx context.Context, handler string, emailID string) bool {
	key := fmt.Sprintf("dedup:%s:%s", handler, emailID)

	ok, err := d.rdb.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		return true
	}
	return ok
}

// Release gives the claim back so a requeued delivery of the same email is
// processed instead of being skipped as a duplicate.
func (d *Deduper) Release(ctx context.Context, handler string, emailID string) {
	key := fmt.Sprintf("dedup:%s:%s", handler, emailID)
	d.rdb.Del(ctx, key)
}
