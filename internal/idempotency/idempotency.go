package idempotency

import (
	"context"
	"time"

	redisadapter "github.com/robertarktes/workshop-bookings/internal/adapters/redis"
)

// inFlightTTL bounds how long a crashed request can hold a key.
const inFlightTTL = 30 * time.Second

type Idempotency struct {
	redis *redisadapter.Idempotency
	ttl   time.Duration
}

func NewIdempotency(redis *redisadapter.Idempotency, ttl time.Duration) *Idempotency {
	return &Idempotency{redis: redis, ttl: ttl}
}

// Response is the stored outcome of a request. RequestHash fingerprints the
// request body it answered.
type Response struct {
	RequestHash string
	Status      int
	ContentType string
	Result      []byte
}

func (i *Idempotency) Get(ctx context.Context, key string) (*Response, error) {
	stored, err := i.redis.Get(ctx, key)
	if err != nil || stored == nil {
		return nil, err
	}
	return &Response{RequestHash: stored.RequestHash, Status: stored.Status, ContentType: stored.ContentType, Result: stored.Result}, nil
}

func (i *Idempotency) Set(ctx context.Context, key string, resp Response) error {
	return i.redis.Set(ctx, key, redisadapter.IdempResponse{
		RequestHash: resp.RequestHash,
		Status:      resp.Status,
		ContentType: resp.ContentType,
		Result:      resp.Result,
	}, i.ttl)
}

func (i *Idempotency) Begin(ctx context.Context, key string) (bool, error) {
	return i.redis.Claim(ctx, key, inFlightTTL)
}

func (i *Idempotency) End(ctx context.Context, key string) error {
	return i.redis.Unclaim(ctx, key)
}
