package sink

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/lmoretti/gamearb/business/detection/domain"
	"github.com/lmoretti/gamearb/internal/apperror"
)

// maxStreamLen caps the emission stream so an unattended detector cannot grow
// Redis without bound. Approximate trimming, as XAdd documents.
const maxStreamLen = 100_000

// RedisStream publishes lifecycle events onto a Redis stream for downstream
// consumers (alerting, execution, analytics).
type RedisStream struct {
	client *redis.Client
	stream string
}

// NewRedisStream creates a publisher. The client is owned by the caller;
// Close here is a no-op so several components can share one connection.
func NewRedisStream(client *redis.Client, stream string) *RedisStream {
	return &RedisStream{client: client, stream: stream}
}

func (p *RedisStream) Emit(ctx context.Context, event domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return apperror.Wrap(err, apperror.CodeSinkDeliveryFailed, "marshaling event")
	}

	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: maxStreamLen,
		Approx: true,
		Values: map[string]interface{}{
			"kind": string(event.Kind),
			"key":  event.Opportunity.Key.String(),
			"data": string(data),
		},
	}).Err()
	if err != nil {
		return apperror.Wrap(err, apperror.CodeSinkDeliveryFailed, "publishing to stream "+p.stream)
	}
	return nil
}

func (p *RedisStream) Close() error { return nil }
