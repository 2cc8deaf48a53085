package feed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	obsApp "github.com/lmoretti/gamearb/business/observation/app"
	"github.com/lmoretti/gamearb/internal/apperror"
	"github.com/lmoretti/gamearb/internal/logger"
)

const (
	readBatch = 64
	readBlock = 5 * time.Second
)

// RedisConfig configures the stream consumer.
type RedisConfig struct {
	Stream   string
	Group    string
	Consumer string
}

// Redis consumes price observations from a Redis stream through a consumer
// group, so several detector instances can split one scraper feed. Messages
// are acked after ingestion; a crashed consumer's pending entries get
// redelivered by Redis.
type Redis struct {
	client   *redis.Client
	cfg      RedisConfig
	ingestor *obsApp.Ingestor
	log      logger.LoggerInterface
}

// NewRedis creates a consumer. The client is owned by the caller.
func NewRedis(client *redis.Client, cfg RedisConfig, ingestor *obsApp.Ingestor, log logger.LoggerInterface) *Redis {
	return &Redis{
		client:   client,
		cfg:      cfg,
		ingestor: ingestor,
		log:      log.With("feed", "redis", "stream", cfg.Stream),
	}
}

// Run consumes until ctx is cancelled.
func (f *Redis) Run(ctx context.Context) error {
	if err := f.ensureGroup(ctx); err != nil {
		return err
	}
	f.log.Info(ctx, "redis feed started", "group", f.cfg.Group, "consumer", f.cfg.Consumer)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		streams, err := f.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    f.cfg.Group,
			Consumer: f.cfg.Consumer,
			Streams:  []string{f.cfg.Stream, ">"},
			Count:    readBatch,
			Block:    readBlock,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue // block timeout, nothing new
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.log.Error(ctx, "stream read failed", logger.Err(err))
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				f.handle(ctx, msg)
			}
		}
	}
}

// handle ingests one message and acks it. Undecodable messages are acked too:
// redelivery cannot fix a malformed payload.
func (f *Redis) handle(ctx context.Context, msg redis.XMessage) {
	defer f.client.XAck(ctx, f.cfg.Stream, f.cfg.Group, msg.ID)

	raw, ok := msg.Values["data"].(string)
	if !ok {
		f.log.Warn(ctx, "message without data field", "id", msg.ID)
		return
	}

	obs, err := decodeObservation([]byte(raw))
	if err != nil {
		f.log.Warn(ctx, "dropped undecodable observation", "id", msg.ID, logger.Err(err))
		return
	}
	f.ingestor.Ingest(ctx, obs)
}

func (f *Redis) ensureGroup(ctx context.Context) error {
	err := f.client.XGroupCreateMkStream(ctx, f.cfg.Stream, f.cfg.Group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return apperror.Wrap(err, apperror.CodeFeedConnectionFailed, "creating consumer group")
	}
	return nil
}
