package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultQueueKey is the Redis list holding pending notifications.
const DefaultQueueKey = "portal:notifications"

// RedisQueue is a Sink backed by a Redis list. Producers LPUSH and a Worker
// BRPOPs, so messages survive a restart of the API process.
type RedisQueue struct {
	client *redis.Client
	key    string
}

// NewRedisQueue creates a queue on key.
func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = DefaultQueueKey
	}
	return &RedisQueue{client: client, key: key}
}

// Enqueue implements Sink.
func (q *RedisQueue) Enqueue(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	return q.client.LPush(ctx, q.key, payload).Err()
}

// Len returns the number of pending messages.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}

// Worker drains a RedisQueue into a Sender.
type Worker struct {
	client      *redis.Client
	key         string
	sender      Sender
	logger      *slog.Logger
	pollTimeout time.Duration
}

// NewWorker creates a worker for the queue on key.
func NewWorker(client *redis.Client, key string, sender Sender, logger *slog.Logger) *Worker {
	if key == "" {
		key = DefaultQueueKey
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		client:      client,
		key:         key,
		sender:      sender,
		logger:      logger,
		pollTimeout: time.Second,
	}
}

// Run pops and sends messages until ctx is cancelled. Delivery failures are
// logged and the message is dropped.
func (w *Worker) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		result, err := w.client.BRPop(ctx, w.pollTimeout, w.key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.logger.Error("failed to pop notification", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(w.pollTimeout):
			}
			continue
		}

		// result is [key, value]
		var msg Message
		if err := json.Unmarshal([]byte(result[1]), &msg); err != nil {
			w.logger.Error("discarding malformed notification", "error", err)
			continue
		}
		if err := w.sender.Send(ctx, msg); err != nil {
			w.logger.Error("failed to send notification",
				"kind", msg.Kind,
				"account_id", msg.AccountID,
				"error", err,
			)
		}
	}
}
