// Package redisqueue implements cloudqueue.QueueService on top of Redis, for
// deployments that need queue state to survive a process restart or be
// shared across processes. A per-queue sorted set keyed by message ID,
// scored by "becomes visible at" unix-nanos, stands in for the visibility
// timeout a managed queue service would provide natively; a hash per
// message carries its bytes, dequeue count and insertion time.
package redisqueue

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cloudqueue/cloudqueue"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "cloudqueue:"

// Service is a Redis-backed cloudqueue.QueueService.
type Service struct {
	client          *redis.Client
	maxMessageBytes int
}

// Option configures a Service.
type Option func(*Service)

// WithMaxMessageBytes caps the raw message size this Service will accept.
// AddMessage returns cloudqueue.ErrMessageTooLarge above the cap. The
// default, zero, accepts messages of any size Redis itself will store.
func WithMaxMessageBytes(n int) Option {
	return func(s *Service) { s.maxMessageBytes = n }
}

// New wraps an existing *redis.Client.
func New(client *redis.Client, opts ...Option) *Service {
	s := &Service{client: client}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func registryKey() string      { return keyPrefix + "queues" }
func visibilityKey(q string) string { return keyPrefix + q + ":visibility" }
func messageKey(q, id string) string { return keyPrefix + q + ":msg:" + id }
func receiptKey(q string) string    { return keyPrefix + q + ":receipts" }

func (s *Service) exists(ctx context.Context, queue string) (bool, error) {
	ok, err := s.client.SIsMember(ctx, registryKey(), queue).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (s *Service) ListQueues(ctx context.Context, prefix string) ([]string, error) {
	members, err := s.client.SMembers(ctx, registryKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redisqueue: list queues: %w", err)
	}
	out := make([]string, 0, len(members))
	for _, m := range members {
		if strings.HasPrefix(m, prefix) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Service) CreateQueue(ctx context.Context, queue string) error {
	if err := s.client.SAdd(ctx, registryKey(), queue).Err(); err != nil {
		return fmt.Errorf("redisqueue: create queue %q: %w", queue, err)
	}
	return nil
}

func (s *Service) AddMessage(ctx context.Context, queue string, data []byte) error {
	ok, err := s.exists(ctx, queue)
	if err != nil {
		return fmt.Errorf("redisqueue: check queue %q: %w", queue, err)
	}
	if !ok {
		return cloudqueue.ErrQueueNotFound
	}
	if s.maxMessageBytes > 0 && len(data) > s.maxMessageBytes {
		return cloudqueue.ErrMessageTooLarge
	}

	id := uuid.NewString()
	now := time.Now().UTC()

	if err := s.client.HSet(ctx, messageKey(queue, id),
		"bytes", string(data),
		"dequeue_count", 0,
		"insertion_time", now.UnixNano(),
	).Err(); err != nil {
		return fmt.Errorf("redisqueue: store message body: %w", err)
	}

	if err := s.client.ZAdd(ctx, visibilityKey(queue), redis.Z{
		Score:  float64(now.UnixNano()),
		Member: id,
	}).Err(); err != nil {
		return fmt.Errorf("redisqueue: enqueue message: %w", err)
	}
	return nil
}

func (s *Service) GetMessages(ctx context.Context, queue string, count int, visibility time.Duration) ([]cloudqueue.RawMessage, error) {
	ok, err := s.exists(ctx, queue)
	if err != nil {
		return nil, fmt.Errorf("redisqueue: check queue %q: %w", queue, err)
	}
	if !ok {
		return nil, cloudqueue.ErrQueueNotFound
	}

	now := time.Now().UTC()
	ids, err := s.client.ZRangeByScore(ctx, visibilityKey(queue), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.UnixNano(), 10),
		Count: int64(count),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("redisqueue: scan visible messages: %w", err)
	}

	out := make([]cloudqueue.RawMessage, 0, len(ids))
	for _, id := range ids {
		fields, err := s.client.HGetAll(ctx, messageKey(queue, id)).Result()
		if err != nil {
			return nil, fmt.Errorf("redisqueue: read message %q: %w", id, err)
		}
		if len(fields) == 0 {
			// Stale zset entry whose hash has already been deleted; skip.
			continue
		}

		dequeueCount, _ := strconv.Atoi(fields["dequeue_count"])
		dequeueCount++
		insertionNanos, _ := strconv.ParseInt(fields["insertion_time"], 10, 64)

		receiptID := uuid.NewString()

		pipe := s.client.Pipeline()
		pipe.HSet(ctx, messageKey(queue, id), "dequeue_count", dequeueCount)
		pipe.ZAdd(ctx, visibilityKey(queue), redis.Z{
			Score:  float64(now.Add(visibility).UnixNano()),
			Member: id,
		})
		pipe.HSet(ctx, receiptKey(queue), receiptID, id)
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, fmt.Errorf("redisqueue: checkout message %q: %w", id, err)
		}

		out = append(out, cloudqueue.RawMessage{
			ReceiptID:     receiptID,
			Bytes:         []byte(fields["bytes"]),
			DequeueCount:  dequeueCount,
			InsertionTime: time.Unix(0, insertionNanos).UTC(),
		})

		if len(out) >= count {
			break
		}
	}
	return out, nil
}

func (s *Service) PeekMessages(ctx context.Context, queue string, count int) ([]cloudqueue.RawMessage, error) {
	ok, err := s.exists(ctx, queue)
	if err != nil {
		return nil, fmt.Errorf("redisqueue: check queue %q: %w", queue, err)
	}
	if !ok {
		return nil, cloudqueue.ErrQueueNotFound
	}

	now := time.Now().UTC()
	ids, err := s.client.ZRangeByScore(ctx, visibilityKey(queue), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.UnixNano(), 10),
		Count: int64(count),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("redisqueue: scan visible messages: %w", err)
	}

	out := make([]cloudqueue.RawMessage, 0, len(ids))
	for _, id := range ids {
		fields, err := s.client.HGetAll(ctx, messageKey(queue, id)).Result()
		if err != nil || len(fields) == 0 {
			continue
		}
		dequeueCount, _ := strconv.Atoi(fields["dequeue_count"])
		insertionNanos, _ := strconv.ParseInt(fields["insertion_time"], 10, 64)
		out = append(out, cloudqueue.RawMessage{
			Bytes:         []byte(fields["bytes"]),
			DequeueCount:  dequeueCount,
			InsertionTime: time.Unix(0, insertionNanos).UTC(),
		})
	}
	return out, nil
}

func (s *Service) DeleteMessage(ctx context.Context, queue string, receiptID string) error {
	id, err := s.client.HGet(ctx, receiptKey(queue), receiptID).Result()
	if err == redis.Nil {
		return nil // expired or unknown receipt: tolerated as a no-op
	}
	if err != nil {
		return fmt.Errorf("redisqueue: resolve receipt %q: %w", receiptID, err)
	}

	pipe := s.client.Pipeline()
	pipe.ZRem(ctx, visibilityKey(queue), id)
	pipe.Del(ctx, messageKey(queue, id))
	pipe.HDel(ctx, receiptKey(queue), receiptID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redisqueue: delete message %q: %w", id, err)
	}
	return nil
}

func (s *Service) Clear(ctx context.Context, queue string) error {
	ok, err := s.exists(ctx, queue)
	if err != nil {
		return fmt.Errorf("redisqueue: check queue %q: %w", queue, err)
	}
	if !ok {
		return cloudqueue.ErrQueueNotFound
	}

	ids, err := s.client.ZRange(ctx, visibilityKey(queue), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("redisqueue: scan queue %q: %w", queue, err)
	}

	pipe := s.client.Pipeline()
	for _, id := range ids {
		pipe.Del(ctx, messageKey(queue, id))
	}
	pipe.Del(ctx, visibilityKey(queue))
	pipe.Del(ctx, receiptKey(queue))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redisqueue: clear queue %q: %w", queue, err)
	}
	return nil
}

func (s *Service) DeleteQueue(ctx context.Context, queue string) error {
	ok, err := s.exists(ctx, queue)
	if err != nil {
		return fmt.Errorf("redisqueue: check queue %q: %w", queue, err)
	}
	if !ok {
		return cloudqueue.ErrQueueNotFound
	}

	if err := s.Clear(ctx, queue); err != nil {
		return err
	}
	if err := s.client.SRem(ctx, registryKey(), queue).Err(); err != nil {
		return fmt.Errorf("redisqueue: deregister queue %q: %w", queue, err)
	}
	return nil
}

func (s *Service) ApproximateCount(ctx context.Context, queue string) (int, error) {
	ok, err := s.exists(ctx, queue)
	if err != nil {
		return 0, fmt.Errorf("redisqueue: check queue %q: %w", queue, err)
	}
	if !ok {
		return 0, cloudqueue.ErrQueueNotFound
	}

	now := time.Now().UTC()
	n, err := s.client.ZCount(ctx, visibilityKey(queue), "-inf", strconv.FormatInt(now.UnixNano(), 10)).Result()
	if err != nil {
		return 0, fmt.Errorf("redisqueue: count queue %q: %w", queue, err)
	}
	return int(n), nil
}
