package cloudqueue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudqueue/cloudqueue/internal/eventbus"
	"github.com/cloudqueue/cloudqueue/retry"
)

// Event kinds published on a Provider's internal bus. Subscribe to learn
// about overflow, poisoning, auto-create, restore and persist decisions
// without threading extra return values through every operation.
const (
	EventMessageOverflowed = "message_overflowed"
	EventMessagePoisoned   = "message_poisoned"
	EventQueueAutoCreated  = "queue_auto_created"
	EventMessageRestored   = "message_restored"
	EventMessagePersisted  = "message_persisted"
)

// Provider is the transactional queue provider: a typed messaging API
// layered over a QueueService and a BlobStorage, adding overflow handling,
// poison detection, in-flight checkout tracking and retry discipline.
//
// A Provider is safe for concurrent use by any number of goroutines.
type Provider struct {
	queues BlobStorage
	qsvc   QueueService
	cfg    ProviderConfig

	checkout *checkoutTable
	bus      *eventbus.Bus
}

// NewProvider builds a Provider over the given queue service and blob
// storage, applying opts on top of DefaultConfig.
func NewProvider(qsvc QueueService, blobs BlobStorage, opts ...Option) *Provider {
	cfg := ProviderConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.withDefaults()

	return &Provider{
		queues:   blobs,
		qsvc:     qsvc,
		cfg:      cfg,
		checkout: newCheckoutTable(),
		bus:      eventbus.New(),
	}
}

// Subscribe registers h to receive every lifecycle event this Provider
// publishes. It returns an unsubscribe function.
func (p *Provider) Subscribe(h func(kind, queue string, data any)) (unsubscribe func()) {
	return p.bus.Subscribe(func(e eventbus.Event) {
		h(e.Kind, e.Queue, e.Data)
	})
}

func (p *Provider) publish(kind, queue string, data any) {
	p.bus.Publish(eventbus.Event{Kind: kind, Queue: queue, Data: data})
}

// isLogicalSignal reports whether err is one of the conditions §7 treats
// as a logical no-op rather than a fault; these are never retried.
func isLogicalSignal(err error) bool {
	return errors.Is(err, ErrQueueNotFound) ||
		errors.Is(err, ErrBlobNotFound) ||
		errors.Is(err, ErrMessageNotCheckedOut) ||
		errors.Is(err, ErrPersistedRecordNotFound) ||
		errors.Is(err, ErrInvalidVisibility) ||
		errors.Is(err, ErrInvalidCount) ||
		errors.Is(err, ErrMessageTooLarge)
}

// retryTransient runs fn under the configured transient-error backoff
// policy. Errors that are logical signals (queue/blob not found, and the
// like) are classified as terminal and surface immediately; anything else
// from a remote call is treated as a transient server fault worth a
// bounded retry.
func (p *Provider) retryTransient(ctx context.Context, fn func(ctx context.Context) error) error {
	return p.cfg.TransientRetryPolicy.Do(ctx, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil || isLogicalSignal(err) {
			return err
		}
		return fmt.Errorf("%w: %v", retry.ErrTransient, err)
	})
}

// retryTransientValue is retryTransient for a remote call that produces a
// value, built on retry.Get.
func retryTransientValue[T any](ctx context.Context, p *Provider, fn func(ctx context.Context) (T, error)) (T, error) {
	return retry.Get(ctx, p.cfg.TransientRetryPolicy, func(ctx context.Context) (T, error) {
		v, err := fn(ctx)
		if err != nil && !isLogicalSignal(err) {
			return v, fmt.Errorf("%w: %v", retry.ErrTransient, err)
		}
		return v, err
	})
}

// List returns the names of queues whose name starts with prefix.
func (p *Provider) List(ctx context.Context, prefix string) ([]string, error) {
	names, err := p.qsvc.ListQueues(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("cloudqueue: list queues %q: %w", prefix, err)
	}
	return names, nil
}

// ApproximateCount returns an approximate count of visible messages on
// queue. A missing queue reports zero, not an error.
func (p *Provider) ApproximateCount(ctx context.Context, queue string) (int, error) {
	n, err := p.qsvc.ApproximateCount(ctx, queue)
	if errors.Is(err, ErrQueueNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("cloudqueue: approximate count %q: %w", queue, err)
	}
	return n, nil
}

// ApproximateLatency estimates how long the oldest visible message on
// queue has been waiting, by peeking at it without affecting visibility.
// A missing queue or an empty queue reports zero latency.
func (p *Provider) ApproximateLatency(ctx context.Context, queue string) (time.Duration, error) {
	msgs, err := p.qsvc.PeekMessages(ctx, queue, 1)
	if errors.Is(err, ErrQueueNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("cloudqueue: approximate latency %q: %w", queue, err)
	}
	if len(msgs) == 0 {
		return 0, nil
	}
	return p.cfg.Clock.Now().Sub(msgs[0].InsertionTime), nil
}

// Clear deletes every message currently on queue, together with every
// overflow blob referenced from it. Overflow blobs are removed first, so a
// concurrent reader never observes a wrapper pointing at a missing blob.
func (p *Provider) Clear(ctx context.Context, queue string) error {
	if err := p.deleteOverflowBlobsForQueue(ctx, queue); err != nil {
		return err
	}
	if err := p.qsvc.Clear(ctx, queue); err != nil {
		if errors.Is(err, ErrQueueNotFound) {
			return nil
		}
		return fmt.Errorf("cloudqueue: clear %q: %w", queue, err)
	}
	return nil
}

// DeleteQueue deletes queue itself, together with every overflow blob
// referenced from it. ok is false if the queue did not exist.
func (p *Provider) DeleteQueue(ctx context.Context, queue string) (ok bool, err error) {
	if err := p.deleteOverflowBlobsForQueue(ctx, queue); err != nil {
		return false, err
	}
	if err := p.qsvc.DeleteQueue(ctx, queue); err != nil {
		if errors.Is(err, ErrQueueNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("cloudqueue: delete queue %q: %w", queue, err)
	}
	return true, nil
}

func (p *Provider) deleteOverflowBlobsForQueue(ctx context.Context, queue string) error {
	prefix := queue + "/"
	names, err := p.queues.List(ctx, p.cfg.OverflowContainer, prefix)
	if err != nil {
		return fmt.Errorf("cloudqueue: list overflow blobs %q: %w", prefix, err)
	}
	for _, name := range names {
		if err := p.queues.Delete(ctx, p.cfg.OverflowContainer, name); err != nil {
			return fmt.Errorf("cloudqueue: delete overflow blob %q: %w", name, err)
		}
	}
	return nil
}

// Close abandons every message this Provider currently has checked out,
// best-effort, and returns. It is the portable equivalent of a
// finalizer-based self-registration: callers that want in-flight messages
// returned to their queues promptly on shutdown should call Close rather
// than letting visibility timeouts expire naturally.
func (p *Provider) Close(ctx context.Context) error {
	keys := p.checkout.snapshotKeys()

	var firstErr error
	for _, key := range keys {
		handle, ok := p.checkout.checkIn(key)
		if !ok {
			continue
		}
		if err := p.abandonHandle(ctx, handle); err != nil {
			p.cfg.Logger.Warn("close: failed to abandon in-flight message", "queue", handle.Queue, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
