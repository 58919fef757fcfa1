package cloudqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// pendingWrapper is a checked-out wrapper message awaiting its overflow
// blob fetch, collected during Get's first pass and resolved in its
// second pass.
type pendingWrapper struct {
	index   int // position to fill in the result slice
	wrapper wireWrapper
	queue   string
	key     string // checkout key the wrapper was registered under
}

// isNotFound reports whether err signals a missing queue, which every
// Get-adjacent call site treats as an empty result rather than a fault.
func isNotFound(err error) bool {
	return errors.Is(err, ErrQueueNotFound)
}

// Get dequeues up to count messages from queue, decoding each as T.
// Messages whose effective dequeue count (accumulated across Abandon
// cycles via the envelope) exceeds maxTrials are diverted to the default
// poison store instead of being returned; messages that cannot be decoded
// as T or as an overflow wrapper are diverted as well. Every returned
// payload is registered in the checkout table and must eventually be
// passed to Delete, Abandon or Persist.
//
// A missing queue yields an empty, non-error result.
func Get[T any](ctx context.Context, p *Provider, queue string, count int, visibility time.Duration, maxTrials int) ([]T, error) {
	if count <= 0 {
		return nil, ErrInvalidCount
	}
	if visibility <= 0 {
		return nil, ErrInvalidVisibility
	}

	start := p.cfg.Clock.Now()

	raws, err := retryTransientValue(ctx, p, func(ctx context.Context) ([]RawMessage, error) {
		return p.qsvc.GetMessages(ctx, queue, count, visibility)
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("cloudqueue: get messages from queue %q: %w", queue, err)
	}

	result := make([]T, len(raws))
	keep := make([]bool, len(raws))
	var pending []pendingWrapper

	n := 0
	for _, raw := range raws {
		bytes := raw.Bytes
		dequeueCount := raw.DequeueCount

		if env, ok := decodeEnvelope(p.cfg.Serializer, bytes); ok {
			dequeueCount += env.DequeueCount
			bytes = env.RawMessage
		}

		if dequeueCount > maxTrials {
			p.poisonAndDelete(ctx, queue, raw, bytes, dequeueCount,
				fmt.Sprintf("dequeued %d times but failed processing each time", dequeueCount-1))
			continue
		}

		var typed T
		if decErr := p.cfg.Serializer.TryDeserialize(bytes, &typed); decErr == nil {
			key := checkoutKey(bytes)
			p.checkout.checkOut(key, checkoutReceipt{
				ReceiptID:     raw.ReceiptID,
				WireBytes:     bytes,
				DequeueCount:  dequeueCount,
				InsertionTime: raw.InsertionTime,
			}, queue, false)
			result[n] = typed
			keep[n] = true
			n++
			continue
		}

		if wrapper, ok := decodeWrapper(p.cfg.Serializer, bytes); ok {
			key := checkoutKey(bytes)
			p.checkout.checkOut(key, checkoutReceipt{
				ReceiptID:     raw.ReceiptID,
				WireBytes:     bytes,
				DequeueCount:  dequeueCount,
				InsertionTime: raw.InsertionTime,
			}, queue, true)

			idx := n
			keep[n] = true
			n++
			pending = append(pending, pendingWrapper{index: idx, wrapper: wrapper, queue: queue, key: key})
			continue
		}

		p.poisonAndDelete(ctx, queue, raw, bytes, dequeueCount,
			fmt.Sprintf("failed to deserialize (%T)", typed))
	}

	result = result[:n]
	keep = keep[:n]

	if len(pending) > 0 {
		if err := resolvePendingOverflows(ctx, p, pending, result, keep); err != nil {
			return nil, err
		}
	}

	filtered := make([]T, 0, len(result))
	for i, v := range result {
		if keep[i] {
			filtered = append(filtered, v)
		}
	}

	p.cfg.Metrics.AddGet(len(filtered))
	p.cfg.Metrics.ObserveGetLatency(p.cfg.Clock.Now().Sub(start))
	return filtered, nil
}

// resolvePendingOverflows fetches the overflow blob for each pending
// wrapper and decodes it into result's placeholder slot, relinking the
// checkout entry from the wrapper's key to the decoded payload's key.
// Fetches run concurrently over an errgroup, one goroutine per wrapper; a
// missing or undecodable blob clears keep[index] instead of failing the
// group, per the OverflowBlobMissing handling in Get's algorithm.
func resolvePendingOverflows[T any](ctx context.Context, p *Provider, pending []pendingWrapper, result []T, keep []bool) error {
	g, ctx := errgroup.WithContext(ctx)
	var mu sync.Mutex

	for _, pw := range pending {
		pw := pw
		g.Go(func() error {
			var data []byte
			var found bool
			err := p.retryTransient(ctx, func(ctx context.Context) error {
				got, ok, getErr := p.queues.Get(ctx, pw.wrapper.Container, pw.wrapper.Name)
				data, found = got, ok
				return getErr
			})
			if err != nil {
				return fmt.Errorf("cloudqueue: fetch overflow blob %q: %w", pw.wrapper.Name, err)
			}

			if !found {
				handle, ok := p.checkout.checkIn(pw.key)
				if ok {
					if delErr := p.qsvc.DeleteMessage(ctx, pw.queue, handle.ReceiptID); delErr != nil {
						p.cfg.Logger.Warn("get: failed to delete message with missing overflow blob",
							"queue", pw.queue, "error", delErr)
					}
				}
				mu.Lock()
				keep[pw.index] = false
				mu.Unlock()
				return nil
			}

			var typed T
			if decErr := p.cfg.Serializer.TryDeserialize(data, &typed); decErr != nil {
				p.cfg.Logger.Warn("get: overflow blob failed to decode as target type",
					"queue", pw.queue, "error", decErr)
				mu.Lock()
				keep[pw.index] = false
				mu.Unlock()
				return nil
			}

			newKey := checkoutKey(data)
			p.checkout.relink(pw.key, newKey)

			mu.Lock()
			result[pw.index] = typed
			mu.Unlock()
			return nil
		})
	}

	return g.Wait()
}

// poisonAndDelete moves raw to the default poison store with reason and
// deletes it from the queue. Errors are logged and swallowed: a poison
// move that itself fails should not abort the rest of the batch.
func (p *Provider) poisonAndDelete(ctx context.Context, queue string, raw RawMessage, bytes []byte, dequeueCount int, reason string) {
	if err := p.writePoisonRecord(ctx, p.cfg.DefaultPoisonStore, queue, raw.InsertionTime, dequeueCount, reason, bytes); err != nil {
		p.cfg.Logger.Warn("get: failed to write poison record", "queue", queue, "error", err)
		return
	}
	if err := p.qsvc.DeleteMessage(ctx, queue, raw.ReceiptID); err != nil {
		p.cfg.Logger.Warn("get: failed to delete poisoned message", "queue", queue, "error", err)
	}
	p.cfg.Metrics.AddPoisoned(1)
	p.publish(EventMessagePoisoned, queue, reason)
}
