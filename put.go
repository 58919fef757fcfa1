package cloudqueue

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudqueue/cloudqueue/retry"
	"github.com/google/uuid"
)

// Put serializes msg and enqueues it on queue. Payloads above the
// configured size threshold are transparently stored as an overflow blob
// and a small wrapper message is enqueued in their place. If queue does
// not exist yet, it is created and the add retried under the
// slow-instantiation policy.
func Put[T any](ctx context.Context, p *Provider, queue string, msg T) error {
	data, err := p.cfg.Serializer.Serialize(msg)
	if err != nil {
		return fmt.Errorf("cloudqueue: serialize message for queue %q: %w", queue, err)
	}

	wire, overflowed, err := p.toWireBytes(ctx, queue, data)
	if err != nil {
		return err
	}

	if err := p.addMessageWithAutoCreate(ctx, queue, wire); err != nil {
		if overflowed || !errors.Is(err, ErrMessageTooLarge) {
			return err
		}
		// The backend rejected bytes that passed our own pre-check. Take
		// the overflow path on the original payload and retry.
		wrapperBytes, overflowErr := p.overflowWrap(ctx, queue, data)
		if overflowErr != nil {
			return overflowErr
		}
		if err := p.addMessageWithAutoCreate(ctx, queue, wrapperBytes); err != nil {
			return err
		}
		overflowed = true
	}

	p.cfg.Metrics.AddPut(1)
	if overflowed {
		p.cfg.Metrics.AddOverflow(1)
		p.publish(EventMessageOverflowed, queue, nil)
	}
	return nil
}

// PutRange serializes and enqueues every message in msgs on queue,
// returning the count successfully added before the first error, if any.
func PutRange[T any](ctx context.Context, p *Provider, queue string, msgs []T) (int, error) {
	for i, m := range msgs {
		if err := Put(ctx, p, queue, m); err != nil {
			return i, err
		}
	}
	return len(msgs), nil
}

// toWireBytes returns the bytes that should actually be enqueued for a
// serialized payload: the payload itself if it fits under the threshold,
// or a Message Wrapper pointing at a freshly written overflow blob
// otherwise.
func (p *Provider) toWireBytes(ctx context.Context, queue string, data []byte) (wire []byte, overflowed bool, err error) {
	if len(data) <= p.cfg.messageThreshold() {
		return data, false, nil
	}

	wrapperBytes, err := p.overflowWrap(ctx, queue, data)
	if err != nil {
		return nil, false, err
	}
	return wrapperBytes, true, nil
}

// overflowWrap writes data to a freshly named overflow blob under queue
// and returns the serialized Message Wrapper that points at it.
func (p *Provider) overflowWrap(ctx context.Context, queue string, data []byte) ([]byte, error) {
	name := queue + "/" + uuid.NewString()

	err := p.retryTransient(ctx, func(ctx context.Context) error {
		return p.queues.Put(ctx, p.cfg.OverflowContainer, name, data)
	})
	if err != nil {
		return nil, fmt.Errorf("cloudqueue: write overflow blob %q: %w", name, err)
	}

	wrapper := wireWrapper{Container: p.cfg.OverflowContainer, Name: name}
	wrapperBytes, err := p.cfg.Serializer.Serialize(wrapper)
	if err != nil {
		return nil, fmt.Errorf("cloudqueue: serialize overflow wrapper for queue %q: %w", queue, err)
	}
	return wrapperBytes, nil
}

// addMessageWithAutoCreate enqueues wire on queue, lazily creating the
// queue and retrying once under the slow-instantiation policy if the
// queue did not exist yet.
func (p *Provider) addMessageWithAutoCreate(ctx context.Context, queue string, wire []byte) error {
	err := p.retryTransient(ctx, func(ctx context.Context) error {
		return p.qsvc.AddMessage(ctx, queue, wire)
	})
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrQueueNotFound) {
		return fmt.Errorf("cloudqueue: add message to queue %q: %w", queue, err)
	}

	if err := p.qsvc.CreateQueue(ctx, queue); err != nil {
		return fmt.Errorf("cloudqueue: create queue %q: %w", queue, err)
	}
	p.publish(EventQueueAutoCreated, queue, nil)

	retryErr := p.cfg.SlowInstantiationPolicy.Do(ctx, func(ctx context.Context) error {
		err := p.qsvc.AddMessage(ctx, queue, wire)
		if err != nil && errors.Is(err, ErrQueueNotFound) {
			return fmt.Errorf("%w: %v", retry.ErrTransient, err)
		}
		return err
	})
	if retryErr != nil {
		return fmt.Errorf("cloudqueue: add message to newly created queue %q: %w", queue, retryErr)
	}
	return nil
}
