package cloudqueue

import (
	"context"
	"fmt"
)

// Delete permanently removes msg: its raw message from the queue, and its
// overflow blob too if it was an overflowing message. Deleting an
// overflowing message whose wrapper bytes fail to decode is tolerated: the
// blob is logged as an orphan and left for a later Clear/DeleteQueue
// prefix scan to pick up.
func Delete[T any](ctx context.Context, p *Provider, msg T) error {
	data, err := p.cfg.Serializer.Serialize(msg)
	if err != nil {
		return fmt.Errorf("cloudqueue: serialize message for delete: %w", err)
	}
	key := checkoutKey(data)

	handle, ok := p.checkout.checkIn(key)
	if !ok {
		return ErrMessageNotCheckedOut
	}

	return p.deleteHandle(ctx, handle)
}

// DeleteRange deletes every message in msgs, returning the count deleted
// before the first error, if any.
func DeleteRange[T any](ctx context.Context, p *Provider, msgs []T) (int, error) {
	for i, m := range msgs {
		if err := Delete(ctx, p, m); err != nil {
			return i, err
		}
	}
	return len(msgs), nil
}

func (p *Provider) deleteHandle(ctx context.Context, handle checkoutHandle) error {
	if handle.IsOverflowing {
		if wrapper, ok := decodeWrapper(p.cfg.Serializer, handle.WireBytes); ok {
			err := p.retryTransient(ctx, func(ctx context.Context) error {
				return p.queues.Delete(ctx, wrapper.Container, wrapper.Name)
			})
			if err != nil {
				return fmt.Errorf("cloudqueue: delete overflow blob %q: %w", wrapper.Name, err)
			}
		} else {
			p.cfg.Logger.Warn("delete: overflow wrapper failed to decode, blob orphaned", "queue", handle.Queue)
		}
	}

	err := p.retryTransient(ctx, func(ctx context.Context) error {
		return p.qsvc.DeleteMessage(ctx, handle.Queue, handle.ReceiptID)
	})
	if err != nil {
		return fmt.Errorf("cloudqueue: delete message: %w", err)
	}

	p.cfg.Metrics.AddDelete(1)
	return nil
}
