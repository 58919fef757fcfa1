package cloudqueue

import (
	"context"
	"errors"
	"fmt"
)

// Abandon returns msg to its queue for redelivery, re-wrapped in an
// envelope that carries the accumulated dequeue count forward — the
// underlying queue service resets its own counter on every re-put, so
// poison detection would otherwise lose track of repeat failures.
func Abandon[T any](ctx context.Context, p *Provider, msg T) error {
	data, err := p.cfg.Serializer.Serialize(msg)
	if err != nil {
		return fmt.Errorf("cloudqueue: serialize message for abandon: %w", err)
	}
	key := checkoutKey(data)

	handle, ok := p.checkout.checkIn(key)
	if !ok {
		return ErrMessageNotCheckedOut
	}

	if err := p.abandonHandle(ctx, handle); err != nil {
		return err
	}

	p.cfg.Metrics.AddAbandon(1)
	return nil
}

// AbandonRange abandons every message in msgs, returning the count
// abandoned before the first error, if any.
func AbandonRange[T any](ctx context.Context, p *Provider, msgs []T) (int, error) {
	for i, m := range msgs {
		if err := Abandon(ctx, p, m); err != nil {
			return i, err
		}
	}
	return len(msgs), nil
}

// abandonHandle re-enqueues a checked-out handle and deletes its original
// raw message. It is shared between Abandon and Provider.Close, which
// abandons every still-checked-out message on shutdown.
func (p *Provider) abandonHandle(ctx context.Context, handle checkoutHandle) error {
	env := wireEnvelope{DequeueCount: handle.DequeueCount, RawMessage: handle.WireBytes}
	envBytes, err := p.cfg.Serializer.Serialize(env)
	if err != nil {
		return fmt.Errorf("cloudqueue: serialize envelope for abandon: %w", err)
	}

	wire := envBytes
	overflowed := false
	if len(envBytes) > p.cfg.messageThreshold() {
		// The envelope itself overflows. Take the overflow path on the
		// original payload and let the envelope's raw-message field hold
		// the resulting wrapper bytes instead of the payload directly.
		wire, err = p.envelopeOverflowWire(ctx, handle.Queue, env)
		if err != nil {
			return err
		}
		overflowed = true
	}

	if err := p.addMessageWithAutoCreate(ctx, handle.Queue, wire); err != nil {
		if overflowed || !errors.Is(err, ErrMessageTooLarge) {
			return err
		}
		// The backend rejected an envelope that passed our own pre-check.
		wire, err = p.envelopeOverflowWire(ctx, handle.Queue, env)
		if err != nil {
			return err
		}
		if err := p.addMessageWithAutoCreate(ctx, handle.Queue, wire); err != nil {
			return err
		}
	}

	if err := p.qsvc.DeleteMessage(ctx, handle.Queue, handle.ReceiptID); err != nil {
		return fmt.Errorf("cloudqueue: delete message after abandon: %w", err)
	}

	return nil
}

// envelopeOverflowWire takes the overflow path on env's original payload
// and returns the serialized envelope with its raw-message field replaced
// by the resulting wrapper bytes.
func (p *Provider) envelopeOverflowWire(ctx context.Context, queue string, env wireEnvelope) ([]byte, error) {
	wrapperBytes, err := p.overflowWrap(ctx, queue, env.RawMessage)
	if err != nil {
		return nil, err
	}
	env.RawMessage = wrapperBytes
	envBytes, err := p.cfg.Serializer.Serialize(env)
	if err != nil {
		return nil, fmt.Errorf("cloudqueue: serialize overflowing envelope for abandon: %w", err)
	}
	return envBytes, nil
}
