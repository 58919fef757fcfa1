package cloudqueue

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// persistedRecord is the wire format written under a poison/persisted
// store's key: a snapshot of a message at the moment it left the queue
// under Persist (poison threshold, undecodable payload, or an explicit
// caller Persist call).
type persistedRecord struct {
	Queue           string    `json:"queue"`
	InsertionTime   time.Time `json:"insertion_time"`
	PersistenceTime time.Time `json:"persistence_time"`
	DequeueCount    int       `json:"dequeue_count"`
	Reason          string    `json:"reason"`
	Data            []byte    `json:"data"`
}

// randomPersistedKey returns a fresh, collision-resistant key for a
// persisted record: the hex digits of a UUID, with no dashes.
func randomPersistedKey() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

// writePoisonRecord writes a persistedRecord for a message being diverted
// out of the normal flow, under a fresh random key in store.
func (p *Provider) writePoisonRecord(ctx context.Context, store, queue string, insertionTime time.Time, dequeueCount int, reason string, data []byte) error {
	return p.writeRecord(ctx, store, randomPersistedKey(), queue, insertionTime, dequeueCount, reason, data)
}

func (p *Provider) writeRecord(ctx context.Context, store, key, queue string, insertionTime time.Time, dequeueCount int, reason string, data []byte) error {
	rec := persistedRecord{
		Queue:           queue,
		InsertionTime:   insertionTime,
		PersistenceTime: p.cfg.Clock.Now(),
		DequeueCount:    dequeueCount,
		Reason:          reason,
		Data:            data,
	}
	recBytes, err := p.cfg.Serializer.Serialize(rec)
	if err != nil {
		return fmt.Errorf("cloudqueue: serialize persisted record: %w", err)
	}
	if err := p.queues.Put(ctx, p.cfg.PersistedContainer, store+"/"+key, recBytes); err != nil {
		return fmt.Errorf("cloudqueue: write persisted record %q/%q: %w", store, key, err)
	}
	return nil
}

// Persist removes msg from the checkout table and writes a persistedRecord
// for it under store with reason, then deletes its raw message from the
// originating queue. The stored bytes are msg's wire bytes exactly as
// checked out: for an overflowing message that is the wrapper, not the
// unwrapped content, so the overflow blob survives untouched until the
// record itself is deleted (a restore requeues the wrapper and leaves the
// blob in place for it).
func Persist[T any](ctx context.Context, p *Provider, store, reason string, msg T) error {
	data, err := p.cfg.Serializer.Serialize(msg)
	if err != nil {
		return fmt.Errorf("cloudqueue: serialize message for persist: %w", err)
	}
	key := checkoutKey(data)

	handle, ok := p.checkout.checkIn(key)
	if !ok {
		return ErrMessageNotCheckedOut
	}

	if err := p.writeRecord(ctx, store, randomPersistedKey(), handle.Queue, handle.InsertionTime, handle.DequeueCount, reason, handle.WireBytes); err != nil {
		return err
	}
	if err := p.qsvc.DeleteMessage(ctx, handle.Queue, handle.ReceiptID); err != nil {
		return fmt.Errorf("cloudqueue: delete message after persist: %w", err)
	}

	p.cfg.Metrics.AddPersist(1)
	p.publish(EventMessagePersisted, handle.Queue, reason)
	return nil
}

// PersistedMessageInfo summarizes a persisted/poison record for human
// inspection, without necessarily exposing the raw bytes.
type PersistedMessageInfo struct {
	Queue           string
	InsertionTime   time.Time
	PersistenceTime time.Time
	DequeueCount    int
	Reason          string
	PayloadXML      []byte // best-effort projection; nil if the serializer can't introspect
	Restorable      bool   // false if this record wraps an overflow blob that no longer exists
}

// ListPersisted returns every key in store.
func (p *Provider) ListPersisted(ctx context.Context, store string) ([]string, error) {
	names, err := p.queues.List(ctx, p.cfg.PersistedContainer, store+"/")
	if err != nil {
		return nil, fmt.Errorf("cloudqueue: list persisted store %q: %w", store, err)
	}
	keys := make([]string, 0, len(names))
	prefix := store + "/"
	for _, n := range names {
		keys = append(keys, strings.TrimPrefix(n, prefix))
	}
	return keys, nil
}

func (p *Provider) loadPersisted(ctx context.Context, store, key string) (persistedRecord, bool, error) {
	data, found, err := p.queues.Get(ctx, p.cfg.PersistedContainer, store+"/"+key)
	if err != nil {
		return persistedRecord{}, false, fmt.Errorf("cloudqueue: fetch persisted record %q/%q: %w", store, key, err)
	}
	if !found {
		return persistedRecord{}, false, nil
	}
	var rec persistedRecord
	if err := p.cfg.Serializer.TryDeserialize(data, &rec); err != nil {
		return persistedRecord{}, false, fmt.Errorf("cloudqueue: decode persisted record %q/%q: %w", store, key, err)
	}
	return rec, true, nil
}

// GetPersisted returns human-inspectable information about the record at
// store/key.
func (p *Provider) GetPersisted(ctx context.Context, store, key string) (PersistedMessageInfo, error) {
	rec, found, err := p.loadPersisted(ctx, store, key)
	if err != nil {
		return PersistedMessageInfo{}, err
	}
	if !found {
		return PersistedMessageInfo{}, ErrPersistedRecordNotFound
	}

	info := PersistedMessageInfo{
		Queue:           rec.Queue,
		InsertionTime:   rec.InsertionTime,
		PersistenceTime: rec.PersistenceTime,
		DequeueCount:    rec.DequeueCount,
		Reason:          rec.Reason,
		Restorable:      true,
	}

	if xmlBytes, ok := p.cfg.Serializer.UnpackXML(rec.Data); ok {
		info.PayloadXML = xmlBytes
	}

	if wrapper, ok := decodeWrapper(p.cfg.Serializer, rec.Data); ok {
		_, found, err := p.queues.Get(ctx, wrapper.Container, wrapper.Name)
		if err != nil {
			return PersistedMessageInfo{}, fmt.Errorf("cloudqueue: check overflow blob for %q/%q: %w", store, key, err)
		}
		info.Restorable = found
	}

	return info, nil
}

// DeletePersisted removes the record at store/key, together with its
// overflow blob if the record wraps one.
func (p *Provider) DeletePersisted(ctx context.Context, store, key string) error {
	rec, found, err := p.loadPersisted(ctx, store, key)
	if err != nil {
		return err
	}
	if !found {
		return ErrPersistedRecordNotFound
	}

	if wrapper, ok := decodeWrapper(p.cfg.Serializer, rec.Data); ok {
		if err := p.queues.Delete(ctx, wrapper.Container, wrapper.Name); err != nil {
			return fmt.Errorf("cloudqueue: delete overflow blob for %q/%q: %w", store, key, err)
		}
	}

	if err := p.queues.Delete(ctx, p.cfg.PersistedContainer, store+"/"+key); err != nil {
		return fmt.Errorf("cloudqueue: delete persisted record %q/%q: %w", store, key, err)
	}
	return nil
}

// RestorePersisted puts the record's raw bytes back onto its originating
// queue verbatim (no envelope, since Abandon's dequeue-count history does
// not carry across a restore) and then deletes the record.
func RestorePersisted(ctx context.Context, p *Provider, store, key string) error {
	rec, found, err := p.loadPersisted(ctx, store, key)
	if err != nil {
		return err
	}
	if !found {
		return ErrPersistedRecordNotFound
	}

	if err := p.addMessageWithAutoCreate(ctx, rec.Queue, rec.Data); err != nil {
		return err
	}
	// Only the record is deleted: if it wraps an overflow blob, the
	// requeued wrapper still points at that blob.
	if err := p.queues.Delete(ctx, p.cfg.PersistedContainer, store+"/"+key); err != nil {
		return fmt.Errorf("cloudqueue: delete persisted record %q/%q: %w", store, key, err)
	}

	p.publish(EventMessageRestored, rec.Queue, key)
	return nil
}
