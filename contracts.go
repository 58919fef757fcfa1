package cloudqueue

import (
	"context"
	"time"
)

// RawMessage is a single message as returned by a QueueService, before any
// envelope peeling, poison check, or decoding.
type RawMessage struct {
	// ReceiptID identifies this specific delivery. It is only valid until
	// the message is deleted or its visibility timeout expires.
	ReceiptID string
	// Bytes is the wire content exactly as stored on the queue.
	Bytes []byte
	// DequeueCount is the number of times the queue service itself has
	// handed this message out. It starts over on every Put/AddMessage (zero
	// until the first delivery, which reports 1), which is why Provider also
	// tracks an accumulated count via envelopes.
	DequeueCount int
	// InsertionTime is when the message was added to the queue.
	InsertionTime time.Time
}

// QueueService is the primitive queue contract Provider is layered over:
// short, size-limited messages governed by a visibility timeout.
//
// Implementations must be safe for concurrent use. ErrQueueNotFound should
// be returned wherever a queue name could not be resolved; Provider treats
// it as a logical signal, not a fault, at every call site except Put.
type QueueService interface {
	// ListQueues returns the names of queues whose name starts with prefix.
	ListQueues(ctx context.Context, prefix string) ([]string, error)
	// GetMessages dequeues up to count messages, hiding them from other
	// callers for visibility before they reappear.
	GetMessages(ctx context.Context, queue string, count int, visibility time.Duration) ([]RawMessage, error)
	// PeekMessages returns up to count messages without affecting their
	// visibility or dequeue count. Used for ApproximateLatency.
	PeekMessages(ctx context.Context, queue string, count int) ([]RawMessage, error)
	// AddMessage enqueues data as a new message.
	AddMessage(ctx context.Context, queue string, data []byte) error
	// DeleteMessage permanently removes the message identified by
	// receiptID. It is a no-op, not an error, once the receipt has expired.
	DeleteMessage(ctx context.Context, queue string, receiptID string) error
	// Clear removes every message currently on the queue.
	Clear(ctx context.Context, queue string) error
	// DeleteQueue removes the queue itself.
	DeleteQueue(ctx context.Context, queue string) error
	// CreateQueue creates the queue if it does not already exist.
	CreateQueue(ctx context.Context, queue string) error
	// ApproximateCount returns an approximate count of visible messages.
	ApproximateCount(ctx context.Context, queue string) (int, error)
}

// BlobStorage is the primitive blob contract used for overflow payloads and
// persisted poison records: an opaque key-to-bytes store addressed by
// container and name, with list-by-prefix.
//
// Implementations must be safe for concurrent use.
type BlobStorage interface {
	// Put writes data under container/name, creating the container
	// lazily if the backend requires that.
	Put(ctx context.Context, container, name string, data []byte) error
	// Get returns the bytes stored under container/name. found is false,
	// with a nil error, when nothing exists there.
	Get(ctx context.Context, container, name string) (data []byte, found bool, err error)
	// List returns the names of every blob in container whose name starts
	// with prefix.
	List(ctx context.Context, container, prefix string) ([]string, error)
	// Delete removes the blob at container/name. It is not an error to
	// delete a blob that does not exist.
	Delete(ctx context.Context, container, name string) error
}

// Serializer converts payload values to and from wire bytes. Provider uses
// the same Serializer for user payloads and for its own internal wire
// formats (envelopes, wrappers, persisted records).
type Serializer interface {
	// Serialize encodes v to its wire representation.
	Serialize(v any) ([]byte, error)
	// TryDeserialize decodes data into v, returning an error if data does
	// not represent a value of v's type.
	TryDeserialize(data []byte, v any) error
	// UnpackXML produces a best-effort XML projection of data, for
	// human inspection of poisoned/persisted messages. ok is false when the
	// serializer cannot introspect data's shape.
	UnpackXML(data []byte) (xmlBytes []byte, ok bool)
}
