// Package memqueue is a goroutine-safe, pure-Go implementation of
// cloudqueue.QueueService backed by an in-memory heap per queue. It is the
// default backend used by the command-line demo and by every test in this
// module; there is no network boundary to fake.
package memqueue

import (
	"container/heap"
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cloudqueue/cloudqueue"
	"github.com/google/uuid"
)

// message is one queued item, tracked in a visibility-ordered heap so the
// next message due to reappear is always at the top.
type message struct {
	id            string
	data          []byte
	timesDequeued int
	insertionTime time.Time
	visibleAt     time.Time // message is visible to GetMessages once time.Now() >= visibleAt
	receiptID     string    // the receipt currently holding this message invisible, "" if visible
}

// messageHeap orders messages by visibleAt, ascending, so the earliest
// reappearance is always at index 0.
type messageHeap []*message

func (h messageHeap) Len() int            { return len(h) }
func (h messageHeap) Less(i, j int) bool  { return h[i].visibleAt.Before(h[j].visibleAt) }
func (h messageHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *messageHeap) Push(x any)         { *h = append(*h, x.(*message)) }
func (h *messageHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// queueState is the per-queue bookkeeping: a visibility heap and an index
// from receipt to message for O(1) receipt lookup on delete (removing the
// message from the heap is then a linear scan).
type queueState struct {
	heap      messageHeap
	byReceipt map[string]*message
}

func newQueueState() *queueState {
	return &queueState{byReceipt: make(map[string]*message)}
}

// Service is an in-memory cloudqueue.QueueService.
type Service struct {
	mu              sync.Mutex
	queues          map[string]*queueState
	maxMessageBytes int
}

// Option configures a Service.
type Option func(*Service)

// WithMaxMessageBytes caps the raw message size this Service will accept,
// simulating a real backend's own per-message ceiling independent of
// whatever threshold the provider was configured with. AddMessage returns
// cloudqueue.ErrMessageTooLarge above the cap. The default, zero, accepts
// messages of any size.
func WithMaxMessageBytes(n int) Option {
	return func(s *Service) { s.maxMessageBytes = n }
}

// New returns an empty Service.
func New(opts ...Option) *Service {
	s := &Service{queues: make(map[string]*queueState)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) ListQueues(ctx context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.queues))
	for name := range s.queues {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *Service) CreateQueue(ctx context.Context, queue string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.queues[queue]; !ok {
		s.queues[queue] = newQueueState()
	}
	return nil
}

func (s *Service) AddMessage(ctx context.Context, queue string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	qs, ok := s.queues[queue]
	if !ok {
		return cloudqueue.ErrQueueNotFound
	}
	if s.maxMessageBytes > 0 && len(data) > s.maxMessageBytes {
		return cloudqueue.ErrMessageTooLarge
	}

	msg := &message{
		id:            uuid.NewString(),
		data:          data,
		insertionTime: time.Now().UTC(),
		visibleAt:     time.Now().UTC(),
	}
	heap.Push(&qs.heap, msg)
	return nil
}

func (s *Service) GetMessages(ctx context.Context, queue string, count int, visibility time.Duration) ([]cloudqueue.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	qs, ok := s.queues[queue]
	if !ok {
		return nil, cloudqueue.ErrQueueNotFound
	}

	now := time.Now().UTC()
	var out []cloudqueue.RawMessage
	var deferred messageHeap

	for qs.heap.Len() > 0 && len(out) < count {
		msg := heap.Pop(&qs.heap).(*message)
		if msg.visibleAt.After(now) {
			deferred = append(deferred, msg)
			continue
		}

		if msg.receiptID != "" {
			delete(qs.byReceipt, msg.receiptID)
		}
		msg.timesDequeued++
		msg.receiptID = uuid.NewString()
		msg.visibleAt = now.Add(visibility)
		qs.byReceipt[msg.receiptID] = msg

		out = append(out, cloudqueue.RawMessage{
			ReceiptID:     msg.receiptID,
			Bytes:         msg.data,
			DequeueCount:  msg.timesDequeued,
			InsertionTime: msg.insertionTime,
		})
		heap.Push(&qs.heap, msg)
	}

	for _, msg := range deferred {
		heap.Push(&qs.heap, msg)
	}

	return out, nil
}

func (s *Service) PeekMessages(ctx context.Context, queue string, count int) ([]cloudqueue.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	qs, ok := s.queues[queue]
	if !ok {
		return nil, cloudqueue.ErrQueueNotFound
	}

	now := time.Now().UTC()
	out := make([]cloudqueue.RawMessage, 0, count)
	for _, msg := range qs.heap {
		if len(out) >= count {
			break
		}
		if msg.visibleAt.After(now) {
			continue
		}
		out = append(out, cloudqueue.RawMessage{
			ReceiptID:     msg.receiptID,
			Bytes:         msg.data,
			DequeueCount:  msg.timesDequeued,
			InsertionTime: msg.insertionTime,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InsertionTime.Before(out[j].InsertionTime) })
	return out, nil
}

func (s *Service) DeleteMessage(ctx context.Context, queue string, receiptID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	qs, ok := s.queues[queue]
	if !ok {
		return nil
	}

	msg, ok := qs.byReceipt[receiptID]
	if !ok {
		return nil // expired or unknown receipt: tolerated as a no-op
	}
	delete(qs.byReceipt, receiptID)

	for i, m := range qs.heap {
		if m == msg {
			heap.Remove(&qs.heap, i)
			break
		}
	}
	return nil
}

func (s *Service) Clear(ctx context.Context, queue string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	qs, ok := s.queues[queue]
	if !ok {
		return cloudqueue.ErrQueueNotFound
	}
	qs.heap = nil
	qs.byReceipt = make(map[string]*message)
	return nil
}

func (s *Service) DeleteQueue(ctx context.Context, queue string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.queues[queue]; !ok {
		return cloudqueue.ErrQueueNotFound
	}
	delete(s.queues, queue)
	return nil
}

func (s *Service) ApproximateCount(ctx context.Context, queue string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	qs, ok := s.queues[queue]
	if !ok {
		return 0, cloudqueue.ErrQueueNotFound
	}

	now := time.Now().UTC()
	n := 0
	for _, msg := range qs.heap {
		if !msg.visibleAt.After(now) {
			n++
		}
	}
	return n, nil
}
