package bus

import (
	"context"
	"sync"
	"sync/atomic"

	"kline/pkg/exception"
)

var (
	ErrQueueFull   = exception.ErrQueueFull
	ErrQueueClosed = exception.ErrQueueClosed
)

// Queue is a bounded multi-producer single-consumer event queue. Close never
// closes the data channel, so a publish racing with Close returns
// ErrQueueClosed instead of panicking.
type Queue struct {
	ch     chan Event
	done   chan struct{}
	once   sync.Once
	closed uint32
}

// NewQueue allocates a queue with the given capacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{
		ch:   make(chan Event, capacity),
		done: make(chan struct{}),
	}
}

// Publish enqueues an event, blocking while the queue is full.
func (q *Queue) Publish(ctx context.Context, e Event) error {
	if atomic.LoadUint32(&q.closed) != 0 {
		return ErrQueueClosed
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-q.done:
		return ErrQueueClosed
	case q.ch <- e:
		return nil
	}
}

// TryPublish enqueues an event without blocking.
func (q *Queue) TryPublish(e Event) error {
	if atomic.LoadUint32(&q.closed) != 0 {
		return ErrQueueClosed
	}
	select {
	case q.ch <- e:
		return nil
	default:
		return ErrQueueFull
	}
}

// C exposes the receive side for select loops.
func (q *Queue) C() <-chan Event {
	return q.ch
}

// Close stops the queue from accepting new events.
func (q *Queue) Close() {
	q.once.Do(func() {
		atomic.StoreUint32(&q.closed, 1)
		close(q.done)
	})
}

func (q *Queue) Closed() bool {
	return atomic.LoadUint32(&q.closed) != 0
}

func (q *Queue) Len() int {
	return len(q.ch)
}
