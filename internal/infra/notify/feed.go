package notify

import (
	"context"
	"sync"
	"time"
)

const DefaultFeedCapacity = 20

// Feed queues notifications per session until the client drains them,
// the server-side equivalent of a toast container.
type Feed struct {
	capacity int
	now      func() time.Time

	mu     sync.Mutex
	queues map[string][]Notification
}

func NewFeed(capacity int) *Feed {
	if capacity <= 0 {
		capacity = DefaultFeedCapacity
	}
	return &Feed{
		capacity: capacity,
		now:      time.Now,
		queues:   make(map[string][]Notification),
	}
}

func (f *Feed) Error(ctx context.Context, message string) {
	n := newNotification(ctx, message, f.now())

	f.mu.Lock()
	defer f.mu.Unlock()
	q := append(f.queues[n.Session], n)
	if len(q) > f.capacity {
		q = q[len(q)-f.capacity:]
	}
	f.queues[n.Session] = q
}

// Drain returns and forgets the pending notifications of a session, oldest first.
func (f *Feed) Drain(session string) []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := f.queues[session]
	delete(f.queues, session)
	if q == nil {
		return []Notification{}
	}
	return q
}
