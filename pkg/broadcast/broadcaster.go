package broadcast

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"helmet-orchestrator-be/internal/entity"

	"github.com/google/uuid"
)

// DefaultQueueDepth is used when New is given a non-positive depth.
const DefaultQueueDepth = 4

// Broadcaster merges partial updates into one StatusSnapshot and fans a copy
// out to every live subscription. Publish never blocks on a subscriber.
type Broadcaster struct {
	mu        sync.Mutex
	current   entity.StatusSnapshot
	subs      map[string]*Subscription
	depth     int
	closed    bool
	published atomic.Uint64
	now       func() time.Time
}

func New(depth int, profile string) *Broadcaster {
	if depth <= 0 {
		depth = DefaultQueueDepth
	}
	now := time.Now
	b := &Broadcaster{
		subs:  make(map[string]*Subscription),
		depth: depth,
		now:   now,
	}
	b.current.Profile = profile
	b.current.Session = entity.NewSession(now())
	b.current.StatusMessage = entity.StatusMessage(b.current.Session)
	b.current.Timestamp = now()
	return b
}

// Publish applies the patches and enqueues the result on every subscription.
// Snapshots are delivered to each subscriber in publish order.
func (b *Broadcaster) Publish(patches ...Patch) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	for _, p := range patches {
		p(&b.current)
	}
	b.current.Timestamp = b.now()
	b.published.Add(1)

	for _, sub := range b.subs {
		sub.offer(b.current.Clone())
	}
}

// Snapshot returns a copy of the current merged state.
func (b *Broadcaster) Snapshot() entity.StatusSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current.Clone()
}

// Subscribe registers a new subscription. It is primed with the current
// snapshot and cancelled automatically when ctx ends.
func (b *Broadcaster) Subscribe(ctx context.Context) *Subscription {
	sub := &Subscription{
		id:   uuid.NewString(),
		ch:   make(chan entity.StatusSnapshot, b.depth),
		done: make(chan struct{}),
		b:    b,
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		sub.closeLocked()
		return sub
	}
	b.subs[sub.id] = sub
	sub.offer(b.current.Clone())
	b.mu.Unlock()

	stop := context.AfterFunc(ctx, sub.Cancel)
	b.mu.Lock()
	sub.stop = stop
	b.mu.Unlock()
	return sub
}

func (b *Broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *Broadcaster) Published() uint64 {
	return b.published.Load()
}

// Close cancels every subscription. Later publishes are ignored.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		delete(b.subs, id)
		sub.closeLocked()
	}
}

func (b *Broadcaster) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub.stop != nil {
		sub.stop()
	}
	if _, ok := b.subs[sub.id]; ok {
		delete(b.subs, sub.id)
		sub.closeLocked()
	}
}
