package broadcast

import (
	"sync"
	"sync/atomic"

	"helmet-orchestrator-be/internal/entity"
)

// Subscription is a bounded, drop-oldest delivery queue owned by the
// Broadcaster. Status is a level signal: intermediate snapshots may be
// dropped, the newest never is.
type Subscription struct {
	id      string
	ch      chan entity.StatusSnapshot
	done    chan struct{}
	b       *Broadcaster
	dropped atomic.Uint64
	once    sync.Once
	stop    func() bool
}

func (s *Subscription) ID() string {
	return s.id
}

// C delivers snapshots. It is closed when the subscription ends.
func (s *Subscription) C() <-chan entity.StatusSnapshot {
	return s.ch
}

// Done is closed when the subscription ends.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Dropped counts snapshots discarded to make room for newer ones.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Cancel ends the subscription. Safe to call more than once.
func (s *Subscription) Cancel() {
	s.b.remove(s)
}

// offer must be called with the broadcaster lock held; the lock makes it the
// only sender on ch.
func (s *Subscription) offer(snap entity.StatusSnapshot) {
	for {
		select {
		case s.ch <- snap:
			return
		default:
		}
		select {
		case <-s.ch:
			s.dropped.Add(1)
		default:
		}
	}
}

// closeLocked must be called with the broadcaster lock held.
func (s *Subscription) closeLocked() {
	s.once.Do(func() {
		close(s.ch)
		close(s.done)
	})
}
