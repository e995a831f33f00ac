package gateway

import (
	"sort"
	"sync"
	"time"
)

// Health tracks which collaborators are currently degraded. onChange fires
// only on transitions, outside the lock.
type Health struct {
	mu       sync.Mutex
	degraded map[string]time.Time
	onChange func(service string, degraded bool)
	now      func() time.Time
}

func NewHealth(onChange func(service string, degraded bool)) *Health {
	return &Health{
		degraded: make(map[string]time.Time),
		onChange: onChange,
		now:      time.Now,
	}
}

func (h *Health) MarkDegraded(service string) {
	h.mu.Lock()
	_, already := h.degraded[service]
	if !already {
		h.degraded[service] = h.now()
	}
	h.mu.Unlock()

	if !already && h.onChange != nil {
		h.onChange(service, true)
	}
}

func (h *Health) MarkHealthy(service string) {
	h.mu.Lock()
	_, was := h.degraded[service]
	delete(h.degraded, service)
	h.mu.Unlock()

	if was && h.onChange != nil {
		h.onChange(service, false)
	}
}

func (h *Health) IsDegraded(service string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.degraded[service]
	return ok
}

// Degraded lists degraded services in name order.
func (h *Health) Degraded() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.degraded))
	for s := range h.degraded {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
