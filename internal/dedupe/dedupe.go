package dedupe

import (
	"context"
	"sync"
	"time"
)

// Index records article identities that have already been turned into
// podcast content. Marking the same identity twice is a no-op.
type Index interface {
	// Seen reports whether the identity was marked inside the window.
	// It never marks; call Mark after the article has been selected.
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
}

type entry struct {
	key string
	ts  time.Time
}

// Memory is a process-local Index with a sliding window and a capacity
// bound. It loses state on restart; use Redis when runs must not repeat
// articles across deploys.
type Memory struct {
	mu       sync.Mutex
	items    map[string]time.Time
	order    []entry
	capacity int
	window   time.Duration
}

// NewMemory creates an in-memory index with the provided capacity and window.
func NewMemory(capacity int, window time.Duration) *Memory {
	if capacity <= 0 {
		capacity = 1
	}
	if window <= 0 {
		window = time.Hour
	}
	return &Memory{
		items:    make(map[string]time.Time, capacity),
		order:    make([]entry, 0, capacity),
		capacity: capacity,
		window:   window,
	}
}

func (m *Memory) Seen(_ context.Context, key string) (bool, error) {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if ts, ok := m.items[key]; ok {
		if now.Sub(ts) <= m.window {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) Mark(_ context.Context, key string) error {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[key] = now
	m.order = append(m.order, entry{key: key, ts: now})
	m.compact(now)
	return nil
}

func (m *Memory) compact(now time.Time) {
	cutoff := now.Add(-m.window)

	for len(m.order) > 0 && (len(m.items) > m.capacity || m.order[0].ts.Before(cutoff)) {
		oldest := m.order[0]
		m.order = m.order[1:]

		if ts, ok := m.items[oldest.key]; ok {
			if ts == oldest.ts {
				delete(m.items, oldest.key)
			}
		}
	}
}
