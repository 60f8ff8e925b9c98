// Package ratelimit counts submissions per source over fixed windows.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// sweepEvery bounds how often expired windows are purged.
const sweepEvery = 256

type window struct {
	count   int
	resetAt time.Time
}

// Memory is a process-local fixed-window limiter. Counts are lost on restart
// and are not shared between instances.
type Memory struct {
	mu      sync.Mutex
	max     int
	period  time.Duration
	windows map[string]*window
	calls   int
	now     func() time.Time
}

// NewMemory allows max attempts per key in each period.
func NewMemory(max int, period time.Duration) *Memory {
	return &Memory{
		max:     max,
		period:  period,
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

func (m *Memory) Allow(_ context.Context, key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.calls++
	if m.calls%sweepEvery == 0 {
		m.sweep(now)
	}

	w, ok := m.windows[key]
	if !ok || !now.Before(w.resetAt) {
		m.windows[key] = &window{count: 1, resetAt: now.Add(m.period)}
		return true
	}

	if w.count >= m.max {
		return false
	}
	w.count++
	return true
}

// Len returns the number of tracked keys.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows)
}

func (m *Memory) sweep(now time.Time) {
	for k, w := range m.windows {
		if !now.Before(w.resetAt) {
			delete(m.windows, k)
		}
	}
}
