// Package ratelimit provides fixed-window request limiting keyed by client.
//
// Memory keeps counters in the process. Redis shares them between
// replicas, so a client cannot multiply its allowance by hitting a
// different instance behind the load balancer.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter decides whether one more request from key fits its window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Memory is an in-process fixed-window limiter.
type Memory struct {
	mu       sync.Mutex
	visitors map[string]*window
	limit    int
	period   time.Duration
	now      func() time.Time
}

type window struct {
	remaining int
	started   time.Time
}

// NewMemory allows limit requests per key in each period.
func NewMemory(limit int, period time.Duration) *Memory {
	return &Memory{
		visitors: make(map[string]*window),
		limit:    limit,
		period:   period,
		now:      time.Now,
	}
}

// Allow implements Limiter. It never returns an error.
func (m *Memory) Allow(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	w, ok := m.visitors[key]
	if !ok || now.Sub(w.started) >= m.period {
		m.visitors[key] = &window{remaining: m.limit - 1, started: now}
		return m.limit > 0, nil
	}
	if w.remaining <= 0 {
		return false, nil
	}
	w.remaining--
	return true, nil
}

// Sweep drops windows that ended more than one period ago.
func (m *Memory) Sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for key, w := range m.visitors {
		if now.Sub(w.started) > 2*m.period {
			delete(m.visitors, key)
		}
	}
}

// Run sweeps every period until ctx ends.
func (m *Memory) Run(ctx context.Context) {
	ticker := time.NewTicker(m.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Len returns the number of tracked keys.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.visitors)
}
