package submission

// limiter.go caps how many submissions one process runs at once. Each
// submission holds its attachments in memory and keeps a store connection
// busy for several round trips, so slots are scarce. Shutdown uses Drain to
// let in-flight submissions finish their saga before the store closes.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrBusy is returned when no slot frees up within the wait time.
var ErrBusy = errors.New("too many submissions in progress")

// Limiter defaults.
const (
	DefaultMaxConcurrent = 8
	DefaultMaxWait       = 15 * time.Second
	drainPollInterval    = 50 * time.Millisecond
)

// Limiter is a counting semaphore over submissions.
type Limiter struct {
	slots   chan struct{}
	maxWait time.Duration
	metrics *Metrics

	mu     sync.Mutex
	active int
}

// NewLimiter allows maxConcurrent submissions; callers wait up to maxWait
// for a slot. Non-positive values select the defaults.
func NewLimiter(maxConcurrent int, maxWait time.Duration, metrics *Metrics) *Limiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	return &Limiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
		metrics: metrics,
	}
}

// Acquire takes a slot. It returns ErrBusy when the wait times out and the
// context error when ctx ends first. Every nil return must be paired with
// one Release.
func (l *Limiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.adjust(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrBusy
	}
}

// TryAcquire takes a slot only if one is free right now.
func (l *Limiter) TryAcquire() bool {
	select {
	case l.slots <- struct{}{}:
		l.adjust(1)
		return true
	default:
		return false
	}
}

// Release returns a slot.
func (l *Limiter) Release() {
	l.adjust(-1)
	<-l.slots
}

func (l *Limiter) adjust(delta int) {
	l.mu.Lock()
	l.active += delta
	n := l.active
	l.mu.Unlock()
	l.metrics.SetInFlight(n)
}

// Active returns the number of held slots.
func (l *Limiter) Active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// Capacity returns the slot count.
func (l *Limiter) Capacity() int {
	return cap(l.slots)
}

// Drain blocks until no slot is held or ctx ends.
func (l *Limiter) Drain(ctx context.Context) error {
	ticker := time.NewTicker(drainPollInterval)
	defer ticker.Stop()

	for {
		if l.Active() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
