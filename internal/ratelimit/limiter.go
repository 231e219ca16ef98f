package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter gates calls to the downstream producer on two axes: a hard cap on
// concurrent holders (slots) and a minimum interval between successive
// grants derived from a requests-per-window budget. Acquire is pure
// backpressure: it never times out or fails on its own, only via ctx.
//
// A Limiter spans one scheduling session. It is constructed explicitly and
// passed by reference; there is no process-wide instance (see Registry for
// multi-session sharing).
type Limiter struct {
	slots    chan struct{}
	interval time.Duration

	mu        sync.Mutex
	lastGrant time.Time
}

// New builds a limiter allowing maxConcurrent simultaneous holders and at
// most requestsPerWindow grants per window. maxConcurrent < 1 is raised to
// 1. requestsPerWindow <= 0 disables the interval gate; window <= 0
// defaults to one minute.
func New(maxConcurrent, requestsPerWindow int, window time.Duration) *Limiter {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	var interval time.Duration
	if requestsPerWindow > 0 {
		if window <= 0 {
			window = time.Minute
		}
		interval = window / time.Duration(requestsPerWindow)
	}
	return &Limiter{
		slots:    make(chan struct{}, maxConcurrent),
		interval: interval,
	}
}

// Acquire blocks until a slot is free and the minimum interval has elapsed
// since the previous grant, then takes the slot. The grant timestamp is
// reserved under the lock, so concurrent acquirers are spaced by at least
// the interval in grant order.
func (l *Limiter) Acquire(ctx context.Context) error {
	select {
	case l.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	if l.interval <= 0 {
		return nil
	}

	l.mu.Lock()
	now := time.Now()
	grant := l.lastGrant.Add(l.interval)
	if grant.Before(now) {
		grant = now
	}
	l.lastGrant = grant
	l.mu.Unlock()

	if wait := time.Until(grant); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			l.Release()
			return ctx.Err()
		}
	}
	return nil
}

// Release frees a slot. It never blocks, is floored at zero, and is safe to
// call redundantly.
func (l *Limiter) Release() {
	select {
	case <-l.slots:
	default:
	}
}

// InUse reports the number of currently held slots.
func (l *Limiter) InUse() int {
	return len(l.slots)
}

// MaxConcurrent reports the slot cap.
func (l *Limiter) MaxConcurrent() int {
	return cap(l.slots)
}

// Interval reports the minimum inter-grant spacing (zero when disabled).
func (l *Limiter) Interval() time.Duration {
	return l.interval
}
