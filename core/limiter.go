package core

import (
	"context"
	"sync"
	"time"
)

// Limiter is the admission controller bounding outbound requests. It
// enforces two independent ceilings: the number of requests in flight and
// the number of requests granted within any rolling window (one minute in
// production use).
//
// Callers that exceed capacity queue in strict FIFO order and suspend until
// a slot opens. The queue itself is unbounded; callers bound their own wait
// through the context they pass to Acquire.
type Limiter struct {
	mu          sync.Mutex
	maxInFlight int
	maxPerWin   int
	window      time.Duration

	inFlight int
	granted  []time.Time
	waiters  []*waiter
	timer    *time.Timer

	now func() time.Time
}

type waiter struct {
	ready chan struct{}
	ok    bool // set under mu before ready is closed
}

// NewLimiter creates a limiter with the given concurrency and per-minute
// ceilings. A ceiling of 0 or less disables that limit.
func NewLimiter(maxInFlight, maxPerMinute int) *Limiter {
	return newLimiter(maxInFlight, maxPerMinute, time.Minute)
}

func newLimiter(maxInFlight, maxPerWindow int, window time.Duration) *Limiter {
	return &Limiter{
		maxInFlight: maxInFlight,
		maxPerWin:   maxPerWindow,
		window:      window,
		now:         time.Now,
	}
}

// Acquire reserves a request slot, suspending the caller while capacity is
// exhausted. It returns a release function that must be called exactly once
// when the request completes; calling it again is a no-op.
//
// If ctx is canceled while waiting, the caller leaves the queue and no
// capacity is held.
func (l *Limiter) Acquire(ctx context.Context) (release func(), err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	if len(l.waiters) == 0 && l.capacityLocked() {
		l.grantLocked()
		l.mu.Unlock()
		return l.releaseFunc(), nil
	}

	w := &waiter{ready: make(chan struct{})}
	l.waiters = append(l.waiters, w)
	l.armTimerLocked()
	l.mu.Unlock()

	select {
	case <-w.ready:
		return l.releaseFunc(), nil
	case <-ctx.Done():
		l.mu.Lock()
		if w.ok {
			// Granted concurrently with cancellation: give the slot back.
			l.mu.Unlock()
			l.releaseFunc()()
			return nil, ctx.Err()
		}
		l.removeLocked(w)
		l.mu.Unlock()
		return nil, ctx.Err()
	}
}

// InFlight returns the number of requests currently holding a slot.
func (l *Limiter) InFlight() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inFlight
}

// Waiting returns the number of callers queued for capacity.
func (l *Limiter) Waiting() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.waiters)
}

// capacityLocked reports whether both ceilings have room, pruning grants
// that have aged out of the rolling window.
func (l *Limiter) capacityLocked() bool {
	l.pruneLocked()
	if l.maxInFlight > 0 && l.inFlight >= l.maxInFlight {
		return false
	}
	if l.maxPerWin > 0 && len(l.granted) >= l.maxPerWin {
		return false
	}
	return true
}

func (l *Limiter) pruneLocked() {
	cutoff := l.now().Add(-l.window)
	i := 0
	for i < len(l.granted) && !l.granted[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.granted = append(l.granted[:0], l.granted[i:]...)
	}
}

func (l *Limiter) grantLocked() {
	l.inFlight++
	l.granted = append(l.granted, l.now())
}

// dispatchLocked grants queued waiters, head first, while capacity lasts.
func (l *Limiter) dispatchLocked() {
	for len(l.waiters) > 0 && l.capacityLocked() {
		w := l.waiters[0]
		l.waiters = l.waiters[1:]
		l.grantLocked()
		w.ok = true
		close(w.ready)
	}
	l.armTimerLocked()
}

// armTimerLocked schedules a dispatch at the moment the oldest grant ages
// out of the window, for waiters blocked on the per-window ceiling alone.
func (l *Limiter) armTimerLocked() {
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	if len(l.waiters) == 0 || len(l.granted) == 0 {
		return
	}
	if l.maxInFlight > 0 && l.inFlight >= l.maxInFlight {
		// Blocked on concurrency; release() will dispatch.
		return
	}
	wait := l.granted[0].Add(l.window).Sub(l.now())
	if wait < 0 {
		wait = 0
	}
	l.timer = time.AfterFunc(wait, func() {
		l.mu.Lock()
		l.timer = nil
		l.dispatchLocked()
		l.mu.Unlock()
	})
}

func (l *Limiter) removeLocked(target *waiter) {
	for i, w := range l.waiters {
		if w == target {
			l.waiters = append(l.waiters[:i], l.waiters[i+1:]...)
			return
		}
	}
}

// releaseFunc returns an idempotent release for one held slot.
func (l *Limiter) releaseFunc() func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			if l.inFlight > 0 {
				l.inFlight--
			}
			l.dispatchLocked()
			l.mu.Unlock()
		})
	}
}
