package ratelimit

import (
	"context"
	"sync"
	"time"
)

const sweepInterval = 5 * time.Minute

type window struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter is a process-local fixed-window limiter. Correct for a
// single instance only; use the redis limiter when running more than one.
type MemoryLimiter struct {
	limits Limits

	mu      sync.Mutex
	windows map[string]*window

	stop chan struct{}
	once sync.Once
}

// NewMemoryLimiter creates an in-memory limiter and starts its sweeper.
func NewMemoryLimiter(limits Limits) *MemoryLimiter {
	l := &MemoryLimiter{
		limits:  limits,
		windows: make(map[string]*window),
		stop:    make(chan struct{}),
	}

	go l.sweep()

	return l
}

// Allow implements Limiter.
func (l *MemoryLimiter) Allow(_ context.Context, key string, class Class) (Result, error) {
	max := l.limits.Max(class)
	now := time.Now()
	fullKey := key + ":" + string(class)

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[fullKey]
	if !ok || now.After(w.resetAt) {
		w = &window{resetAt: now.Add(l.limits.Window)}
		l.windows[fullKey] = w
	}

	w.count++

	res := Result{
		Limit:     max,
		ResetTime: w.resetAt,
	}
	if w.count <= max {
		res.Allowed = true
		res.Remaining = max - w.count
	}

	return res, nil
}

// Close stops the sweeper.
func (l *MemoryLimiter) Close() error {
	l.once.Do(func() { close(l.stop) })
	return nil
}

// sweep purges expired windows so idle keys do not accumulate.
func (l *MemoryLimiter) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case now := <-ticker.C:
			l.mu.Lock()
			for key, w := range l.windows {
				if now.After(w.resetAt) {
					delete(l.windows, key)
				}
			}
			l.mu.Unlock()
		}
	}
}
