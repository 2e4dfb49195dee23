package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter enforces a minimum interval between requests to the same host.
type Limiter struct {
	mu          sync.Mutex
	hosts       map[string]time.Time
	minInterval time.Duration
}

func New(minInterval time.Duration) *Limiter {
	return &Limiter{
		hosts:       make(map[string]time.Time),
		minInterval: minInterval,
	}
}

// WaitContext blocks until a request to host is allowed or ctx is done.
func (l *Limiter) WaitContext(ctx context.Context, host string) error {
	for {
		delay := l.reserve(host)
		if delay <= 0 {
			return nil
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// reserve claims the slot for host and returns zero, or returns how long
// the caller must wait before trying again.
func (l *Limiter) reserve(host string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if last, ok := l.hosts[host]; ok {
		if wait := l.minInterval - now.Sub(last); wait > 0 {
			return wait
		}
	}
	l.hosts[host] = now
	return 0
}
