package worker

import (
	"context"
	"sync"

	"prettify/internal/pipeline"
)

// Limiter caps the number of transforms running at once.
type Limiter struct {
	capacity int64

	mu     sync.Mutex
	tokens int64
	cond   *sync.Cond
	closed bool
}

func NewLimiter(capacity int64) *Limiter {
	l := &Limiter{capacity: capacity, tokens: capacity}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// Acquire blocks until a token is free or the limiter is closed. ctx is only
// re-checked on wakeup; cancel it together with Close.
func (l *Limiter) Acquire(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for l.tokens == 0 && !l.closed && ctx.Err() == nil {
		l.cond.Wait()
	}
	if l.closed {
		return pipeline.ErrRuntimeUnavailable
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	l.tokens--
	return nil
}

func (l *Limiter) Release(n int64) {
	l.mu.Lock()
	l.tokens += n
	if l.tokens > l.capacity {
		l.tokens = l.capacity
	}
	l.mu.Unlock()
	l.cond.Broadcast()
}

func (l *Limiter) Available() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tokens
}

func (l *Limiter) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	l.cond.Broadcast()
}
