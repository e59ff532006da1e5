package throttle

import (
	"context"
	"sync"
	"time"

	"botty/internal/application/port"
)

// Limiter serializes calls against a rate-limited downstream endpoint. It
// guarantees a minimum interval between the start of consecutive attempts
// and retries rate-limit rejections with exponential backoff. Submission
// order is preserved for attempt starts (FIFO); completion order is not
// guaranteed once retries stagger items.
type Limiter struct {
	minDelay   time.Duration
	maxRetries int
	retryDelay time.Duration // backoff base: retryDelay * 2^attempt

	isRetryable func(error) bool

	mu        sync.Mutex
	queue     []*item
	draining  bool
	lastStart time.Time
}

// Task is one unit of work against the downstream endpoint.
type Task func(ctx context.Context) (string, error)

type result struct {
	value string
	err   error
}

type item struct {
	ctx  context.Context
	task Task
	done chan result
}

// Option tweaks limiter behavior.
type Option func(*Limiter)

// WithClassifier replaces the retry-eligibility check. The default treats
// HTTP 429 (port.APIError) and "rate limit"/"429" message text as
// retryable; everything else fails on first occurrence.
func WithClassifier(fn func(error) bool) Option {
	return func(l *Limiter) { l.isRetryable = fn }
}

// New creates a limiter. minDelay is the minimum gap between the start of
// consecutive attempts; maxRetries is the number of additional attempts
// after the first failure; retryDelay is the backoff base.
func New(minDelay time.Duration, maxRetries int, retryDelay time.Duration, opts ...Option) *Limiter {
	l := &Limiter{
		minDelay:    minDelay,
		maxRetries:  maxRetries,
		retryDelay:  retryDelay,
		isRetryable: port.IsRateLimited,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Execute enqueues task and blocks until it settles or ctx is cancelled.
// The task is never run synchronously: even against an empty queue it goes
// through the drain loop so the min-delay accounting holds. There is no
// cancellation once an attempt is in flight; if ctx expires while waiting,
// the task may still run and its result is discarded.
func (l *Limiter) Execute(ctx context.Context, task Task) (string, error) {
	it := &item{ctx: ctx, task: task, done: make(chan result, 1)}

	l.mu.Lock()
	l.queue = append(l.queue, it)
	if !l.draining {
		l.draining = true
		go l.drain()
	}
	l.mu.Unlock()

	select {
	case res := <-it.done:
		return res.value, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// QueueLen reports the number of items not yet picked up by the drain
// loop.
func (l *Limiter) QueueLen() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// drain is the single consumer. At most one drain goroutine runs at a
// time; it exits once the queue empties and a later Execute restarts it.
func (l *Limiter) drain() {
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.draining = false
			l.mu.Unlock()
			return
		}
		it := l.queue[0]
		l.queue = l.queue[1:]
		l.mu.Unlock()

		l.process(it)
	}
}

func (l *Limiter) process(it *item) {
	// caller gave up before the first attempt started
	if it.ctx.Err() != nil {
		it.done <- result{err: it.ctx.Err()}
		return
	}

	var lastErr error
	for attempt := 0; attempt <= l.maxRetries; attempt++ {
		l.mu.Lock()
		wait := l.minDelay - time.Since(l.lastStart)
		l.mu.Unlock()
		if wait > 0 {
			time.Sleep(wait)
		}

		l.mu.Lock()
		l.lastStart = time.Now()
		l.mu.Unlock()

		value, err := it.task(it.ctx)
		if err == nil {
			it.done <- result{value: value}
			return
		}
		lastErr = err

		if !l.isRetryable(err) || attempt == l.maxRetries {
			break
		}
		// backoff on top of, and independent from, the steady-state
		// min delay
		time.Sleep(l.retryDelay * (1 << attempt))
	}

	it.done <- result{err: lastErr}
}
