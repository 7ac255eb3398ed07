package loop

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrLoopClosed is returned when posting to a stopped loop.
var ErrLoopClosed = errors.New("event loop closed")

// Loop runs posted work and timer callbacks on a single goroutine.
type Loop struct {
	queue chan func()
	done  chan struct{}

	mu     sync.Mutex
	closed bool
}

// New creates a Loop with the given queue size.
func New(queueSize int) *Loop {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Loop{
		queue: make(chan func(), queueSize),
		done:  make(chan struct{}),
	}
}

// Run processes work until ctx is cancelled or Close is called.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			l.Close()
			return ctx.Err()
		case <-l.done:
			return nil
		case fn := <-l.queue:
			fn()
		}
	}
}

// Post queues fn to run on the loop goroutine.
func (l *Loop) Post(fn func()) error {
	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return ErrLoopClosed
	}

	select {
	case l.queue <- fn:
		return nil
	case <-l.done:
		return ErrLoopClosed
	}
}

// Close stops the loop. It is safe to call Close multiple times.
func (l *Loop) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	close(l.done)
}

// Now implements Scheduler.
func (l *Loop) Now() time.Time {
	return time.Now()
}

// AfterFunc implements Scheduler. fn runs on the loop goroutine.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, func() {
		_ = l.Post(fn)
	})
}

// Wall is a Scheduler that runs callbacks on timer goroutines. It suits
// tools that do not run a Loop.
type Wall struct{}

// Now implements Scheduler.
func (Wall) Now() time.Time { return time.Now() }

// AfterFunc implements Scheduler.
func (Wall) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}
