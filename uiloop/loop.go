// Package uiloop marshals event publications onto a single goroutine.
//
// UI toolkits demand that state mutation happens on one goroutine. Loop
// is a serial task queue bound to the goroutine that calls Run; Wrap
// decorates a Bus so publications from other goroutines are posted to
// the loop instead of dispatching in place, while calls already on the
// loop dispatch inline. Pump feeds terminal events from a tcell screen
// into a bus, making input just another publication.
package uiloop

import (
	"context"
	"errors"
	"sync/atomic"
)

var (
	// ErrLoopStopped is returned by Post after Stop.
	ErrLoopStopped = errors.New("loop stopped")

	// ErrQueueFull is returned by Post when the task queue is full.
	ErrQueueFull = errors.New("loop queue full")
)

type ctxKey struct{}

const defaultQueue = 128

// Loop runs posted functions one at a time on the goroutine that calls
// Run.
type Loop struct {
	tasks   chan func(context.Context)
	stop    chan struct{}
	stopped atomic.Bool
}

// NewLoop returns a loop with the given queue capacity. Capacities below
// one fall back to a default of 128.
func NewLoop(queue int) *Loop {
	if queue < 1 {
		queue = defaultQueue
	}
	return &Loop{
		tasks: make(chan func(context.Context), queue),
		stop:  make(chan struct{}),
	}
}

// Run executes posted functions on the calling goroutine until Stop is
// called or ctx is done. Functions receive a context for which OnLoop
// reports true. Tasks queued before Stop still run.
func (l *Loop) Run(ctx context.Context) error {
	base := context.WithValue(ctx, ctxKey{}, l)
	for {
		select {
		case fn := <-l.tasks:
			fn(base)
		case <-l.stop:
			for {
				select {
				case fn := <-l.tasks:
					fn(base)
				default:
					return nil
				}
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Post queues fn for execution on the loop goroutine without waiting.
// A nil fn is ignored.
func (l *Loop) Post(fn func(context.Context)) error {
	if fn == nil {
		return nil
	}
	if l.stopped.Load() {
		return ErrLoopStopped
	}
	select {
	case l.tasks <- fn:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop ends Run once the queue drains. Safe to call more than once and
// from any goroutine.
func (l *Loop) Stop() {
	if l.stopped.CompareAndSwap(false, true) {
		close(l.stop)
	}
}

// OnLoop reports whether ctx came from a function currently executing on
// loop.
func OnLoop(ctx context.Context, loop *Loop) bool {
	return ctx.Value(ctxKey{}) == loop
}
