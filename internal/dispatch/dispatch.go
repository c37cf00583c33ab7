// Package dispatch runs individual subscriber and veto-listener callbacks
// with panic recovery and timing capture. It knows nothing about
// subscriber types; callers hand it closures.
package dispatch

import (
	"runtime/debug"
	"time"
)

// Result describes one callback invocation.
type Result struct {
	// Err is the error returned by the callback, nil when it panicked.
	Err error

	// Panicked reports whether the callback panicked.
	Panicked bool

	// PanicValue is the value passed to panic().
	PanicValue any

	// PanicStack is the stack trace captured at recovery.
	PanicStack []byte

	// Start and End bound the call.
	Start time.Time
	End   time.Time
}

// Duration returns how long the call took.
func (r Result) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Faulted reports whether the call returned an error or panicked.
func (r Result) Faulted() bool {
	return r.Err != nil || r.Panicked
}

// Call runs fn, recovering a panic into the result and capturing timing.
func Call(fn func() error) (res Result) {
	res.Start = time.Now()

	defer func() {
		res.End = time.Now()

		if r := recover(); r != nil {
			// Capture full stack trace using debug.Stack()
			res.Panicked = true
			res.PanicValue = r
			res.PanicStack = debug.Stack()
		}
	}()

	res.Err = fn()
	return res
}

// CallVeto runs a veto check with the same recovery and timing capture.
// A panicking veto listener does not veto.
func CallVeto(fn func() bool) (vetoed bool, res Result) {
	res.Start = time.Now()

	defer func() {
		res.End = time.Now()

		if r := recover(); r != nil {
			vetoed = false
			res.Panicked = true
			res.PanicValue = r
			res.PanicStack = debug.Stack()
		}
	}()

	vetoed = fn()
	return vetoed, res
}
