package eventbus

import (
	"errors"
	"fmt"
)

// Sentinel errors for the event service.
var (
	// ErrNilEvent is returned when publishing a nil event.
	ErrNilEvent = errors.New("event cannot be nil")

	// ErrEmptyTopic is returned when publishing on an empty topic name.
	ErrEmptyTopic = errors.New("topic cannot be empty")

	// ErrNilSelector is returned when a nil selector is provided.
	ErrNilSelector = errors.New("selector cannot be nil")

	// ErrNilSubscriber is returned when a nil subscriber or invalid
	// reference is provided.
	ErrNilSubscriber = errors.New("subscriber cannot be nil")

	// ErrNilVetoListener is returned when a nil veto listener is provided.
	ErrNilVetoListener = errors.New("veto listener cannot be nil")

	// ErrInvalidSubscriber is returned when a reference resolves to a
	// value that does not implement the required subscriber interface.
	ErrInvalidSubscriber = errors.New("invalid subscriber")

	// ErrInvalidVetoListener is returned when a reference resolves to a
	// value that does not implement the required veto interface.
	ErrInvalidVetoListener = errors.New("invalid veto listener")

	// ErrDeadRef is returned when subscribing a weak reference whose
	// referent has already been reclaimed.
	ErrDeadRef = errors.New("weak reference is already reclaimed")

	// ErrInvalidDescriptor is returned when a generic type descriptor is
	// malformed or does not describe the published event.
	ErrInvalidDescriptor = errors.New("invalid type descriptor")

	// ErrSubscriberPanic is matched by errors.Is against *PanicError.
	ErrSubscriberPanic = errors.New("subscriber panicked")
)

// PanicError wraps a panic captured during a subscriber or veto-listener
// call.
type PanicError struct {
	// Value is the value passed to panic().
	Value any

	// Stack is the stack trace at the time of the panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("subscriber panicked: %v", e.Value)
}

// Is allows errors.Is to match PanicError with ErrSubscriberPanic.
func (e *PanicError) Is(target error) bool {
	return target == ErrSubscriberPanic
}
