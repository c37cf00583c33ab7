// Package locator keeps a process-wide registry of named event
// services.
//
// Most programs should construct a Bus and hand it to the components
// that need it; explicit dependencies stay visible and testable. The
// locator exists for hosts that cannot thread a value through every
// layer, such as plugin systems. Default returns a lazily constructed
// shared instance.
package locator

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dshills/eventbus"
)

// DefaultName is the registry key of the instance Default returns.
const DefaultName = "default"

var (
	// ErrDuplicate is returned when registering a name already in use.
	ErrDuplicate = errors.New("bus name already registered")

	// ErrNilBus is returned when registering a nil bus.
	ErrNilBus = errors.New("nil bus")

	// ErrEmptyName is returned when registering an empty name.
	ErrEmptyName = errors.New("empty bus name")
)

var (
	mu    sync.RWMutex
	buses = make(map[string]eventbus.Bus)
)

// Default returns the shared default instance, constructing it on first
// use.
func Default() eventbus.Bus {
	mu.RLock()
	b := buses[DefaultName]
	mu.RUnlock()
	if b != nil {
		return b
	}

	mu.Lock()
	defer mu.Unlock()
	if b := buses[DefaultName]; b != nil {
		return b
	}
	b = eventbus.New()
	buses[DefaultName] = b
	return b
}

// Register stores bus under name. Registering DefaultName before the
// first Default call decides the instance Default returns.
func Register(name string, bus eventbus.Bus) error {
	if name == "" {
		return ErrEmptyName
	}
	if bus == nil {
		return ErrNilBus
	}
	mu.Lock()
	defer mu.Unlock()
	if _, ok := buses[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	buses[name] = bus
	return nil
}

// Lookup returns the bus registered under name, or nil.
func Lookup(name string) eventbus.Bus {
	mu.RLock()
	defer mu.RUnlock()
	return buses[name]
}

// Unregister removes name, reporting whether it existed.
func Unregister(name string) bool {
	mu.Lock()
	defer mu.Unlock()
	_, ok := buses[name]
	delete(buses, name)
	return ok
}

// Reset drops every registration, the default included. Meant for
// tests.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	clear(buses)
}
