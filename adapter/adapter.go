// Package adapter builds typed proxies that bind plain functions to an
// event service on behalf of an owning object. A proxy implements the
// service's subscriber contract, asserts each payload to the bound type,
// and records its subscriptions so they can be released together.
// Unsubscribing the owner identity through the Bus removes the proxy
// too; the service then calls ProxyUnsubscribed and the proxy refuses
// further subscriptions.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dshills/eventbus"
	"github.com/dshills/eventbus/selector"
)

var (
	// ErrPayloadType is returned when a delivered value does not have
	// the proxy's bound payload type.
	ErrPayloadType = errors.New("payload type mismatch")

	// ErrReleased is returned when subscribing a proxy that has already
	// been released.
	ErrReleased = errors.New("proxy already released")
)

type binding struct {
	bus eventbus.Bus
	sel selector.Type
}

// Proxy adapts a typed function to the Subscriber contract. Build one
// with Bind.
type Proxy[T any] struct {
	owner any
	fn    func(context.Context, T) error

	mu       sync.Mutex
	bindings []binding
	released atomic.Bool
}

// Bind returns a proxy that delivers events of type T to fn on behalf of
// owner. It panics when fn is nil.
func Bind[T any](owner any, fn func(context.Context, T) error) *Proxy[T] {
	if fn == nil {
		panic("adapter: nil handler")
	}
	return &Proxy[T]{owner: owner, fn: fn}
}

// OnEvent implements eventbus.Subscriber. A value that is not a T is a
// subscriber fault.
func (p *Proxy[T]) OnEvent(ctx context.Context, event any) error {
	v, ok := event.(T)
	if !ok {
		return fmt.Errorf("%w: got %T", ErrPayloadType, event)
	}
	return p.fn(ctx, v)
}

// Proxied returns the owner the proxy subscribes on behalf of.
func (p *Proxy[T]) Proxied() any { return p.owner }

// ProxyUnsubscribed marks the proxy released. The service calls it after
// removing the proxy from a selector.
func (p *Proxy[T]) ProxyUnsubscribed() { p.released.Store(true) }

// Released reports whether the proxy has been released.
func (p *Proxy[T]) Released() bool { return p.released.Load() }

// Subscribe registers the proxy on bus under sel and records the binding
// for Unsubscribe.
func (p *Proxy[T]) Subscribe(bus eventbus.Bus, sel selector.Type) (bool, error) {
	if p.released.Load() {
		return false, ErrReleased
	}
	fresh, err := bus.Subscribe(sel, p)
	if err != nil {
		return false, err
	}
	p.mu.Lock()
	p.bindings = append(p.bindings, binding{bus: bus, sel: sel})
	p.mu.Unlock()
	return fresh, nil
}

// Unsubscribe releases every binding recorded by Subscribe.
func (p *Proxy[T]) Unsubscribe() {
	p.mu.Lock()
	bindings := p.bindings
	p.bindings = nil
	p.mu.Unlock()
	for _, b := range bindings {
		_, _ = b.bus.Unsubscribe(b.sel, p)
	}
}
