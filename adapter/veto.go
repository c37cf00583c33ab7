package adapter

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/dshills/eventbus"
	"github.com/dshills/eventbus/selector"
)

// VetoProxy adapts a typed predicate to the VetoListener contract.
// Build one with BindVeto.
type VetoProxy[T any] struct {
	owner any
	fn    func(context.Context, T) bool

	mu       sync.Mutex
	bindings []binding
	released atomic.Bool
}

// BindVeto returns a proxy that consults fn for events of type T on
// behalf of owner. It panics when fn is nil.
func BindVeto[T any](owner any, fn func(context.Context, T) bool) *VetoProxy[T] {
	if fn == nil {
		panic("adapter: nil handler")
	}
	return &VetoProxy[T]{owner: owner, fn: fn}
}

// ShouldVeto implements eventbus.VetoListener. A value that is not a T
// does not veto.
func (p *VetoProxy[T]) ShouldVeto(ctx context.Context, event any) bool {
	v, ok := event.(T)
	if !ok {
		return false
	}
	return p.fn(ctx, v)
}

// Proxied returns the owner the proxy subscribes on behalf of.
func (p *VetoProxy[T]) Proxied() any { return p.owner }

// ProxyUnsubscribed marks the proxy released.
func (p *VetoProxy[T]) ProxyUnsubscribed() { p.released.Store(true) }

// Released reports whether the proxy has been released.
func (p *VetoProxy[T]) Released() bool { return p.released.Load() }

// Subscribe registers the proxy on bus under sel and records the binding
// for Unsubscribe.
func (p *VetoProxy[T]) Subscribe(bus eventbus.Bus, sel selector.Type) (bool, error) {
	if p.released.Load() {
		return false, ErrReleased
	}
	fresh, err := bus.SubscribeVeto(sel, p)
	if err != nil {
		return false, err
	}
	p.mu.Lock()
	p.bindings = append(p.bindings, binding{bus: bus, sel: sel})
	p.mu.Unlock()
	return fresh, nil
}

// Unsubscribe releases every binding recorded by Subscribe.
func (p *VetoProxy[T]) Unsubscribe() {
	p.mu.Lock()
	bindings := p.bindings
	p.bindings = nil
	p.mu.Unlock()
	for _, b := range bindings {
		_, _ = b.bus.UnsubscribeVeto(b.sel, p)
	}
}
