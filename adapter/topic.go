package adapter

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dshills/eventbus"
	"github.com/dshills/eventbus/selector"
)

type topicBinding struct {
	bus eventbus.Bus
	sel selector.Topic
}

// TopicProxy adapts a typed function to the TopicSubscriber contract.
// Build one with BindTopic.
type TopicProxy[T any] struct {
	owner any
	fn    func(context.Context, string, T) error

	mu       sync.Mutex
	bindings []topicBinding
	released atomic.Bool
}

// BindTopic returns a proxy that delivers topic payloads of type T to fn
// on behalf of owner. It panics when fn is nil.
func BindTopic[T any](owner any, fn func(context.Context, string, T) error) *TopicProxy[T] {
	if fn == nil {
		panic("adapter: nil handler")
	}
	return &TopicProxy[T]{owner: owner, fn: fn}
}

// OnTopic implements eventbus.TopicSubscriber. A payload that is not a T
// is a subscriber fault.
func (p *TopicProxy[T]) OnTopic(ctx context.Context, topic string, payload any) error {
	v, ok := payload.(T)
	if !ok {
		return fmt.Errorf("%w: got %T on %s", ErrPayloadType, payload, topic)
	}
	return p.fn(ctx, topic, v)
}

// Proxied returns the owner the proxy subscribes on behalf of.
func (p *TopicProxy[T]) Proxied() any { return p.owner }

// ProxyUnsubscribed marks the proxy released.
func (p *TopicProxy[T]) ProxyUnsubscribed() { p.released.Store(true) }

// Released reports whether the proxy has been released.
func (p *TopicProxy[T]) Released() bool { return p.released.Load() }

// Subscribe registers the proxy on bus under sel and records the binding
// for Unsubscribe.
func (p *TopicProxy[T]) Subscribe(bus eventbus.Bus, sel selector.Topic) (bool, error) {
	if p.released.Load() {
		return false, ErrReleased
	}
	fresh, err := bus.SubscribeTopic(sel, p)
	if err != nil {
		return false, err
	}
	p.mu.Lock()
	p.bindings = append(p.bindings, topicBinding{bus: bus, sel: sel})
	p.mu.Unlock()
	return fresh, nil
}

// Unsubscribe releases every binding recorded by Subscribe.
func (p *TopicProxy[T]) Unsubscribe() {
	p.mu.Lock()
	bindings := p.bindings
	p.bindings = nil
	p.mu.Unlock()
	for _, b := range bindings {
		_, _ = b.bus.UnsubscribeTopic(b.sel, p)
	}
}
