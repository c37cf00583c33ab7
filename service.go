package eventbus

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/dshills/eventbus/selector"
)

// service is the default Bus implementation.
type service struct {
	reg   *registry
	cache *cache

	log          zerolog.Logger
	faultHandler FaultHandler
	threshold    time.Duration

	// Stats
	published atomic.Uint64
	vetoed    atomic.Uint64
	delivered atomic.Uint64
	faults    atomic.Uint64
	timings   atomic.Uint64
}

// New creates an event service with the given options.
func New(opts ...Option) Bus {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &service{
		reg:       newRegistry(),
		cache:     newCache(cfg.defaultCacheSize),
		log:       cfg.logger,
		threshold: cfg.timingThreshold,
	}
	s.faultHandler = cfg.faultHandler
	if s.faultHandler == nil {
		s.faultHandler = s.logFault
	}
	if cfg.timingLog {
		_, _ = s.Subscribe(selector.ExactFor[*TimingRecord](), &timingLogger{log: cfg.logger})
	}
	return s
}

// logFault is the default fault handler.
func (s *service) logFault(f Fault) {
	evt := s.log.Warn().
		Str("subscriber", fmt.Sprintf("%T", f.Subscriber)).
		Bool("veto", f.Veto).
		Err(f.Err)
	if f.Topic != "" {
		evt = evt.Str("topic", f.Topic)
	} else {
		evt = evt.Str("event", fmt.Sprintf("%T", f.Event))
	}
	evt.Msg("subscriber fault")
}

// reportFault invokes the fault handler, keeping the pipeline alive when
// the handler itself panics.
func (s *service) reportFault(f Fault) {
	s.faults.Add(1)
	defer func() {
		// Silently recover if the fault handler panics
		_ = recover()
	}()
	s.faultHandler(f)
}

// notifyProxies fires removal hooks outside the registry lock, so hooks
// may call back into the service.
func notifyProxies(proxies []ProxySubscriber) {
	for _, p := range proxies {
		p.ProxyUnsubscribed()
	}
}

// Subscribe registers sub strongly under a type selector.
func (s *service) Subscribe(sel selector.Type, sub Subscriber) (bool, error) {
	if sub == nil {
		return false, ErrNilSubscriber
	}
	return s.SubscribeRef(sel, StrongRef(sub))
}

// SubscribeRef registers a strong or weak subscriber reference under a
// type selector.
func (s *service) SubscribeRef(sel selector.Type, ref Ref) (bool, error) {
	if sel == nil {
		return false, ErrNilSelector
	}
	v, err := ref.resolve()
	if err != nil {
		return false, err
	}
	if _, ok := v.(Subscriber); !ok {
		return false, fmt.Errorf("%w: %T does not implement Subscriber", ErrInvalidSubscriber, v)
	}
	return s.reg.addType(s.reg.subs, sel, ref, v), nil
}

// SubscribeTopic registers sub strongly under a topic selector.
func (s *service) SubscribeTopic(sel selector.Topic, sub TopicSubscriber) (bool, error) {
	if sub == nil {
		return false, ErrNilSubscriber
	}
	return s.SubscribeTopicRef(sel, StrongRef(sub))
}

// SubscribeTopicRef registers a strong or weak subscriber reference under
// a topic selector.
func (s *service) SubscribeTopicRef(sel selector.Topic, ref Ref) (bool, error) {
	if sel == nil {
		return false, ErrNilSelector
	}
	v, err := ref.resolve()
	if err != nil {
		return false, err
	}
	if _, ok := v.(TopicSubscriber); !ok {
		return false, fmt.Errorf("%w: %T does not implement TopicSubscriber", ErrInvalidSubscriber, v)
	}
	return s.reg.addTopic(s.reg.subs, sel, ref, v), nil
}

// SubscribeVeto registers veto strongly under a type selector.
func (s *service) SubscribeVeto(sel selector.Type, veto VetoListener) (bool, error) {
	if veto == nil {
		return false, ErrNilVetoListener
	}
	return s.SubscribeVetoRef(sel, StrongRef(veto))
}

// SubscribeVetoRef registers a strong or weak veto-listener reference
// under a type selector.
func (s *service) SubscribeVetoRef(sel selector.Type, ref Ref) (bool, error) {
	if sel == nil {
		return false, ErrNilSelector
	}
	v, err := ref.resolve()
	if err != nil {
		return false, err
	}
	if _, ok := v.(VetoListener); !ok {
		return false, fmt.Errorf("%w: %T does not implement VetoListener", ErrInvalidVetoListener, v)
	}
	return s.reg.addType(s.reg.vetos, sel, ref, v), nil
}

// SubscribeTopicVeto registers veto strongly under a topic selector.
func (s *service) SubscribeTopicVeto(sel selector.Topic, veto TopicVetoListener) (bool, error) {
	if veto == nil {
		return false, ErrNilVetoListener
	}
	return s.SubscribeTopicVetoRef(sel, StrongRef(veto))
}

// SubscribeTopicVetoRef registers a strong or weak veto-listener
// reference under a topic selector.
func (s *service) SubscribeTopicVetoRef(sel selector.Topic, ref Ref) (bool, error) {
	if sel == nil {
		return false, ErrNilSelector
	}
	v, err := ref.resolve()
	if err != nil {
		return false, err
	}
	if _, ok := v.(TopicVetoListener); !ok {
		return false, fmt.Errorf("%w: %T does not implement TopicVetoListener", ErrInvalidVetoListener, v)
	}
	return s.reg.addTopic(s.reg.vetos, sel, ref, v), nil
}

// Unsubscribe removes sub, or any proxy created for it, from a type
// selector. It reports whether a subscription was removed.
func (s *service) Unsubscribe(sel selector.Type, sub any) (bool, error) {
	if sel == nil {
		return false, ErrNilSelector
	}
	if sub == nil {
		return false, ErrNilSubscriber
	}
	removed, proxies := s.reg.removeType(s.reg.subs, sel, sub)
	notifyProxies(proxies)
	return removed, nil
}

// UnsubscribeTopic removes sub, or any proxy created for it, from a topic
// selector.
func (s *service) UnsubscribeTopic(sel selector.Topic, sub any) (bool, error) {
	if sel == nil {
		return false, ErrNilSelector
	}
	if sub == nil {
		return false, ErrNilSubscriber
	}
	removed, proxies := s.reg.removeTopic(s.reg.subs, sel, sub)
	notifyProxies(proxies)
	return removed, nil
}

// UnsubscribeVeto removes veto, or any proxy created for it, from a type
// selector.
func (s *service) UnsubscribeVeto(sel selector.Type, veto any) (bool, error) {
	if sel == nil {
		return false, ErrNilSelector
	}
	if veto == nil {
		return false, ErrNilVetoListener
	}
	removed, proxies := s.reg.removeType(s.reg.vetos, sel, veto)
	notifyProxies(proxies)
	return removed, nil
}

// UnsubscribeTopicVeto removes veto, or any proxy created for it, from a
// topic selector.
func (s *service) UnsubscribeTopicVeto(sel selector.Topic, veto any) (bool, error) {
	if sel == nil {
		return false, ErrNilSelector
	}
	if veto == nil {
		return false, ErrNilVetoListener
	}
	removed, proxies := s.reg.removeTopic(s.reg.vetos, sel, veto)
	notifyProxies(proxies)
	return removed, nil
}

// Subscribers returns the subscribers registered under one type selector,
// in subscription order.
func (s *service) Subscribers(sel selector.Type) []Subscriber {
	if sel == nil {
		return nil
	}
	vals := s.reg.listType(s.reg.subs, sel)
	out := make([]Subscriber, 0, len(vals))
	for _, v := range vals {
		if sub, ok := v.(Subscriber); ok {
			out = append(out, sub)
		}
	}
	return out
}

// TopicSubscribers returns the subscribers registered under one topic
// selector, in subscription order.
func (s *service) TopicSubscribers(sel selector.Topic) []TopicSubscriber {
	if sel == nil {
		return nil
	}
	vals := s.reg.listTopic(s.reg.subs, sel)
	out := make([]TopicSubscriber, 0, len(vals))
	for _, v := range vals {
		if sub, ok := v.(TopicSubscriber); ok {
			out = append(out, sub)
		}
	}
	return out
}

// VetoListeners returns the veto listeners registered under one type
// selector, in subscription order.
func (s *service) VetoListeners(sel selector.Type) []VetoListener {
	if sel == nil {
		return nil
	}
	vals := s.reg.listType(s.reg.vetos, sel)
	out := make([]VetoListener, 0, len(vals))
	for _, v := range vals {
		if veto, ok := v.(VetoListener); ok {
			out = append(out, veto)
		}
	}
	return out
}

// TopicVetoListeners returns the veto listeners registered under one
// topic selector, in subscription order.
func (s *service) TopicVetoListeners(sel selector.Topic) []TopicVetoListener {
	if sel == nil {
		return nil
	}
	vals := s.reg.listTopic(s.reg.vetos, sel)
	out := make([]TopicVetoListener, 0, len(vals))
	for _, v := range vals {
		if veto, ok := v.(TopicVetoListener); ok {
			out = append(out, veto)
		}
	}
	return out
}

// ClearAllSubscribers empties every selector map, subscribers and veto
// listeners alike, under one registry lock acquisition.
func (s *service) ClearAllSubscribers() {
	s.reg.clearAll()
}

// Stats returns a snapshot of the service counters.
func (s *service) Stats() Stats {
	return Stats{
		Published: s.published.Load(),
		Vetoed:    s.vetoed.Load(),
		Delivered: s.delivered.Load(),
		Faults:    s.faults.Load(),
		Timings:   s.timings.Load(),
	}
}
