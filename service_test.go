package eventbus

import (
	"context"
	"reflect"
	"sync"
	"testing"

	"github.com/dshills/eventbus/selector"
)

type orderPlaced struct{ id int }

func (e orderPlaced) orderID() int { return e.id }

type orderShipped struct{ id int }

func (e orderShipped) orderID() int { return e.id }

// order is implemented by both event fixtures.
type order interface{ orderID() int }

// batch is a container fixture for descriptor publications.
type batch struct {
	orders []any
}

// recorder collects every delivery. Distinct instances are distinct
// subscribers.
type recorder struct {
	mu     sync.Mutex
	events []any
	topics []string
	err    error
}

func (r *recorder) OnEvent(_ context.Context, event any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

func (r *recorder) OnTopic(_ context.Context, topic string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics = append(r.topics, topic)
	r.events = append(r.events, payload)
	return r.err
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func (r *recorder) last() any {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return nil
	}
	return r.events[len(r.events)-1]
}

// gate is a veto listener fixture.
type gate struct {
	mu    sync.Mutex
	veto  bool
	calls int
}

func (g *gate) ShouldVeto(context.Context, any) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	return g.veto
}

func (g *gate) ShouldVetoTopic(context.Context, string, any) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	return g.veto
}

func (g *gate) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// tagged appends its tag on every delivery, for ordering assertions, and
// can be told to fail.
type tagged struct {
	tag      string
	out      *[]string
	err      error
	panicMsg string
}

func (s *tagged) OnEvent(context.Context, any) error {
	*s.out = append(*s.out, s.tag)
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	return s.err
}

func (s *tagged) OnTopic(context.Context, string, any) error {
	*s.out = append(*s.out, s.tag)
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	return s.err
}

// stamp is a comparable value-type subscriber.
type stamp struct{ n int }

func (stamp) OnEvent(context.Context, any) error { return nil }

// testProxy subscribes on behalf of target.
type testProxy struct {
	target   any
	released bool
}

func (p *testProxy) OnEvent(context.Context, any) error { return nil }
func (p *testProxy) Proxied() any                       { return p.target }
func (p *testProxy) ProxyUnsubscribed()                 { p.released = true }

func TestNew(t *testing.T) {
	bus := New()
	if bus == nil {
		t.Fatal("New() returned nil")
	}
}

func TestSubscribe_NilSubscriber(t *testing.T) {
	bus := New()
	if _, err := bus.Subscribe(selector.ExactFor[orderPlaced](), nil); err != ErrNilSubscriber {
		t.Errorf("expected ErrNilSubscriber, got %v", err)
	}
	if _, err := bus.SubscribeTopic(selector.Name("doc.saved"), nil); err != ErrNilSubscriber {
		t.Errorf("expected ErrNilSubscriber, got %v", err)
	}
}

func TestSubscribe_NilSelector(t *testing.T) {
	bus := New()
	if _, err := bus.Subscribe(nil, &recorder{}); err != ErrNilSelector {
		t.Errorf("expected ErrNilSelector, got %v", err)
	}
	if _, err := bus.SubscribeTopic(nil, &recorder{}); err != ErrNilSelector {
		t.Errorf("expected ErrNilSelector, got %v", err)
	}
}

func TestSubscribeVeto_NilArguments(t *testing.T) {
	bus := New()
	if _, err := bus.SubscribeVeto(selector.ExactFor[orderPlaced](), nil); err != ErrNilVetoListener {
		t.Errorf("expected ErrNilVetoListener, got %v", err)
	}
	if _, err := bus.SubscribeVeto(nil, &gate{}); err != ErrNilSelector {
		t.Errorf("expected ErrNilSelector, got %v", err)
	}
	if _, err := bus.SubscribeTopicVeto(selector.Name("doc.saved"), nil); err != ErrNilVetoListener {
		t.Errorf("expected ErrNilVetoListener, got %v", err)
	}
}

func TestSubscribe_New(t *testing.T) {
	bus := New()

	ok, err := bus.Subscribe(selector.ExactFor[orderPlaced](), &recorder{})
	if err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}
	if !ok {
		t.Error("expected a new subscription to report true")
	}
}

func TestSubscribe_ReplaceMovesToEnd(t *testing.T) {
	bus := New()
	sel := selector.ExactFor[orderPlaced]()

	var got []string
	a := &tagged{tag: "a", out: &got}
	b := &tagged{tag: "b", out: &got}
	for _, sub := range []*tagged{a, b} {
		if ok, err := bus.Subscribe(sel, sub); !ok || err != nil {
			t.Fatalf("Subscribe() = %v, %v", ok, err)
		}
	}

	ok, err := bus.Subscribe(sel, a)
	if err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}
	if ok {
		t.Error("expected a re-subscription to report false")
	}

	if err := bus.Publish(context.Background(), orderPlaced{id: 1}); err != nil {
		t.Fatalf("Publish() failed: %v", err)
	}
	want := []string{"b", "a"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("delivery order = %v, want %v", got, want)
	}
}

func TestSubscriberFunc_SharedLiteralIdentity(t *testing.T) {
	bus := New()
	sel := selector.ExactFor[orderPlaced]()

	var calls []string
	mk := func(tag string) SubscriberFunc {
		return func(context.Context, any) error {
			calls = append(calls, tag)
			return nil
		}
	}

	if ok, err := bus.Subscribe(sel, mk("a")); !ok || err != nil {
		t.Fatalf("Subscribe() = %v, %v", ok, err)
	}
	if ok, _ := bus.Subscribe(sel, mk("b")); ok {
		t.Error("expected funcs from one literal to share identity")
	}
	if n := len(bus.Subscribers(sel)); n != 1 {
		t.Fatalf("expected 1 subscriber, got %d", n)
	}

	if err := bus.Publish(context.Background(), orderPlaced{id: 1}); err != nil {
		t.Fatalf("Publish() failed: %v", err)
	}
	want := []string{"b"}
	if !reflect.DeepEqual(calls, want) {
		t.Errorf("calls = %v, want %v", calls, want)
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := New()
	sel := selector.ExactFor[orderPlaced]()
	sub := &recorder{}

	if _, err := bus.Subscribe(sel, sub); err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}

	removed, err := bus.Unsubscribe(sel, sub)
	if err != nil {
		t.Fatalf("Unsubscribe() failed: %v", err)
	}
	if !removed {
		t.Error("expected removal to report true")
	}

	removed, err = bus.Unsubscribe(sel, sub)
	if err != nil {
		t.Fatalf("Unsubscribe() failed: %v", err)
	}
	if removed {
		t.Error("expected removing an absent subscriber to report false")
	}

	if err := bus.Publish(context.Background(), orderPlaced{id: 1}); err != nil {
		t.Fatalf("Publish() failed: %v", err)
	}
	if sub.count() != 0 {
		t.Errorf("expected no deliveries after unsubscribe, got %d", sub.count())
	}
}

func TestUnsubscribe_IdentityNotEquality(t *testing.T) {
	bus := New()
	sel := selector.ExactFor[orderPlaced]()

	if _, err := bus.Subscribe(sel, &recorder{}); err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}
	if removed, _ := bus.Unsubscribe(sel, &recorder{}); removed {
		t.Error("expected a different instance not to match")
	}
}

func TestUnsubscribe_ComparableValueSubscriber(t *testing.T) {
	bus := New()
	sel := selector.ExactFor[orderPlaced]()

	if _, err := bus.Subscribe(sel, stamp{n: 1}); err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}
	if removed, _ := bus.Unsubscribe(sel, stamp{n: 2}); removed {
		t.Error("expected a different value not to match")
	}
	if removed, _ := bus.Unsubscribe(sel, stamp{n: 1}); !removed {
		t.Error("expected an equal value-type subscriber to match")
	}
}

func TestUnsubscribe_NilArguments(t *testing.T) {
	bus := New()
	sel := selector.ExactFor[orderPlaced]()

	if _, err := bus.Unsubscribe(nil, &recorder{}); err != ErrNilSelector {
		t.Errorf("expected ErrNilSelector, got %v", err)
	}
	if _, err := bus.Unsubscribe(sel, nil); err != ErrNilSubscriber {
		t.Errorf("expected ErrNilSubscriber, got %v", err)
	}
	if _, err := bus.UnsubscribeVeto(sel, nil); err != ErrNilVetoListener {
		t.Errorf("expected ErrNilVetoListener, got %v", err)
	}
}

func TestUnsubscribe_RemovesProxyForTarget(t *testing.T) {
	bus := New()
	sel := selector.ExactFor[orderPlaced]()

	owner := &recorder{}
	p := &testProxy{target: owner}
	if _, err := bus.Subscribe(sel, p); err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}

	removed, err := bus.Unsubscribe(sel, owner)
	if err != nil {
		t.Fatalf("Unsubscribe() failed: %v", err)
	}
	if !removed {
		t.Error("expected the proxy to be removed for its target")
	}
	if !p.released {
		t.Error("expected ProxyUnsubscribed to fire")
	}
	if n := len(bus.Subscribers(sel)); n != 0 {
		t.Errorf("expected no remaining subscribers, got %d", n)
	}
}

func TestUnsubscribe_ProxyByOwnIdentity(t *testing.T) {
	bus := New()
	sel := selector.ExactFor[orderPlaced]()

	p := &testProxy{target: &recorder{}}
	if _, err := bus.Subscribe(sel, p); err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}

	removed, err := bus.Unsubscribe(sel, p)
	if err != nil {
		t.Fatalf("Unsubscribe() failed: %v", err)
	}
	if !removed {
		t.Error("expected the proxy to be removed by its own identity")
	}
	if !p.released {
		t.Error("expected ProxyUnsubscribed to fire")
	}
}

func TestSubscribeTopic_ExactAndPattern(t *testing.T) {
	bus := New()

	exact := &recorder{}
	pattern := &recorder{}
	if _, err := bus.SubscribeTopic(selector.Name("doc.saved"), exact); err != nil {
		t.Fatalf("SubscribeTopic() failed: %v", err)
	}
	if _, err := bus.SubscribeTopic(selector.MustPattern(`doc\..*`), pattern); err != nil {
		t.Fatalf("SubscribeTopic() failed: %v", err)
	}

	ctx := context.Background()
	if err := bus.PublishTopic(ctx, "doc.saved", 1); err != nil {
		t.Fatalf("PublishTopic() failed: %v", err)
	}
	if err := bus.PublishTopic(ctx, "doc.closed", 2); err != nil {
		t.Fatalf("PublishTopic() failed: %v", err)
	}

	if exact.count() != 1 {
		t.Errorf("expected 1 exact delivery, got %d", exact.count())
	}
	if pattern.count() != 2 {
		t.Errorf("expected 2 pattern deliveries, got %d", pattern.count())
	}
}

func TestUnsubscribeTopic(t *testing.T) {
	bus := New()
	pat := selector.MustPattern(`doc\..*`)
	sub := &recorder{}

	if _, err := bus.SubscribeTopic(pat, sub); err != nil {
		t.Fatalf("SubscribeTopic() failed: %v", err)
	}
	removed, err := bus.UnsubscribeTopic(pat, sub)
	if err != nil {
		t.Fatalf("UnsubscribeTopic() failed: %v", err)
	}
	if !removed {
		t.Error("expected removal to report true")
	}

	if err := bus.PublishTopic(context.Background(), "doc.saved", nil); err != nil {
		t.Fatalf("PublishTopic() failed: %v", err)
	}
	if sub.count() != 0 {
		t.Errorf("expected no deliveries after unsubscribe, got %d", sub.count())
	}
}

func TestSubscribers_SnapshotInOrder(t *testing.T) {
	bus := New()
	sel := selector.AssignableFor[order]()

	a, b := &recorder{}, &recorder{}
	for _, sub := range []*recorder{a, b} {
		if ok, err := bus.Subscribe(sel, sub); !ok || err != nil {
			t.Fatalf("Subscribe() = %v, %v", ok, err)
		}
	}

	subs := bus.Subscribers(sel)
	if len(subs) != 2 {
		t.Fatalf("expected 2 subscribers, got %d", len(subs))
	}
	if subs[0] != a || subs[1] != b {
		t.Error("expected subscribers in subscription order")
	}

	if n := len(bus.Subscribers(selector.ExactFor[order]())); n != 0 {
		t.Errorf("expected a distinct selector to list nothing, got %d", n)
	}
	if subs := bus.Subscribers(nil); subs != nil {
		t.Errorf("expected nil for a nil selector, got %v", subs)
	}
}

func TestVetoListeners_Snapshot(t *testing.T) {
	bus := New()
	sel := selector.ExactFor[orderPlaced]()

	g := &gate{}
	if ok, err := bus.SubscribeVeto(sel, g); !ok || err != nil {
		t.Fatalf("SubscribeVeto() = %v, %v", ok, err)
	}

	vetos := bus.VetoListeners(sel)
	if len(vetos) != 1 || vetos[0] != g {
		t.Errorf("expected the registered veto listener, got %v", vetos)
	}

	removed, err := bus.UnsubscribeVeto(sel, g)
	if err != nil {
		t.Fatalf("UnsubscribeVeto() failed: %v", err)
	}
	if !removed {
		t.Error("expected removal to report true")
	}
	if n := len(bus.VetoListeners(sel)); n != 0 {
		t.Errorf("expected no remaining veto listeners, got %d", n)
	}
}

func TestTopicIntrospection(t *testing.T) {
	bus := New()
	name := selector.Name("doc.saved")
	pat := selector.MustPattern(`doc\..*`)

	sub := &recorder{}
	g := &gate{}
	if _, err := bus.SubscribeTopic(name, sub); err != nil {
		t.Fatalf("SubscribeTopic() failed: %v", err)
	}
	if _, err := bus.SubscribeTopicVeto(pat, g); err != nil {
		t.Fatalf("SubscribeTopicVeto() failed: %v", err)
	}

	if n := len(bus.TopicSubscribers(name)); n != 1 {
		t.Errorf("expected 1 topic subscriber, got %d", n)
	}
	if n := len(bus.TopicSubscribers(pat)); n != 0 {
		t.Errorf("expected the pattern selector to list only its own subscribers, got %d", n)
	}
	if n := len(bus.TopicVetoListeners(pat)); n != 1 {
		t.Errorf("expected 1 topic veto listener, got %d", n)
	}

	removed, err := bus.UnsubscribeTopicVeto(pat, g)
	if err != nil {
		t.Fatalf("UnsubscribeTopicVeto() failed: %v", err)
	}
	if !removed {
		t.Error("expected removal to report true")
	}
	if n := len(bus.TopicVetoListeners(pat)); n != 0 {
		t.Errorf("expected no remaining topic veto listeners, got %d", n)
	}
}

func TestClearAllSubscribers(t *testing.T) {
	bus := New()
	sub := &recorder{}
	g := &gate{veto: true}

	if _, err := bus.Subscribe(selector.ExactFor[orderPlaced](), sub); err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}
	if _, err := bus.SubscribeTopic(selector.Name("doc.saved"), sub); err != nil {
		t.Fatalf("SubscribeTopic() failed: %v", err)
	}
	if _, err := bus.SubscribeVeto(selector.AssignableFor[order](), g); err != nil {
		t.Fatalf("SubscribeVeto() failed: %v", err)
	}

	bus.ClearAllSubscribers()

	if n := len(bus.Subscribers(selector.ExactFor[orderPlaced]())); n != 0 {
		t.Errorf("expected no subscribers, got %d", n)
	}
	if n := len(bus.TopicSubscribers(selector.Name("doc.saved"))); n != 0 {
		t.Errorf("expected no topic subscribers, got %d", n)
	}
	if n := len(bus.VetoListeners(selector.AssignableFor[order]())); n != 0 {
		t.Errorf("expected no veto listeners, got %d", n)
	}

	ctx := context.Background()
	if err := bus.Publish(ctx, orderPlaced{id: 1}); err != nil {
		t.Fatalf("Publish() failed: %v", err)
	}
	if err := bus.PublishTopic(ctx, "doc.saved", nil); err != nil {
		t.Fatalf("PublishTopic() failed: %v", err)
	}
	if sub.count() != 0 {
		t.Errorf("expected no deliveries after clear, got %d", sub.count())
	}
	if g.callCount() != 0 {
		t.Errorf("expected no veto calls after clear, got %d", g.callCount())
	}
}
