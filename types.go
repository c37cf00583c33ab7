package eventbus

import "context"

// Subscriber receives typed event publications.
type Subscriber interface {
	// OnEvent handles one published event. The event parameter is
	// type-erased; subscribers type-assert to their selector's type.
	// A non-nil error is a subscriber fault: reported through the
	// fault handler, never propagated to the publisher.
	OnEvent(ctx context.Context, event any) error
}

// SubscriberFunc is a function adapter for Subscriber.
//
// Two func values created from the same function literal share identity
// for re-subscription and unsubscription. Subscribers that must stay
// distinct should be distinct pointer values (see the adapter package).
type SubscriberFunc func(ctx context.Context, event any) error

// OnEvent implements the Subscriber interface.
func (f SubscriberFunc) OnEvent(ctx context.Context, event any) error {
	return f(ctx, event)
}

// TopicSubscriber receives named-topic publications.
type TopicSubscriber interface {
	// OnTopic handles one payload published on a topic. A non-nil
	// error is a subscriber fault.
	OnTopic(ctx context.Context, topic string, payload any) error
}

// TopicSubscriberFunc is a function adapter for TopicSubscriber.
type TopicSubscriberFunc func(ctx context.Context, topic string, payload any) error

// OnTopic implements the TopicSubscriber interface.
func (f TopicSubscriberFunc) OnTopic(ctx context.Context, topic string, payload any) error {
	return f(ctx, topic, payload)
}

// VetoListener gates typed publications. All matching veto listeners run
// before caching and dispatch; the first to return true stops the
// publication.
type VetoListener interface {
	// ShouldVeto reports whether the publication must be dropped.
	// A panicking veto listener neither vetoes nor aborts the scan.
	ShouldVeto(ctx context.Context, event any) bool
}

// VetoFunc is a function adapter for VetoListener.
type VetoFunc func(ctx context.Context, event any) bool

// ShouldVeto implements the VetoListener interface.
func (f VetoFunc) ShouldVeto(ctx context.Context, event any) bool {
	return f(ctx, event)
}

// TopicVetoListener gates named-topic publications.
type TopicVetoListener interface {
	// ShouldVetoTopic reports whether the publication must be dropped.
	ShouldVetoTopic(ctx context.Context, topic string, payload any) bool
}

// TopicVetoFunc is a function adapter for TopicVetoListener.
type TopicVetoFunc func(ctx context.Context, topic string, payload any) bool

// ShouldVetoTopic implements the TopicVetoListener interface.
func (f TopicVetoFunc) ShouldVetoTopic(ctx context.Context, topic string, payload any) bool {
	return f(ctx, topic, payload)
}

// ProxySubscriber is implemented by subscribers that stand in for another
// object (see the adapter package). Unsubscribing the proxied object also
// removes the proxy; ProxyUnsubscribed fires after removal, outside the
// registry lock.
type ProxySubscriber interface {
	// Proxied returns the object the proxy subscribes on behalf of.
	Proxied() any

	// ProxyUnsubscribed is called once the proxy has been removed.
	ProxyUnsubscribed()
}

// Fault describes one isolated subscriber or veto-listener failure.
type Fault struct {
	// Subscriber is the subscriber or veto listener that failed.
	Subscriber any

	// Event is the published event or topic payload.
	Event any

	// Topic is the topic name for topic publications, empty otherwise.
	Topic string

	// Veto is true when the failure came from a veto listener.
	Veto bool

	// Err is the returned error, or a *PanicError when the call panicked.
	Err error
}

// FaultHandler receives isolated dispatch failures. The default handler
// logs them at warn level through the configured logger.
type FaultHandler func(Fault)

// Stats contains event service counters.
type Stats struct {
	// Published is the number of accepted publish calls, including
	// vetoed ones and timing-record publications.
	Published uint64

	// Vetoed is the number of publications stopped by a veto listener.
	Vetoed uint64

	// Delivered is the number of subscriber invocations, including
	// faulted ones.
	Delivered uint64

	// Faults is the number of subscriber and veto-listener failures.
	Faults uint64

	// Timings is the number of timing records published.
	Timings uint64
}
