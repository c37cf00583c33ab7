package eventbus

import (
	"context"
	"reflect"

	"github.com/dshills/eventbus/selector"
)

// Bus is the event service interface. All methods are safe for concurrent
// use; subscriber callbacks may re-enter any of them without deadlocking.
type Bus interface {
	// Subscriptions. Subscribe registers strongly: the service keeps the
	// subscriber alive. SubscribeRef accepts a strong or weak reference
	// (see StrongRef, WeakRef and the SubscribeWeakly helpers). All
	// subscribe calls report true when the subscription is new and false
	// when it replaced an existing subscription of the same subscriber,
	// which moves it to the end of the selector's list and adopts the new
	// reference strength. Unsubscribe removes by subscriber identity,
	// including proxies whose proxied object is the target.
	Subscribe(sel selector.Type, sub Subscriber) (bool, error)
	SubscribeTopic(sel selector.Topic, sub TopicSubscriber) (bool, error)
	SubscribeRef(sel selector.Type, ref Ref) (bool, error)
	SubscribeTopicRef(sel selector.Topic, ref Ref) (bool, error)
	Unsubscribe(sel selector.Type, sub any) (bool, error)
	UnsubscribeTopic(sel selector.Topic, sub any) (bool, error)

	// Veto listeners run before caching and dispatch; any one returning
	// true stops the publication.
	SubscribeVeto(sel selector.Type, veto VetoListener) (bool, error)
	SubscribeTopicVeto(sel selector.Topic, veto TopicVetoListener) (bool, error)
	SubscribeVetoRef(sel selector.Type, ref Ref) (bool, error)
	SubscribeTopicVetoRef(sel selector.Topic, ref Ref) (bool, error)
	UnsubscribeVeto(sel selector.Type, veto any) (bool, error)
	UnsubscribeTopicVeto(sel selector.Topic, veto any) (bool, error)

	// Publishing is synchronous: veto checks and subscriber callbacks run
	// in-line on the calling goroutine, and the call returns after the
	// pipeline completes or a veto short-circuits it. PublishAs attaches
	// a generic type descriptor so parameterized subscriptions can match.
	Publish(ctx context.Context, event any) error
	PublishAs(ctx context.Context, desc selector.Descriptor, event any) error
	PublishTopic(ctx context.Context, topic string, payload any) error

	// Introspection. The accessors return point-in-time snapshots with
	// the same resolution semantics as dispatch.
	Subscribers(sel selector.Type) []Subscriber
	TopicSubscribers(sel selector.Topic) []TopicSubscriber
	VetoListeners(sel selector.Type) []VetoListener
	TopicVetoListeners(sel selector.Topic) []TopicVetoListener
	ClearAllSubscribers()
	Stats() Stats

	// Cache. Sizes resolve lazily on the next publish to the key; see
	// the package documentation for the resolution rules.
	SetDefaultCacheSize(size int)
	DefaultCacheSize() int
	SetCacheSizeFor(t reflect.Type, size int)
	SetCacheSizeForTopic(topic string, size int)
	SetCacheSizeForPattern(p selector.TopicPattern, size int)
	LastEvent(t reflect.Type) any
	EventHistory(t reflect.Type) []any
	LastTopicPayload(topic string) any
	TopicPayloadHistory(topic string) []any
	ClearCacheFor(t reflect.Type)
	ClearCacheForTopic(topic string)
	ClearCacheForPattern(p selector.TopicPattern)
	ClearCache()
}
