package eventbus

import (
	"reflect"
	"weak"

	"github.com/dshills/eventbus/selector"
)

// Ref is a strong or weak reference to a subscriber value. A strong
// reference keeps the subscriber alive while it is registered; a weak
// reference does not, and resolves to nil once the subscriber's owner has
// released it, after which the registry prunes the subscription on the
// next access. The zero Ref is invalid.
type Ref struct {
	value any
	load  func() any
}

// StrongRef returns a reference that keeps sub alive while subscribed.
func StrongRef(sub any) Ref {
	return Ref{value: sub}
}

// WeakRef returns a reference that does not keep sub alive. The registry
// resolves it to a strong reference for the duration of each dispatch
// snapshot, so the subscriber cannot be reclaimed mid-dispatch.
func WeakRef[T any](sub *T) Ref {
	if sub == nil {
		return Ref{}
	}
	wp := weak.Make(sub)
	return Ref{load: func() any {
		if p := wp.Value(); p != nil {
			return p
		}
		return nil
	}}
}

// get resolves the reference. Nil means the referent was reclaimed.
func (r Ref) get() any {
	if r.load != nil {
		return r.load()
	}
	return r.value
}

// valid reports whether the reference was built by StrongRef or WeakRef
// with a non-nil subscriber.
func (r Ref) valid() bool {
	return r.value != nil || r.load != nil
}

// resolve returns the referent, distinguishing a reference that was
// never valid from one whose target has been reclaimed.
func (r Ref) resolve() (any, error) {
	if !r.valid() {
		return nil, ErrNilSubscriber
	}
	v := r.get()
	if v == nil {
		return nil, ErrDeadRef
	}
	return v, nil
}

// SubscribeWeakly subscribes sub weakly under a type selector: the
// service does not keep sub alive, and the subscription vanishes after
// sub is reclaimed. The pointer-typed parameter is what lets the weak
// reference be created here, where the concrete type is known.
func SubscribeWeakly[T any, PT interface {
	*T
	Subscriber
}](b Bus, sel selector.Type, sub PT) (bool, error) {
	return b.SubscribeRef(sel, WeakRef((*T)(sub)))
}

// SubscribeTopicWeakly subscribes sub weakly under a topic selector.
func SubscribeTopicWeakly[T any, PT interface {
	*T
	TopicSubscriber
}](b Bus, sel selector.Topic, sub PT) (bool, error) {
	return b.SubscribeTopicRef(sel, WeakRef((*T)(sub)))
}

// SubscribeVetoWeakly subscribes veto weakly under a type selector.
func SubscribeVetoWeakly[T any, PT interface {
	*T
	VetoListener
}](b Bus, sel selector.Type, veto PT) (bool, error) {
	return b.SubscribeVetoRef(sel, WeakRef((*T)(veto)))
}

// SubscribeTopicVetoWeakly subscribes veto weakly under a topic selector.
func SubscribeTopicVetoWeakly[T any, PT interface {
	*T
	TopicVetoListener
}](b Bus, sel selector.Topic, veto PT) (bool, error) {
	return b.SubscribeTopicVetoRef(sel, WeakRef((*T)(veto)))
}

// identical reports whether a and b are the same subscriber. Comparable
// values compare with ==; funcs, maps, slices and channels compare by
// pointer; other uncomparable values never compare equal. Weak handles
// are resolved before this comparison, so a strong and a weak
// subscription of one object collapse to a single registry entry.
func identical(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	switch ta.Kind() {
	case reflect.Func, reflect.Map, reflect.Slice, reflect.Chan:
		return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
	}
	return false
}
