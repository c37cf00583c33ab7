package eventbus

import (
	"context"
	"fmt"
	"reflect"

	"github.com/google/uuid"

	"github.com/dshills/eventbus/internal/dispatch"
	"github.com/dshills/eventbus/selector"
)

// Publish delivers event to every matching typed subscription. Matching
// uses the event's runtime type; parameterized subscriptions never match
// a plain Publish.
func (s *service) Publish(ctx context.Context, event any) error {
	if event == nil {
		return ErrNilEvent
	}
	s.publishEvent(ctx, event, nil)
	return nil
}

// PublishAs delivers event together with a generic type descriptor, so
// parameterized subscriptions can match in addition to exact and
// assignable ones. The event must be assignable to the descriptor's raw
// type.
func (s *service) PublishAs(ctx context.Context, desc selector.Descriptor, event any) error {
	if event == nil {
		return ErrNilEvent
	}
	if err := ValidateDescriptor(desc, event); err != nil {
		return err
	}
	s.publishEvent(ctx, event, &desc)
	return nil
}

// PublishTopic delivers payload to every subscription on the named
// topic, exact names first and then matching patterns.
func (s *service) PublishTopic(ctx context.Context, topic string, payload any) error {
	if topic == "" {
		return ErrEmptyTopic
	}
	s.publishTopic(ctx, topic, payload)
	return nil
}

// ValidateDescriptor reports why desc cannot describe event, or nil.
// PublishAs performs the same validation; decorators that defer a
// publication can validate eagerly with it.
func ValidateDescriptor(desc selector.Descriptor, event any) error {
	if desc.Raw == nil {
		return fmt.Errorf("%w: nil raw type", ErrInvalidDescriptor)
	}
	for i, arg := range desc.Args {
		if arg == nil {
			return fmt.Errorf("%w: nil type argument at position %d", ErrInvalidDescriptor, i)
		}
	}
	if et := reflect.TypeOf(event); !et.AssignableTo(desc.Raw) {
		return fmt.Errorf("%w: %s is not assignable to %s", ErrInvalidDescriptor, et, desc.Raw)
	}
	return nil
}

// publishEvent runs the typed pipeline: veto scan, cache update,
// dispatch. Each stage works on a snapshot taken under the registry
// lock and then calls out lock-free, so callbacks may re-enter the
// service.
func (s *service) publishEvent(ctx context.Context, event any, desc *selector.Descriptor) {
	s.published.Add(1)
	et := reflect.TypeOf(event)

	for _, v := range s.reg.snapshotType(s.reg.vetos, et, desc) {
		listener := v.(VetoListener)
		vetoed, res := dispatch.CallVeto(func() bool {
			return listener.ShouldVeto(ctx, event)
		})
		s.afterCall(ctx, res, v, true, event, "")
		if vetoed {
			s.vetoed.Add(1)
			return
		}
	}

	s.cache.addType(et, event)

	for _, v := range s.reg.snapshotType(s.reg.subs, et, desc) {
		sub := v.(Subscriber)
		res := dispatch.Call(func() error {
			return sub.OnEvent(ctx, event)
		})
		s.delivered.Add(1)
		s.afterCall(ctx, res, v, false, event, "")
	}
}

// publishTopic mirrors publishEvent for named-topic publications.
func (s *service) publishTopic(ctx context.Context, topic string, payload any) {
	s.published.Add(1)

	for _, v := range s.reg.snapshotTopic(s.reg.vetos, topic) {
		listener := v.(TopicVetoListener)
		vetoed, res := dispatch.CallVeto(func() bool {
			return listener.ShouldVetoTopic(ctx, topic, payload)
		})
		s.afterCall(ctx, res, v, true, payload, topic)
		if vetoed {
			s.vetoed.Add(1)
			return
		}
	}

	s.cache.addTopic(topic, payload)

	for _, v := range s.reg.snapshotTopic(s.reg.subs, topic) {
		sub := v.(TopicSubscriber)
		res := dispatch.Call(func() error {
			return sub.OnTopic(ctx, topic, payload)
		})
		s.delivered.Add(1)
		s.afterCall(ctx, res, v, false, payload, topic)
	}
}

// afterCall handles the outcome of one veto or subscriber call. Faults
// go to the fault handler. Calls slower than the timing threshold
// publish a *TimingRecord through the service itself, so a slow record
// consumer generates further records; keep record consumers fast.
func (s *service) afterCall(ctx context.Context, res dispatch.Result, callee any, veto bool, event any, topic string) {
	if res.Faulted() {
		err := res.Err
		if res.Panicked {
			err = &PanicError{Value: res.PanicValue, Stack: string(res.PanicStack)}
		}
		s.reportFault(Fault{
			Subscriber: callee,
			Event:      event,
			Topic:      topic,
			Veto:       veto,
			Err:        err,
		})
	}

	if s.threshold <= 0 || res.Duration() <= s.threshold {
		return
	}
	rec := &TimingRecord{
		ID:        uuid.NewString(),
		Start:     res.Start,
		End:       res.End,
		Threshold: s.threshold,
		Event:     event,
		Topic:     topic,
	}
	if veto {
		rec.VetoListener = callee
	} else {
		rec.Subscriber = callee
	}
	s.timings.Add(1)
	s.publishEvent(ctx, rec, nil)
}
