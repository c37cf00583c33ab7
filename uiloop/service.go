package uiloop

import (
	"context"

	"github.com/dshills/eventbus"
	"github.com/dshills/eventbus/selector"
)

// Service decorates a Bus so publications always dispatch on a Loop's
// goroutine. Calls made from the loop run inline; calls from other
// goroutines validate their arguments, post the publication, and return
// after the hand-off. Every other Bus method delegates directly to the
// wrapped bus.
type Service struct {
	eventbus.Bus
	loop *Loop
}

// Wrap returns a Bus whose publications run on loop.
func Wrap(bus eventbus.Bus, loop *Loop) *Service {
	return &Service{Bus: bus, loop: loop}
}

// Loop returns the loop the service publishes on.
func (s *Service) Loop() *Loop { return s.loop }

// Publish dispatches event on the loop goroutine. Off-loop calls return
// once the publication is queued; the posted call runs with the loop's
// context, not the caller's.
func (s *Service) Publish(ctx context.Context, event any) error {
	if event == nil {
		return eventbus.ErrNilEvent
	}
	if OnLoop(ctx, s.loop) {
		return s.Bus.Publish(ctx, event)
	}
	return s.loop.Post(func(loopCtx context.Context) {
		_ = s.Bus.Publish(loopCtx, event)
	})
}

// PublishAs dispatches a descriptor publication on the loop goroutine.
// The descriptor is validated before queueing, so an invalid call fails
// on the caller's side.
func (s *Service) PublishAs(ctx context.Context, desc selector.Descriptor, event any) error {
	if event == nil {
		return eventbus.ErrNilEvent
	}
	if err := eventbus.ValidateDescriptor(desc, event); err != nil {
		return err
	}
	if OnLoop(ctx, s.loop) {
		return s.Bus.PublishAs(ctx, desc, event)
	}
	return s.loop.Post(func(loopCtx context.Context) {
		_ = s.Bus.PublishAs(loopCtx, desc, event)
	})
}

// PublishTopic dispatches a topic publication on the loop goroutine.
func (s *Service) PublishTopic(ctx context.Context, topic string, payload any) error {
	if topic == "" {
		return eventbus.ErrEmptyTopic
	}
	if OnLoop(ctx, s.loop) {
		return s.Bus.PublishTopic(ctx, topic, payload)
	}
	return s.loop.Post(func(loopCtx context.Context) {
		_ = s.Bus.PublishTopic(loopCtx, topic, payload)
	})
}
