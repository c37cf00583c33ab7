package uiloop

import (
	"context"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/eventbus"
)

// Pump republishes terminal events from a tcell screen on a bus. Each
// event publishes under its concrete type, so subscribers select with
// selector.ExactFor[*tcell.EventKey]() and friends, or any tcell.Event
// via an assignable selector.
type Pump struct {
	screen tcell.Screen
	bus    eventbus.Bus
}

// NewPump returns a pump reading from screen and publishing on bus. The
// screen must already be initialized.
func NewPump(screen tcell.Screen, bus eventbus.Bus) *Pump {
	return &Pump{screen: screen, bus: bus}
}

// Run polls the screen and publishes every event until Stop is called,
// the screen is finalized, or ctx is done. It blocks the calling
// goroutine; PollEvent has no non-blocking form.
func (p *Pump) Run(ctx context.Context) error {
	for {
		ev := p.screen.PollEvent()
		if ev == nil {
			return nil
		}
		if _, ok := ev.(*pumpStop); ok {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		_ = p.bus.Publish(ctx, ev)
	}
}

// Stop interrupts Run by posting a sentinel event. Best-effort: the
// screen's event queue may be full.
func (p *Pump) Stop() {
	_ = p.screen.PostEvent(&pumpStop{t: time.Now()})
}

// pumpStop unblocks PollEvent during Stop.
type pumpStop struct {
	t time.Time
}

func (e *pumpStop) When() time.Time { return e.t }
