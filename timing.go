package eventbus

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// TimingRecord describes one veto or subscriber call that ran longer
// than the configured timing threshold. Records are published through
// the service like any other event; subscribe to them with
// selector.ExactFor[*TimingRecord]().
type TimingRecord struct {
	// ID uniquely identifies the record.
	ID string

	// Start and End bound the measured call.
	Start time.Time
	End   time.Time

	// Threshold is the limit the call exceeded.
	Threshold time.Duration

	// Event is the published event or topic payload the call received.
	Event any

	// Topic is the topic name for topic publications, empty otherwise.
	Topic string

	// Subscriber is the slow subscriber, nil when a veto listener was
	// measured.
	Subscriber any

	// VetoListener is the slow veto listener, nil when a subscriber was
	// measured.
	VetoListener any
}

// Duration returns how long the measured call ran.
func (r *TimingRecord) Duration() time.Duration { return r.End.Sub(r.Start) }

// timingLogger logs timing records at warn level. WithTimingLog installs
// one as an ordinary subscriber.
type timingLogger struct {
	log zerolog.Logger
}

func (l *timingLogger) OnEvent(_ context.Context, event any) error {
	rec, ok := event.(*TimingRecord)
	if !ok {
		return nil
	}
	evt := l.log.Warn().
		Str("id", rec.ID).
		Dur("duration", rec.Duration()).
		Dur("threshold", rec.Threshold)
	if rec.Topic != "" {
		evt = evt.Str("topic", rec.Topic)
	}
	if rec.Subscriber != nil {
		evt = evt.Str("subscriber", fmt.Sprintf("%T", rec.Subscriber))
	}
	if rec.VetoListener != nil {
		evt = evt.Str("veto_listener", fmt.Sprintf("%T", rec.VetoListener))
	}
	evt.Msg("call exceeded timing threshold")
	return nil
}
