package eventbus

import (
	"time"

	"github.com/rs/zerolog"
)

// config holds service configuration.
type config struct {
	logger           zerolog.Logger
	faultHandler     FaultHandler
	defaultCacheSize int
	timingThreshold  time.Duration
	timingLog        bool
}

// defaultConfig returns the default service configuration: no-op logger,
// caching and timing disabled.
func defaultConfig() config {
	return config{
		logger: zerolog.Nop(),
	}
}

// Option configures the event service.
type Option func(*config)

// WithLogger sets the logger used by the default fault handler and the
// timing logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *config) {
		c.logger = log
	}
}

// WithFaultHandler replaces the default fault handler. Isolated
// subscriber and veto-listener failures are delivered to h.
func WithFaultHandler(h FaultHandler) Option {
	return func(c *config) {
		c.faultHandler = h
	}
}

// WithDefaultCacheSize sets the bucket size used for types and topics
// without an explicit size. Zero, the default, disables caching for them.
func WithDefaultCacheSize(size int) Option {
	return func(c *config) {
		c.defaultCacheSize = size
	}
}

// WithTimingThreshold enables per-call timing: a subscriber or
// veto-listener call longer than d publishes a *TimingRecord through the
// ordinary pipeline. Zero, the default, disables timing.
func WithTimingThreshold(d time.Duration) Option {
	return func(c *config) {
		c.timingThreshold = d
	}
}

// WithTimingLog subscribes a logging subscriber to *TimingRecord so slow
// calls are reported without caller wiring.
func WithTimingLog() Option {
	return func(c *config) {
		c.timingLog = true
	}
}
