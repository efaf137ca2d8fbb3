package versioner

import "go.uber.org/zap"

// Option configures a Chain.
type Option func(*Chain)

// WithLogger attaches a zap logger. Registrations are logged at Info, upgrade
// steps at Debug. nil keeps the no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Chain) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics attaches Prometheus collectors created by NewMetrics.
func WithMetrics(m *Metrics) Option {
	return func(c *Chain) { c.metrics = m }
}

// WithName labels log entries of this chain (for example the record kind).
func WithName(name string) Option {
	return func(c *Chain) { c.name = name }
}
