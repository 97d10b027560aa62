package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap/zapcore"
)

// MetricsCore implements zapcore.Core to count log entries per level.
type MetricsCore struct {
	zapcore.LevelEnabler
	entries *prometheus.CounterVec
}

// NewMetricsCore creates a core that increments entries with a "level" label.
func NewMetricsCore(enab zapcore.LevelEnabler, entries *prometheus.CounterVec) zapcore.Core {
	return &MetricsCore{
		LevelEnabler: enab,
		entries:      entries,
	}
}

func (c *MetricsCore) With(_ []zapcore.Field) zapcore.Core {
	return c
}

func (c *MetricsCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}

	return ce
}

func (c *MetricsCore) Write(ent zapcore.Entry, _ []zapcore.Field) error {
	c.entries.WithLabelValues(ent.Level.String()).Inc()
	return nil
}

func (c *MetricsCore) Sync() error {
	return nil
}
