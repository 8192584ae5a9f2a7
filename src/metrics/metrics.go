// Package metrics adapts the teacher's stats reporter
// (src/metrics/metrics.go, src/metrics/reporter.go) from a gRPC
// unary-interceptor facade onto the epoch driver and interpreter's
// counters: packets seen, packets dropped, epochs closed, and epoch
// summarization latency.
package metrics

import stats "github.com/lyft/gostats"

// Counter is an always-incrementing stat.
type Counter interface {
	Add(uint64)
	Inc()
	Value() uint64
}

// Timer flushes timing observations.
type Timer interface {
	AddValue(float64)
}

// Reporter is the minimal facade the engine's components depend on,
// letting call sites stay decoupled from gostats directly.
type Reporter interface {
	NewCounter(name string) Counter
	NewTimer(name string) Timer
}

// StatsReporter implements Reporter over a lyft/gostats Scope.
type StatsReporter struct {
	scope stats.Scope
}

// NewStatsReporter builds a StatsReporter over scope.
func NewStatsReporter(scope stats.Scope) *StatsReporter {
	return &StatsReporter{scope: scope}
}

func (s *StatsReporter) NewCounter(name string) Counter { return s.scope.NewCounter(name) }
func (s *StatsReporter) NewTimer(name string) Timer     { return s.scope.NewTimer(name) }

// EngineMetrics is the fixed set of counters/timers the epoch driver and
// interpreter update every epoch.
type EngineMetrics struct {
	PacketsProcessed Counter
	PacketsDropped   Counter
	EpochsClosed     Counter
	EpochCloseTime   Timer
}

// NewEngineMetrics builds the named counters/timers under reporter.
func NewEngineMetrics(reporter Reporter) *EngineMetrics {
	return &EngineMetrics{
		PacketsProcessed: reporter.NewCounter("netquery.packets_processed"),
		PacketsDropped:   reporter.NewCounter("netquery.packets_dropped"),
		EpochsClosed:     reporter.NewCounter("netquery.epochs_closed"),
		EpochCloseTime:   reporter.NewTimer("netquery.epoch_close_time_ms"),
	}
}
