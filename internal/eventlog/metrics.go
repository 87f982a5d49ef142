package eventlog

import (
	metrics "github.com/rcrowley/go-metrics"
)

// logMetrics are the per-log instruments registered under "devlog.<name>.*".
type logMetrics struct {
	appended metrics.Counter
	dropped  metrics.Counter
	failed   metrics.Counter
	bytes    metrics.Meter
}

func newLogMetrics(r metrics.Registry, name string) logMetrics {
	prefix := "devlog." + name + "."
	return logMetrics{
		appended: metrics.GetOrRegisterCounter(prefix+"appended", r),
		dropped:  metrics.GetOrRegisterCounter(prefix+"dropped", r),
		failed:   metrics.GetOrRegisterCounter(prefix+"failed", r),
		bytes:    metrics.GetOrRegisterMeter(prefix+"bytes", r),
	}
}

// Stats is a point-in-time copy of a log's counters.
type Stats struct {
	Appended int64
	Dropped  int64
	Failed   int64
	Bytes    int64
}

// Stats returns the log's append counters.
func (l *Log) Stats() Stats {
	return Stats{
		Appended: l.metrics.appended.Count(),
		Dropped:  l.metrics.dropped.Count(),
		Failed:   l.metrics.failed.Count(),
		Bytes:    l.metrics.bytes.Count(),
	}
}
