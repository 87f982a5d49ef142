package pebblestore

import (
	"time"

	metrics "github.com/rcrowley/go-metrics"
)

// GoMetricsHook records storage observations into a go-metrics registry.
type GoMetricsHook struct {
	writes      metrics.Timer
	writeBytes  metrics.Histogram
	reads       metrics.Timer
	readBytes   metrics.Histogram
	commits     metrics.Timer
	commitOps   metrics.Histogram
	commitBytes metrics.Histogram
}

// NewMetricsHook registers the storage instruments under prefix in r.
func NewMetricsHook(r metrics.Registry, prefix string) *GoMetricsHook {
	if r == nil {
		r = metrics.DefaultRegistry
	}
	hist := func(name string) metrics.Histogram {
		return metrics.GetOrRegisterHistogram(prefix+name, r, metrics.NewExpDecaySample(1028, 0.015))
	}
	return &GoMetricsHook{
		writes:      metrics.GetOrRegisterTimer(prefix+"write", r),
		writeBytes:  hist("write.bytes"),
		reads:       metrics.GetOrRegisterTimer(prefix+"read", r),
		readBytes:   hist("read.bytes"),
		commits:     metrics.GetOrRegisterTimer(prefix+"commit", r),
		commitOps:   hist("commit.ops"),
		commitBytes: hist("commit.bytes"),
	}
}

func (h *GoMetricsHook) ObserveWrite(d time.Duration, bytes int) {
	h.writes.Update(d)
	h.writeBytes.Update(int64(bytes))
}

func (h *GoMetricsHook) ObserveRead(d time.Duration, bytes int) {
	h.reads.Update(d)
	h.readBytes.Update(int64(bytes))
}

func (h *GoMetricsHook) ObserveBatchCommit(d time.Duration, numOps int, bytes int) {
	h.commits.Update(d)
	h.commitOps.Update(int64(numOps))
	h.commitBytes.Update(int64(bytes))
}
