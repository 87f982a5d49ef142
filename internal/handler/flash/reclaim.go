package flash

import (
	metrics "github.com/rcrowley/go-metrics"
)

// Reclaim describes one erased sector.
type Reclaim struct {
	Log      string
	Sector   uint32
	FirstSeq uint64
	LastSeq  uint64
	Entries  int
	Bytes    int
}

// ReclaimHook is an optional callback invoked after sectors are erased,
// either by rotation or by Clear. It runs outside the store lock.
type ReclaimHook interface {
	OnReclaim(r Reclaim)
}

type noopReclaim struct{}

func (noopReclaim) OnReclaim(Reclaim) {}

// MetricsReclaimHook counts erased sectors, entries and bytes per log in a
// go-metrics registry.
type MetricsReclaimHook struct {
	r metrics.Registry
}

// NewMetricsReclaimHook returns a hook registering "devlog.<log>.reclaimed.*"
// instruments in r.
func NewMetricsReclaimHook(r metrics.Registry) *MetricsReclaimHook {
	if r == nil {
		r = metrics.DefaultRegistry
	}
	return &MetricsReclaimHook{r: r}
}

func (h *MetricsReclaimHook) OnReclaim(rc Reclaim) {
	prefix := "devlog." + rc.Log + ".reclaimed."
	metrics.GetOrRegisterCounter(prefix+"sectors", h.r).Inc(1)
	metrics.GetOrRegisterCounter(prefix+"entries", h.r).Inc(int64(rc.Entries))
	metrics.GetOrRegisterCounter(prefix+"bytes", h.r).Inc(int64(rc.Bytes))
}

// multiHook fans a reclaim out to several hooks.
type multiHook []ReclaimHook

func (m multiHook) OnReclaim(rc Reclaim) {
	for _, h := range m {
		h.OnReclaim(rc)
	}
}

// Hooks combines hooks into one; nil entries are skipped.
func Hooks(hooks ...ReclaimHook) ReclaimHook {
	var m multiHook
	for _, h := range hooks {
		if h != nil {
			m = append(m, h)
		}
	}
	if len(m) == 0 {
		return noopReclaim{}
	}
	return m
}
