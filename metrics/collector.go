// Package metrics exposes heap allocator counters as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/osmem/heapkit/heap"
)

const (
	descArenaBytes = iota
	descAllocsTotal
	descFreesTotal
	descBytesAllocated
	descBytesFreed
	descRetriesTotal
	descSplitsTotal
	descMergesTotal
	descFailuresTotal
)

var descriptors = []*prometheus.Desc{
	descArenaBytes: prometheus.NewDesc(
		"heap_arena_bytes",
		"Total capacity of the managed arena.",
		[]string{"allocator"},
		nil,
	),
	descAllocsTotal: prometheus.NewDesc(
		"heap_allocs_total",
		"Successful allocations.",
		[]string{"allocator"},
		nil,
	),
	descFreesTotal: prometheus.NewDesc(
		"heap_frees_total",
		"Successful frees.",
		[]string{"allocator"},
		nil,
	),
	descBytesAllocated: prometheus.NewDesc(
		"heap_allocated_bytes_total",
		"Bytes granted to callers, padding included.",
		[]string{"allocator"},
		nil,
	),
	descBytesFreed: prometheus.NewDesc(
		"heap_freed_bytes_total",
		"Bytes returned by callers.",
		[]string{"allocator"},
		nil,
	),
	descRetriesTotal: prometheus.NewDesc(
		"heap_cas_retries_total",
		"Operations restarted after losing a CAS race.",
		[]string{"allocator"},
		nil,
	),
	descSplitsTotal: prometheus.NewDesc(
		"heap_splits_total",
		"Free range or buddy block splits.",
		[]string{"allocator"},
		nil,
	),
	descMergesTotal: prometheus.NewDesc(
		"heap_merges_total",
		"Free range coalesces or buddy block merges.",
		[]string{"allocator"},
		nil,
	),
	descFailuresTotal: prometheus.NewDesc(
		"heap_alloc_failures_total",
		"Allocations refused with out of memory.",
		[]string{"allocator"},
		nil,
	),
}

// Collector bridges one or more allocators into a Prometheus registry. The
// name given at registration becomes the allocator label.
type Collector struct {
	targets map[string]heap.SubAllocator
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector builds an empty collector. Register allocators with Track
// before handing it to prometheus.Registerer.
func NewCollector() *Collector {
	return &Collector{targets: map[string]heap.SubAllocator{}}
}

// Track adds an allocator under the given label. Not safe to call after the
// collector has been registered.
func (c *Collector) Track(name string, a heap.SubAllocator) *Collector {
	c.targets[name] = a
	return c
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range descriptors {
		ch <- d
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for name, a := range c.targets {
		ch <- prometheus.MustNewConstMetric(descriptors[descArenaBytes],
			prometheus.GaugeValue, float64(a.ArenaSize()), name)

		sp, ok := a.(heap.StatsProvider)
		if !ok {
			continue
		}
		st := sp.Stats()
		counters := []struct {
			desc int
			v    int64
		}{
			{descAllocsTotal, st.Allocs},
			{descFreesTotal, st.Frees},
			{descBytesAllocated, st.BytesAllocated},
			{descBytesFreed, st.BytesFreed},
			{descRetriesTotal, st.Retries},
			{descSplitsTotal, st.Splits},
			{descMergesTotal, st.Merges},
			{descFailuresTotal, st.Failures},
		}
		for _, m := range counters {
			ch <- prometheus.MustNewConstMetric(descriptors[m.desc],
				prometheus.CounterValue, float64(m.v), name)
		}
	}
}
