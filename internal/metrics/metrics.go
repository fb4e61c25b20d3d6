// Package metrics declares the Prometheus collectors shared by the retrieval path.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AddressResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ledgernotes_address_resolutions_total", Help: "Address resolutions by the tier that produced them"},
		[]string{"source"},
	)
	IndexedLookupFailures = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "ledgernotes_indexed_lookup_failures_total", Help: "Indexed lookups that failed and fell back to the ledger"},
	)
	MapShapes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ledgernotes_map_shapes_total", Help: "Decoded map payloads by detected encoding"},
		[]string{"shape"},
	)
	EntriesDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ledgernotes_entries_dropped_total", Help: "Map entries skipped during assembly"},
		[]string{"reason"},
	)
	RetrievalDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "ledgernotes_retrieval_duration_seconds", Help: "GetEntries latency", Buckets: prometheus.DefBuckets},
		[]string{"outcome"},
	)
	RefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ledgernotes_refresh_total", Help: "Snapshot refreshes per tracked user"},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(
		AddressResolutions,
		IndexedLookupFailures,
		MapShapes,
		EntriesDropped,
		RetrievalDuration,
		RefreshTotal,
	)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
