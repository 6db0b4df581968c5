package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are Prometheus vectors under the kismet namespace, covering
// device-tracking and log-sink counters for this server's components.
var (
	PacketsCaptured = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kismet",
			Name:      "packets_captured_total",
			Help:      "Total number of packets captured per source interface",
		},
		[]string{"interface"},
	)

	PacketsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kismet",
			Name:      "packets_processed_total",
			Help:      "Total number of packets that completed the packet chain",
		},
		[]string{"phy"},
	)

	PacketsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kismet",
			Name:      "packets_dropped_total",
			Help:      "Total number of packets dropped before completing the chain",
		},
		[]string{"reason"},
	)

	DevicesTracked = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "kismet",
			Name:      "devices_tracked",
			Help:      "Current number of devices held in the tracker registry",
		},
		[]string{"phy"},
	)

	AlertsRaised = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kismet",
			Name:      "alerts_raised_total",
			Help:      "Total number of alerts published to the alert bus",
		},
		[]string{"type"},
	)

	LookupCacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kismet",
			Name:      "lookup_cache_hits_total",
			Help:      "Total number of lookup table cache hits",
		},
		[]string{"table"},
	)

	LookupCacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kismet",
			Name:      "lookup_cache_misses_total",
			Help:      "Total number of lookup table cache misses",
		},
		[]string{"table"},
	)

	once sync.Once
)

// InitMetrics registers every metric with the default Prometheus
// registry. Idempotent so callers can invoke it from multiple entry
// points without risking a double-registration panic.
func InitMetrics() {
	once.Do(func() {
		prometheus.DefaultRegisterer.MustRegister(
			PacketsCaptured,
			PacketsProcessed,
			PacketsDropped,
			DevicesTracked,
			AlertsRaised,
			LookupCacheHits,
			LookupCacheMisses,
		)
	})
}
