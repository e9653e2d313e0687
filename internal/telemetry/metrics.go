package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// SyncJobsTotal counts every Sync Transaction invocation by outcome.
var SyncJobsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "scrapecore",
		Subsystem: "sync",
		Name:      "jobs_total",
		Help:      "Total number of sync transactions by tenant and outcome.",
	},
	[]string{"tenant", "status"},
)

// SyncDuration tracks how long a per-tenant sync transaction takes.
var SyncDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "scrapecore",
		Subsystem: "sync",
		Name:      "duration_seconds",
		Help:      "Sync transaction duration in seconds.",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60, 90, 120},
	},
	[]string{"tenant"},
)

// BoatsCached and BookingsCached record the size of the last successful sync.
var BoatsCached = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "scrapecore",
		Subsystem: "cache",
		Name:      "boats",
		Help:      "Number of boats cached for the tenant as of the last sync.",
	},
	[]string{"tenant"},
)

var BookingsCached = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "scrapecore",
		Subsystem: "cache",
		Name:      "bookings",
		Help:      "Number of bookings cached for the tenant as of the last sync.",
	},
	[]string{"tenant"},
)

// ReauthTotal counts adapter reauthentication attempts triggered by session
// invalidation (401/403), labeled by whether the attempt succeeded.
var ReauthTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "scrapecore",
		Subsystem: "adapter",
		Name:      "reauth_total",
		Help:      "Total number of adapter reauthentication attempts.",
	},
	[]string{"tenant", "outcome"},
)

// FanoutDropsTotal counts cron triggers dropped because a fan-out was
// already in progress (the scheduler's singleton run gate).
var FanoutDropsTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "scrapecore",
		Subsystem: "scheduler",
		Name:      "fanout_drops_total",
		Help:      "Total number of cron triggers dropped due to an in-flight fan-out.",
	},
)

// PartialWarningsTotal counts non-fatal warnings accumulated during a sync.
// The Sync Transaction feeds it with bookings dropped for an unresolved
// booking->boat reference (kind "unresolved_booking"); cards skipped for
// lacking a calendar link are not counted here.
var PartialWarningsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "scrapecore",
		Subsystem: "sync",
		Name:      "partial_warnings_total",
		Help:      "Total number of partial warnings accumulated during syncs.",
	},
	[]string{"tenant", "kind"},
)

// HTTPRequestDuration tracks the ops surface's own request latency
// (healthz/readyz/metrics), labeled by method, route, and status.
var HTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "scrapecore",
		Subsystem: "ops_http",
		Name:      "request_duration_seconds",
		Help:      "Ops HTTP surface request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route", "status"},
)

// All returns every scrapecore-specific metric for registration.
func All() []prometheus.Collector {
	return []prometheus.Collector{
		SyncJobsTotal,
		SyncDuration,
		BoatsCached,
		BookingsCached,
		ReauthTotal,
		FanoutDropsTotal,
		PartialWarningsTotal,
		HTTPRequestDuration,
	}
}

// NewMetricsRegistry creates a Prometheus registry with Go/process
// collectors plus every scrapecore-specific collector.
func NewMetricsRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	for _, c := range All() {
		reg.MustRegister(c)
	}
	return reg
}
