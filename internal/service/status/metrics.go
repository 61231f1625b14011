package status

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder mirrors the aggregator counters into prometheus.
type Recorder struct {
	scans       *prometheus.CounterVec
	requests    *prometheus.CounterVec
	alerts      *prometheus.CounterVec
	storeErrors prometheus.Counter
	outOfOrder  prometheus.Counter
	latency     prometheus.Histogram
	symbols     prometheus.Gauge
	subscribers prometheus.Gauge
}

// NewRecorder registers the radar metrics on reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		scans: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oiradar_scans_total",
				Help: "Completed scan ticks per symbol",
			},
			[]string{"symbol"},
		),
		requests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oiradar_requests_total",
				Help: "Market data fetches by outcome",
			},
			[]string{"outcome"},
		),
		alerts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oiradar_alerts_total",
				Help: "Emitted alerts by verdict",
			},
			[]string{"verdict"},
		),
		storeErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "oiradar_store_write_failures_total",
			Help: "Alert store writes that failed after retries",
		}),
		outOfOrder: f.NewCounter(prometheus.CounterOpts{
			Name: "oiradar_out_of_order_snapshots_total",
			Help: "Snapshots dropped for not advancing the window",
		}),
		latency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "oiradar_scan_duration_seconds",
			Help:    "Duration of a full scan tick",
			Buckets: prometheus.DefBuckets,
		}),
		symbols: f.NewGauge(prometheus.GaugeOpts{
			Name: "oiradar_symbols",
			Help: "Symbols in the scan universe",
		}),
		subscribers: f.NewGauge(prometheus.GaugeOpts{
			Name: "oiradar_live_subscribers",
			Help: "Connected live feed subscribers",
		}),
	}
}
