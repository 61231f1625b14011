package status

import (
	"sync"
	"sync/atomic"
	"time"
)

// Status is the read-only view served to status/report collaborators.
type Status struct {
	Running             bool    `json:"running"`
	Symbols             int     `json:"symbols"`
	ScannedSymbolsCount int     `json:"scanned_symbols_count"`
	ScannedSymbolsTotal int64   `json:"scanned_symbols_total"`
	RequestOK           int64   `json:"request_ok"`
	RequestFail         int64   `json:"request_fail"`
	AvgScanLatencyMs    float64 `json:"avg_scan_latency_ms"`
	UptimeSeconds       float64 `json:"uptime_seconds"`
	LastScanTs          int64   `json:"last_scan_ts"`
	AlertsEmitted       int64   `json:"alerts_emitted"`
	OutOfOrder          int64   `json:"out_of_order"`
	StoreWriteFail      int64   `json:"store_write_fail"`
	StoreDegraded       bool    `json:"store_degraded"`
	Subscribers         int     `json:"subscribers"`
}

// Aggregator holds process-wide scan counters. One instance is created at
// startup and handed to the monitor; every method is safe for concurrent use.
type Aggregator struct {
	startedAt time.Time
	now       func() time.Time
	recorder  *Recorder

	running     atomic.Bool
	symbols     atomic.Int64
	scans       atomic.Int64
	requestOK   atomic.Int64
	requestFail atomic.Int64
	latencyNs   atomic.Int64
	lastScanMs  atomic.Int64
	alerts      atomic.Int64
	outOfOrder  atomic.Int64
	storeFail   atomic.Int64
	// consecutive store failures, reset by a successful write
	storeStreak atomic.Int64
	subscribers func() int

	mu      sync.Mutex
	scanned map[string]struct{}

	degradeAfter int64
}

type Option func(a *Aggregator)

func WithRecorder(r *Recorder) Option {
	return func(a *Aggregator) {
		a.recorder = r
	}
}

func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

// WithDegradeAfter sets how many consecutive store failures flag the store
// as degraded.
func WithDegradeAfter(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.degradeAfter = int64(n)
		}
	}
}

func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{
		now:          time.Now,
		scanned:      make(map[string]struct{}),
		degradeAfter: 3,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.startedAt = a.now()
	return a
}

// SetSubscriberSource lets the live feed report its subscriber count.
func (a *Aggregator) SetSubscriberSource(f func() int) {
	a.mu.Lock()
	a.subscribers = f
	a.mu.Unlock()
}

func (a *Aggregator) SetRunning(running bool) {
	a.running.Store(running)
}

func (a *Aggregator) SetSymbols(n int) {
	a.symbols.Store(int64(n))
	if a.recorder != nil {
		a.recorder.symbols.Set(float64(n))
	}
}

func (a *Aggregator) RecordRequestOK() {
	a.requestOK.Add(1)
	if a.recorder != nil {
		a.recorder.requests.WithLabelValues("ok").Inc()
	}
}

func (a *Aggregator) RecordRequestFail() {
	a.requestFail.Add(1)
	if a.recorder != nil {
		a.recorder.requests.WithLabelValues("fail").Inc()
	}
}

// RecordScan marks a completed tick for symbol.
func (a *Aggregator) RecordScan(symbol string, took time.Duration) {
	a.scans.Add(1)
	a.latencyNs.Add(int64(took))
	a.lastScanMs.Store(a.now().UnixMilli())

	a.mu.Lock()
	a.scanned[symbol] = struct{}{}
	a.mu.Unlock()

	if a.recorder != nil {
		a.recorder.scans.WithLabelValues(symbol).Inc()
		a.recorder.latency.Observe(took.Seconds())
	}
}

func (a *Aggregator) RecordAlert(verdict string) {
	a.alerts.Add(1)
	if a.recorder != nil {
		a.recorder.alerts.WithLabelValues(verdict).Inc()
	}
}

func (a *Aggregator) RecordOutOfOrder() {
	a.outOfOrder.Add(1)
	if a.recorder != nil {
		a.recorder.outOfOrder.Inc()
	}
}

func (a *Aggregator) RecordStoreFailure() {
	a.storeFail.Add(1)
	a.storeStreak.Add(1)
	if a.recorder != nil {
		a.recorder.storeErrors.Inc()
	}
}

func (a *Aggregator) RecordStoreSuccess() {
	a.storeStreak.Store(0)
}

func (a *Aggregator) Snapshot() Status {
	a.mu.Lock()
	scanned := len(a.scanned)
	subscribers := a.subscribers
	a.mu.Unlock()

	scans := a.scans.Load()
	var avgMs float64
	if scans > 0 {
		avgMs = float64(a.latencyNs.Load()) / float64(scans) / float64(time.Millisecond)
	}

	st := Status{
		Running:             a.running.Load(),
		Symbols:             int(a.symbols.Load()),
		ScannedSymbolsCount: scanned,
		ScannedSymbolsTotal: scans,
		RequestOK:           a.requestOK.Load(),
		RequestFail:         a.requestFail.Load(),
		AvgScanLatencyMs:    avgMs,
		UptimeSeconds:       a.now().Sub(a.startedAt).Seconds(),
		LastScanTs:          a.lastScanMs.Load(),
		AlertsEmitted:       a.alerts.Load(),
		OutOfOrder:          a.outOfOrder.Load(),
		StoreWriteFail:      a.storeFail.Load(),
		StoreDegraded:       a.storeStreak.Load() >= a.degradeAfter,
	}
	if subscribers != nil {
		st.Subscribers = subscribers()
		if a.recorder != nil {
			a.recorder.subscribers.Set(float64(st.Subscribers))
		}
	}
	return st
}
