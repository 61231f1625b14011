package monitor

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/KNICEX/oi-radar/internal/repo"
	"github.com/KNICEX/oi-radar/internal/service/radar"
	"github.com/KNICEX/oi-radar/internal/service/status"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

var (
	_ RadarService = (*RadarMonitor)(nil)
	_ PolicyTuner  = (*RadarMonitor)(nil)
)

// symbolState is owned by the scan loop of one symbol; only phase is read
// from other goroutines.
type symbolState struct {
	window *radar.Window
	phase  atomic.Int32
}

// engine is one immutable scoring policy; a tick loads it once so a policy
// swap never splits a tick between two policies.
type engine struct {
	scorer     *radar.Scorer
	classifier *radar.Classifier
}

func (e *engine) policy() radar.Policy {
	return radar.Policy{Scorer: e.scorer.Config(), Classifier: e.classifier.Config()}
}

type RadarMonitor struct {
	cfg       Config
	source    SnapshotSource
	engine    atomic.Pointer[engine]
	initial   *engine
	store     AlertStore
	notifiers []Notifier
	status    *status.Aggregator
	logger    zerolog.Logger
	sem       *semaphore.Weighted
	now       func() time.Time
	newID     func() string

	mu      sync.RWMutex
	symbols map[string]*symbolState
}

type Option func(m *RadarMonitor)

// WithNotifier adds a notifier; alerts reach notifiers in registration order.
func WithNotifier(notifier Notifier) Option {
	return func(m *RadarMonitor) {
		m.notifiers = append(m.notifiers, notifier)
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(m *RadarMonitor) {
		m.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *RadarMonitor) {
		m.now = now
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(m *RadarMonitor) {
		m.newID = newID
	}
}

func NewRadarMonitor(cfg Config, source SnapshotSource, scorer *radar.Scorer, classifier *radar.Classifier,
	store AlertStore, agg *status.Aggregator, opts ...Option) *RadarMonitor {
	cfg = cfg.withDefaults()
	m := &RadarMonitor{
		cfg:     cfg,
		source:  source,
		initial: &engine{scorer: scorer, classifier: classifier},
		store:   store,
		status:  agg,
		logger:  zerolog.Nop(),
		sem:     semaphore.NewWeighted(cfg.MaxConcurrency),
		now:     time.Now,
		newID: func() string {
			return uuid.Must(uuid.NewV7()).String()
		},
		symbols: make(map[string]*symbolState),
	}
	m.engine.Store(m.initial)
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *RadarMonitor) Config() Config {
	return m.cfg
}

// Policy returns the scoring policy used by the next tick.
func (m *RadarMonitor) Policy() radar.Policy {
	return m.engine.Load().policy()
}

// SetPolicy replaces the scoring policy. Ticks already running finish with
// the old one. An invalid policy leaves the current one in place.
func (m *RadarMonitor) SetPolicy(p radar.Policy) error {
	scorer, classifier, err := p.Build()
	if err != nil {
		return err
	}
	m.engine.Store(&engine{scorer: scorer, classifier: classifier})
	m.logger.Info().Interface("policy", p).Msg("radar policy updated")
	return nil
}

// ResetPolicy restores the policy the monitor was started with.
func (m *RadarMonitor) ResetPolicy() radar.Policy {
	m.engine.Store(m.initial)
	m.logger.Info().Msg("radar policy reset")
	return m.initial.policy()
}

func (m *RadarMonitor) Run(ctx context.Context, symbols []string) error {
	symbols = slices.Compact(slices.Sorted(slices.Values(symbols)))
	if len(symbols) == 0 {
		return errors.New("radar monitor: no symbols to scan")
	}
	for _, symbol := range symbols {
		m.state(symbol)
	}
	m.status.SetSymbols(len(symbols))
	m.status.SetRunning(true)
	defer m.status.SetRunning(false)

	m.logger.Info().Int("symbols", len(symbols)).Dur("interval", m.cfg.ScanInterval).Msg("radar monitor started")

	var wg sync.WaitGroup
	for _, symbol := range symbols {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.loop(ctx, symbol)
		}()
	}
	wg.Wait()

	m.logger.Info().Msg("radar monitor stopped")
	return nil
}

func (m *RadarMonitor) Symbols() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]string, 0, len(m.symbols))
	for symbol := range m.symbols {
		res = append(res, symbol)
	}
	slices.Sort(res)
	return res
}

func (m *RadarMonitor) Phases() map[string]Phase {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make(map[string]Phase, len(m.symbols))
	for symbol, st := range m.symbols {
		res[symbol] = Phase(st.phase.Load())
	}
	return res
}

func (m *RadarMonitor) state(symbol string) *symbolState {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.symbols[symbol]
	if !ok {
		st = &symbolState{window: radar.NewWindow(m.cfg.WindowSize)}
		m.symbols[symbol] = st
	}
	return st
}

func (m *RadarMonitor) loop(ctx context.Context, symbol string) {
	ticker := time.NewTicker(m.cfg.ScanInterval)
	defer ticker.Stop()
	for {
		if ctx.Err() != nil {
			return
		}
		m.ScanOnce(ctx, symbol)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ScanOnce runs one tick for symbol. It must not run concurrently with
// another tick of the same symbol. Cancelling ctx stops waiting for a worker
// slot but never interrupts a tick already started; that tick is bounded by
// the fetch and store timeouts instead.
func (m *RadarMonitor) ScanOnce(ctx context.Context, symbol string) {
	if err := m.sem.Acquire(ctx, 1); err != nil {
		return
	}
	defer m.sem.Release(1)

	st := m.state(symbol)
	defer st.phase.Store(int32(PhaseIdle))

	tickCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.FetchTimeout+m.cfg.StoreWriteTimeout)
	defer cancel()
	logger := m.logger.With().Str("symbol", symbol).Logger()
	start := m.now()
	// Every tick that got a worker slot counts as a scan, including failed
	// fetches and dropped snapshots.
	defer func() {
		m.status.RecordScan(symbol, m.now().Sub(start))
	}()
	eng := m.engine.Load()

	st.phase.Store(int32(PhaseFetching))
	snap, err := m.fetch(tickCtx, symbol)
	if err != nil {
		m.status.RecordRequestFail()
		logger.Warn().Err(err).Msg("fetch snapshot failed")
		return
	}
	m.status.RecordRequestOK()

	snap.Symbol = symbol
	if err = st.window.Push(snap.Normalize()); err != nil {
		m.status.RecordOutOfOrder()
		logger.Debug().Err(err).Time("ts", snap.Timestamp).Msg("drop snapshot")
		return
	}

	st.phase.Store(int32(PhaseScoring))
	bundle := eng.scorer.ScoreWindow(st.window)
	cls := eng.classifier.Classify(bundle)
	if cls.Verdict == radar.VerdictNone {
		return
	}

	st.phase.Store(int32(PhaseEmitting))
	last, _ := st.window.Last()
	alert := radar.Alert{
		ID:                m.newID(),
		Symbol:            symbol,
		CreatedAt:         time.UnixMilli(m.now().UnixMilli()).UTC(),
		Verdict:           cls.Verdict,
		Severity:          cls.Severity,
		Confidence:        cls.Confidence,
		Score:             cls.Composite,
		Direction:         bundle.Direction,
		ScoreBundle:       bundle,
		SnapshotAtTrigger: last,
	}
	m.emit(tickCtx, logger, alert)
}

func (m *RadarMonitor) fetch(ctx context.Context, symbol string) (radar.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.FetchTimeout)
	defer cancel()
	return m.source.FetchSnapshot(ctx, symbol)
}

// emit persists the alert and then fans it out. A failed write is counted
// and logged, but the alert is still delivered live.
func (m *RadarMonitor) emit(ctx context.Context, logger zerolog.Logger, alert radar.Alert) {
	if err := m.persist(ctx, alert); err != nil {
		m.status.RecordStoreFailure()
		logger.Error().Err(err).Str("alert_id", alert.ID).Msg("persist alert failed")
	} else {
		m.status.RecordStoreSuccess()
	}
	m.status.RecordAlert(alert.Verdict.String())

	logger.Info().
		Str("alert_id", alert.ID).
		Stringer("verdict", alert.Verdict).
		Float64("score", alert.Score).
		Float64("oi_zscore", alert.ScoreBundle.OIZScore).
		Float64("volume_ratio", alert.ScoreBundle.VolumeRatio).
		Str("direction", string(alert.Direction)).
		Msg("alert emitted")

	for _, n := range m.notifiers {
		if err := n.Notify(ctx, alert); err != nil {
			logger.Error().Err(err).Str("alert_id", alert.ID).Msg("notify alert failed")
		}
	}
}

func (m *RadarMonitor) persist(ctx context.Context, alert radar.Alert) error {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.StoreWriteTimeout)
	defer cancel()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = m.cfg.StoreRetryBackoff
	b.MaxElapsedTime = 0
	return backoff.Retry(func() error {
		err := m.store.Append(ctx, alert)
		if errors.Is(err, repo.ErrInvalidAlert) || errors.Is(err, repo.ErrDuplicateAlert) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(b, ctx))
}
