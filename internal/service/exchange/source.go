package exchange

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/KNICEX/oi-radar/internal/service/radar"
	"github.com/KNICEX/oi-radar/pkg/decimalx"
	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

type SourceConfig struct {
	KlineInterval      Interval      `mapstructure:"kline_interval" json:"kline_interval"`
	MinRequestInterval time.Duration `mapstructure:"min_request_interval" json:"min_request_interval"`
	RetryTimes         int           `mapstructure:"retry_times" json:"retry_times"`
	RetryBackoff       time.Duration `mapstructure:"retry_backoff" json:"retry_backoff"`
	BreakerFailures    uint32        `mapstructure:"breaker_failures" json:"breaker_failures"`
	BreakerCooldown    time.Duration `mapstructure:"breaker_cooldown" json:"breaker_cooldown"`
}

func (c SourceConfig) withDefaults() SourceConfig {
	if c.KlineInterval == "" {
		c.KlineInterval = Interval1m
	}
	if c.RetryTimes < 0 {
		c.RetryTimes = 0
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 200 * time.Millisecond
	}
	if c.BreakerFailures == 0 {
		c.BreakerFailures = 10
	}
	if c.BreakerCooldown <= 0 {
		c.BreakerCooldown = 30 * time.Second
	}
	return c
}

type SourceOption func(s *SnapshotSource)

func WithSourceClock(now func() time.Time) SourceOption {
	return func(s *SnapshotSource) {
		s.now = now
	}
}

func WithBreakerStateHook(hook func(name string, from, to gobreaker.State)) SourceOption {
	return func(s *SnapshotSource) {
		s.onState = hook
	}
}

// SnapshotSource turns the exchange market endpoints into radar snapshots:
// the current candle gives price and range, the last closed candle gives
// volume, and the open interest endpoint gives OI and the observation time.
// Requests are spaced by a shared limiter, retried with exponential backoff
// and guarded by a circuit breaker so an exchange outage fails fast.
type SnapshotSource struct {
	market  MarketService
	cfg     SourceConfig
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	now     func() time.Time
	onState func(name string, from, to gobreaker.State)
}

func NewSnapshotSource(market MarketService, cfg SourceConfig, opts ...SourceOption) *SnapshotSource {
	cfg = cfg.withDefaults()
	limit := rate.Inf
	if cfg.MinRequestInterval > 0 {
		limit = rate.Every(cfg.MinRequestInterval)
	}
	s := &SnapshotSource{
		market:  market,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "market-data",
		Timeout: cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		// a caller giving up says nothing about exchange health
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: s.onState,
	})
	return s
}

func (s *SnapshotSource) BreakerState() gobreaker.State {
	return s.breaker.State()
}

// FetchSnapshot returns the current snapshot for symbol. Every failure wraps
// ErrIngestion.
func (s *SnapshotSource) FetchSnapshot(ctx context.Context, symbol string) (radar.Snapshot, error) {
	pair, err := ParseTradingPair(symbol)
	if err != nil {
		return radar.Snapshot{}, fmt.Errorf("%w: %w", ErrIngestion, err)
	}
	res, err := s.breaker.Execute(func() (interface{}, error) {
		return s.fetchWithRetry(ctx, pair)
	})
	if err != nil {
		return radar.Snapshot{}, fmt.Errorf("%w: %s: %w", ErrIngestion, symbol, err)
	}
	return res.(radar.Snapshot), nil
}

func (s *SnapshotSource) fetchWithRetry(ctx context.Context, pair TradingPair) (radar.Snapshot, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.RetryBackoff
	b.MaxElapsedTime = 0 // bounded by ctx
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(s.cfg.RetryTimes)), ctx)

	return backoff.RetryWithData(func() (radar.Snapshot, error) {
		return s.fetchOnce(ctx, pair)
	}, policy)
}

func (s *SnapshotSource) fetchOnce(ctx context.Context, pair TradingPair) (radar.Snapshot, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return radar.Snapshot{}, backoff.Permanent(err)
	}
	klines, err := s.market.GetKlines(ctx, GetKlinesReq{
		TradingPair: pair,
		Interval:    s.cfg.KlineInterval,
		Limit:       2,
	})
	if err != nil {
		return radar.Snapshot{}, err
	}

	if err = s.limiter.Wait(ctx); err != nil {
		return radar.Snapshot{}, backoff.Permanent(err)
	}
	oi, err := s.market.OpenInterest(ctx, pair)
	if err != nil {
		return radar.Snapshot{}, err
	}

	snap, err := BuildSnapshot(pair, klines, oi, s.now)
	if err != nil {
		// malformed payloads do not improve on retry
		return radar.Snapshot{}, backoff.Permanent(err)
	}
	return snap, nil
}

// BuildSnapshot assembles a snapshot from the latest candles (oldest first)
// and an open interest reading.
func BuildSnapshot(pair TradingPair, klines []Kline, oi OpenInterest, now func() time.Time) (radar.Snapshot, error) {
	if len(klines) == 0 {
		return radar.Snapshot{}, fmt.Errorf("no klines for %s", pair.ToString())
	}
	cur := klines[len(klines)-1]
	volumeFrom := cur
	if len(klines) > 1 {
		volumeFrom = klines[len(klines)-2]
	}
	if !decimalx.Positive(cur.Close) {
		return radar.Snapshot{}, fmt.Errorf("non-positive price %s for %s", cur.Close, pair.ToString())
	}
	if oi.Value.IsNegative() {
		return radar.Snapshot{}, fmt.Errorf("negative open interest %s for %s", oi.Value, pair.ToString())
	}

	ts := oi.Time
	if ts.IsZero() {
		ts = now()
	}
	return radar.Snapshot{
		Symbol:       pair.ToString(),
		Timestamp:    ts,
		Price:        decimalx.Float(cur.Close),
		High:         decimalx.Float(cur.High),
		Low:          decimalx.Float(cur.Low),
		Volume:       decimalx.Float(volumeFrom.Volume),
		OpenInterest: decimalx.Float(oi.Value),
	}.Normalize(), nil
}
