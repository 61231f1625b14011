package ioc

import (
	"time"

	"github.com/KNICEX/oi-radar/internal/repo"
	"github.com/KNICEX/oi-radar/internal/schedule"
	"github.com/KNICEX/oi-radar/internal/service/exchange"
	"github.com/KNICEX/oi-radar/internal/service/monitor"
	"github.com/KNICEX/oi-radar/internal/service/radar"
	"github.com/KNICEX/oi-radar/internal/service/status"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"github.com/spf13/viper"
)

// RadarConfig is the effective radar section, also served by /api/config.
type RadarConfig struct {
	Monitor       monitor.Config         `json:"monitor"`
	Source        exchange.SourceConfig  `json:"source"`
	Universe      monitor.UniverseConfig `json:"universe"`
	Scorer        radar.ScorerConfig     `json:"scorer"`
	Classifier    radar.ClassifierConfig `json:"classifier"`
	ShutdownGrace time.Duration          `json:"shutdown_grace"`
}

func InitRadarConfig() RadarConfig {
	cfg := RadarConfig{
		Monitor: monitor.DefaultConfig(),
		Source: exchange.SourceConfig{
			KlineInterval:      exchange.Interval1m,
			MinRequestInterval: 50 * time.Millisecond,
			RetryTimes:         2,
			RetryBackoff:       200 * time.Millisecond,
		},
		Universe: monitor.UniverseConfig{
			Quote: "USDT",
			TopN:  50,
		},
		Scorer:        radar.DefaultScorerConfig(),
		Classifier:    radar.DefaultClassifierConfig(),
		ShutdownGrace: 10 * time.Second,
	}

	// the radar section is flat, each struct picks the keys it knows
	for _, target := range []any{&cfg.Monitor, &cfg.Source, &cfg.Universe} {
		if err := viper.UnmarshalKey("radar", target); err != nil {
			panic(err)
		}
	}
	if err := viper.UnmarshalKey("radar.scorer", &cfg.Scorer); err != nil {
		panic(err)
	}
	if err := viper.UnmarshalKey("radar.classifier", &cfg.Classifier); err != nil {
		panic(err)
	}
	if grace := viper.GetDuration("radar.shutdown_grace"); grace > 0 {
		cfg.ShutdownGrace = grace
	}
	return cfg
}

func InitRadarMonitor(cfg RadarConfig, market exchange.MarketService, store repo.AlertRepo, agg *status.Aggregator,
	logger zerolog.Logger, notifiers ...monitor.Notifier) *monitor.RadarMonitor {
	classifier, err := radar.NewClassifier(cfg.Classifier)
	if err != nil {
		panic(err)
	}
	source := exchange.NewSnapshotSource(market, cfg.Source,
		exchange.WithBreakerStateHook(func(name string, from, to gobreaker.State) {
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("market data breaker changed state")
		}),
	)

	opts := []monitor.Option{monitor.WithLogger(logger)}
	for _, n := range notifiers {
		opts = append(opts, monitor.WithNotifier(n))
	}
	return monitor.NewRadarMonitor(cfg.Monitor, source, radar.NewScorer(cfg.Scorer), classifier, store, agg, opts...)
}

func InitRadarTask(cfg RadarConfig, radarSvc monitor.RadarService, market exchange.MarketService,
	symbols exchange.SymbolService, symbolRepo repo.SymbolRepo, logger zerolog.Logger) schedule.Task {
	return monitor.NewRadarMonitorTask(cfg.Universe, radarSvc, symbols, market, logger,
		monitor.RejectMarked(symbolRepo, logger))
}
