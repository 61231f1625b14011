package ioc

import (
	"time"

	"github.com/KNICEX/oi-radar/internal/service/exchange"
	"github.com/KNICEX/oi-radar/internal/service/exchange/backtest"
	"github.com/KNICEX/oi-radar/internal/service/exchange/binance"
	"github.com/spf13/viper"
)

// InitExchange returns the live binance services, or a generated replay
// market when cex.backtest.enabled is set.
func InitExchange() (exchange.MarketService, exchange.SymbolService) {
	type Config struct {
		Enabled    bool              `mapstructure:"enabled"`
		Symbols    []string          `mapstructure:"symbols"`
		Interval   exchange.Interval `mapstructure:"interval"`
		Bars       int               `mapstructure:"bars"`
		SpikeEvery int               `mapstructure:"spike_every"`
	}

	cfg := Config{
		Symbols:    []string{"BTCUSDT", "ETHUSDT"},
		Interval:   exchange.Interval1m,
		Bars:       240,
		SpikeEvery: 60,
	}
	if err := viper.UnmarshalKey("cex.backtest", &cfg); err != nil {
		panic(err)
	}
	if !cfg.Enabled {
		svc := binance.NewService(InitBinanceCli())
		return svc.MarketService(), svc.SymbolService()
	}

	market := backtest.NewMarket()
	start := time.Now().Add(-time.Duration(cfg.Bars) * cfg.Interval.Duration())
	for i, symbol := range cfg.Symbols {
		pair, err := exchange.ParseTradingPair(symbol)
		if err != nil {
			panic(err)
		}
		bars := backtest.GenerateBars(start, cfg.Interval, 100*float64(i+1), 1_000_000, cfg.Bars, backtest.TrendSideways)
		for j := cfg.SpikeEvery; cfg.SpikeEvery > 0 && j < len(bars); j += cfg.SpikeEvery {
			backtest.Spike(bars, j, 1.06, 3)
		}
		if err = market.AddSeries(pair, bars); err != nil {
			panic(err)
		}
	}
	return market, market
}
