package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/KNICEX/oi-radar/internal/entity"
	"github.com/KNICEX/oi-radar/internal/repo"
	"github.com/KNICEX/oi-radar/internal/schedule"
	"github.com/KNICEX/oi-radar/internal/service/exchange"
	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

type UniverseConfig struct {
	// Symbols pins the scanned set; when empty the universe is discovered.
	Symbols []string `mapstructure:"symbols" json:"symbols"`
	Quote   string   `mapstructure:"quote" json:"quote"`
	TopN    int      `mapstructure:"top_n" json:"top_n"`
}

type RejectFunc func(ctx context.Context, pair exchange.TradingPair) bool // if true, reject

type RadarMonitorTask struct {
	cfg          UniverseConfig
	symbolSvc    exchange.SymbolService
	marketSvc    exchange.MarketService
	radarSvc     RadarService
	rejectSymbol RejectFunc
	logger       zerolog.Logger
}

func NewRadarMonitorTask(cfg UniverseConfig, radarSvc RadarService, symbolSvc exchange.SymbolService,
	marketSvc exchange.MarketService, logger zerolog.Logger, reject ...RejectFunc) schedule.Task {
	task := &RadarMonitorTask{
		cfg:       cfg,
		symbolSvc: symbolSvc,
		marketSvc: marketSvc,
		radarSvc:  radarSvc,
		logger:    logger,
		rejectSymbol: func(ctx context.Context, pair exchange.TradingPair) bool {
			return false
		},
	}

	if len(reject) > 0 {
		task.rejectSymbol = reject[0]
	}
	return task
}

func (t *RadarMonitorTask) Run(ctx context.Context) error {
	pairs, err := t.universe(ctx)
	if err != nil {
		return err
	}

	pairs = lo.Reject(pairs, func(item exchange.TradingPair, index int) bool {
		return t.rejectSymbol(ctx, item)
	})
	symbols := lo.Map(pairs, func(item exchange.TradingPair, index int) string {
		return item.ToString()
	})
	t.logger.Info().Strs("symbols", symbols).Msg("radar universe resolved")

	return t.radarSvc.Run(ctx, symbols)
}

func (t *RadarMonitorTask) Name() string {
	return "oi radar scan task"
}

func (t *RadarMonitorTask) universe(ctx context.Context) ([]exchange.TradingPair, error) {
	if len(t.cfg.Symbols) > 0 {
		pairs := make([]exchange.TradingPair, 0, len(t.cfg.Symbols))
		for _, s := range t.cfg.Symbols {
			pair, err := exchange.ParseTradingPair(s)
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, pair)
		}
		return exchange.SelectUniverse(pairs, nil, "", 0), nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = time.Minute
	return backoff.RetryWithData(func() ([]exchange.TradingPair, error) {
		pairs, err := t.symbolSvc.GetAllSymbols(ctx)
		if err != nil {
			t.logger.Warn().Err(err).Msg("list symbols failed")
			return nil, err
		}
		var tickers []exchange.Ticker
		if t.cfg.TopN > 0 {
			if tickers, err = t.marketSvc.Tickers(ctx); err != nil {
				t.logger.Warn().Err(err).Msg("list tickers failed")
				return nil, err
			}
		}
		return exchange.SelectUniverse(pairs, tickers, t.cfg.Quote, t.cfg.TopN), nil
	}, backoff.WithContext(b, ctx))
}

// RejectMarked rejects symbols marked ignore in the symbol table.
func RejectMarked(symbolRepo repo.SymbolRepo, logger zerolog.Logger) RejectFunc {
	return func(ctx context.Context, pair exchange.TradingPair) bool {
		s, err := symbolRepo.FindByName(ctx, pair.ToString())
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false
		}
		if err != nil {
			logger.Warn().Err(err).Str("symbol", pair.ToString()).Msg("load symbol mark failed")
			return false
		}
		return s.Mark == entity.MarkIgnore
	}
}
