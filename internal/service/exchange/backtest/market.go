package backtest

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/KNICEX/oi-radar/internal/service/exchange"
	"github.com/samber/lo"
)

var ErrUnknownSymbol = errors.New("backtest: unknown symbol")

type series struct {
	pair   exchange.TradingPair
	bars   []Bar
	cursor int
	loops  int
}

// span is the wall time covered by one pass over the bars.
func (s *series) span() time.Duration {
	if len(s.bars) == 0 {
		return 0
	}
	return s.bars[len(s.bars)-1].Kline.CloseTime.Sub(s.bars[0].Kline.OpenTime)
}

func (s *series) shifted(i int) Bar {
	b := s.bars[i]
	shift := time.Duration(s.loops) * s.span()
	b.Kline.OpenTime = b.Kline.OpenTime.Add(shift)
	b.Kline.CloseTime = b.Kline.CloseTime.Add(shift)
	return b
}

// Market replays generated bars as if they came from the exchange. Each open
// interest read closes the current bar and moves the symbol to the next one;
// after the last bar the series starts over, shifted forward in time.
type Market struct {
	mu     sync.Mutex
	series map[string]*series
}

func NewMarket() *Market {
	return &Market{series: make(map[string]*series)}
}

// AddSeries needs at least two bars, the cursor starts on the second so there
// is always a closed bar before it.
func (m *Market) AddSeries(pair exchange.TradingPair, bars []Bar) error {
	if len(bars) < 2 {
		return fmt.Errorf("backtest: %s needs at least 2 bars, got %d", pair.ToString(), len(bars))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.series[pair.ToString()] = &series{pair: pair, bars: slices.Clone(bars), cursor: 1}
	return nil
}

func (m *Market) get(pair exchange.TradingPair) (*series, error) {
	s, ok := m.series[pair.ToString()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSymbol, pair.ToString())
	}
	return s, nil
}

func (m *Market) GetKlines(ctx context.Context, req exchange.GetKlinesReq) ([]exchange.Kline, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.get(req.TradingPair)
	if err != nil {
		return nil, err
	}
	limit := req.Limit
	if limit <= 0 {
		limit = s.cursor + 1
	}
	from := max(0, s.cursor+1-limit)
	res := make([]exchange.Kline, 0, s.cursor+1-from)
	for i := from; i <= s.cursor; i++ {
		res = append(res, s.shifted(i).Kline)
	}
	return res, nil
}

func (m *Market) OpenInterest(ctx context.Context, tradingPair exchange.TradingPair) (exchange.OpenInterest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.get(tradingPair)
	if err != nil {
		return exchange.OpenInterest{}, err
	}
	bar := s.shifted(s.cursor)
	s.cursor++
	if s.cursor == len(s.bars) {
		s.cursor = 1
		s.loops++
	}
	return exchange.OpenInterest{
		TradingPair: s.pair,
		Value:       bar.OpenInterest,
		Time:        bar.Kline.CloseTime,
	}, nil
}

func (m *Market) Tickers(ctx context.Context) ([]exchange.Ticker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return lo.Map(lo.Values(m.series), func(s *series, _ int) exchange.Ticker {
		bar := s.bars[s.cursor]
		return exchange.Ticker{
			TradingPair: s.pair,
			LastPrice:   bar.Kline.Close,
			QuoteVolume: bar.Kline.QuoteAssetVolume,
		}
	}), nil
}

func (m *Market) GetAllSymbols(ctx context.Context) ([]exchange.TradingPair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pairs := lo.Map(lo.Values(m.series), func(s *series, _ int) exchange.TradingPair {
		return s.pair
	})
	slices.SortFunc(pairs, func(a, b exchange.TradingPair) int {
		return strings.Compare(a.ToString(), b.ToString())
	})
	return pairs, nil
}
