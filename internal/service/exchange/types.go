package exchange

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrIngestion wraps every failure to obtain market data: transport errors,
// exchange API errors and malformed payloads alike.
var ErrIngestion = errors.New("market data ingestion failed")

// TradingPair 交易对
type TradingPair struct {
	Base  string `json:"base"`
	Quote string `json:"quote"`
}

// 常见 Quote 列表
var knownQuotes = []string{"USDT", "USDC", "BUSD", "BTC", "ETH"}

func SplitSymbol(s string) (string, string) {
	s = strings.ToUpper(s)
	for _, q := range knownQuotes {
		if strings.HasSuffix(s, q) && len(s) > len(q) {
			return strings.TrimSuffix(s, q), q
		}
	}
	return s, ""
}

// ParseTradingPair accepts both BTCUSDT and BTC/USDT.
func ParseTradingPair(s string) (TradingPair, error) {
	if base, quote, ok := strings.Cut(strings.ToUpper(s), "/"); ok {
		if base == "" || quote == "" {
			return TradingPair{}, fmt.Errorf("invalid trading pair %q", s)
		}
		return TradingPair{Base: base, Quote: quote}, nil
	}
	base, quote := SplitSymbol(s)
	if quote == "" {
		return TradingPair{}, fmt.Errorf("invalid trading pair %q", s)
	}
	return TradingPair{Base: base, Quote: quote}, nil
}

func (s TradingPair) ToString() string {
	return fmt.Sprintf("%s%s", s.Base, s.Quote)
}

type Interval string

func (i Interval) ToString() string {
	return string(i)
}

// Duration of one candle, zero for unknown intervals.
func (i Interval) Duration() time.Duration {
	switch i {
	case Interval1m:
		return time.Minute
	case Interval3m:
		return 3 * time.Minute
	case Interval5m:
		return 5 * time.Minute
	case Interval15m:
		return 15 * time.Minute
	case Interval30m:
		return 30 * time.Minute
	case Interval1h:
		return time.Hour
	case Interval4h:
		return 4 * time.Hour
	default:
		return 0
	}
}

const (
	Interval1m  Interval = "1m"
	Interval3m  Interval = "3m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval30m Interval = "30m"
	Interval1h  Interval = "1h"
	Interval4h  Interval = "4h"
)
