package exchange

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Kline struct {
	OpenTime         time.Time
	CloseTime        time.Time
	Open             decimal.Decimal
	Close            decimal.Decimal
	High             decimal.Decimal
	Low              decimal.Decimal
	Volume           decimal.Decimal // 成交量
	QuoteAssetVolume decimal.Decimal // 成交额
}

// OpenInterest 合约持仓量
type OpenInterest struct {
	TradingPair TradingPair
	Value       decimal.Decimal
	Time        time.Time
}

// Ticker 24h 行情统计
type Ticker struct {
	TradingPair TradingPair
	LastPrice   decimal.Decimal
	QuoteVolume decimal.Decimal // 24h 成交额
}

type GetKlinesReq struct {
	TradingPair        TradingPair
	Interval           Interval
	StartTime, EndTime time.Time
	Limit              int
}

type MarketService interface {
	GetKlines(ctx context.Context, req GetKlinesReq) ([]Kline, error)
	OpenInterest(ctx context.Context, tradingPair TradingPair) (OpenInterest, error)
	Tickers(ctx context.Context) ([]Ticker, error)
}

type SymbolService interface {
	// GetAllSymbols lists the tradable perpetual contracts.
	GetAllSymbols(ctx context.Context) ([]TradingPair, error)
}
