package binance

import (
	"fmt"
	"strings"
	"time"

	"github.com/KNICEX/oi-radar/internal/service/exchange"
	"github.com/KNICEX/oi-radar/pkg/decimalx"
	"github.com/adshao/go-binance/v2/futures"
)

// fromBinanceSymbol converts a Binance symbol string to an exchange.TradingPair.
// 目前仅支持 USDT USDC 交易对
func fromBinanceSymbol(symbol string) (exchange.TradingPair, error) {
	for _, quote := range []string{"USDT", "USDC"} {
		if strings.HasSuffix(symbol, quote) && len(symbol) > len(quote) {
			return exchange.TradingPair{
				Base:  strings.TrimSuffix(symbol, quote),
				Quote: quote,
			}, nil
		}
	}
	return exchange.TradingPair{}, fmt.Errorf("unsupported symbol format: %s", symbol)
}

func convertKlines(klines []*futures.Kline) ([]exchange.Kline, error) {
	kls := make([]exchange.Kline, len(klines))
	var p decimalx.Parser
	for i, k := range klines {
		kls[i] = exchange.Kline{
			OpenTime:         time.UnixMilli(k.OpenTime),
			CloseTime:        time.UnixMilli(k.CloseTime),
			Open:             p.Parse("open", k.Open),
			Close:            p.Parse("close", k.Close),
			High:             p.Parse("high", k.High),
			Low:              p.Parse("low", k.Low),
			Volume:           p.Parse("volume", k.Volume),
			QuoteAssetVolume: p.Parse("quote volume", k.QuoteAssetVolume),
		}
	}
	if err := p.Err(); err != nil {
		return nil, err
	}
	return kls, nil
}

func convertOpenInterest(oi *futures.OpenInterest) (exchange.OpenInterest, error) {
	if oi == nil {
		return exchange.OpenInterest{}, fmt.Errorf("empty open interest response")
	}
	pair, err := fromBinanceSymbol(oi.Symbol)
	if err != nil {
		return exchange.OpenInterest{}, err
	}
	var p decimalx.Parser
	value := p.Parse("open interest", oi.OpenInterest)
	if err = p.Err(); err != nil {
		return exchange.OpenInterest{}, err
	}
	res := exchange.OpenInterest{
		TradingPair: pair,
		Value:       value,
	}
	if oi.Time > 0 {
		res.Time = time.UnixMilli(oi.Time).UTC()
	}
	return res, nil
}

// convertTickers skips symbols the radar cannot trade rather than failing
// the whole listing.
func convertTickers(stats []*futures.PriceChangeStats) []exchange.Ticker {
	res := make([]exchange.Ticker, 0, len(stats))
	for _, s := range stats {
		pair, err := fromBinanceSymbol(s.Symbol)
		if err != nil {
			continue
		}
		var p decimalx.Parser
		t := exchange.Ticker{
			TradingPair: pair,
			LastPrice:   p.Parse("last price", s.LastPrice),
			QuoteVolume: p.Parse("quote volume", s.QuoteVolume),
		}
		if p.Err() != nil {
			continue
		}
		res = append(res, t)
	}
	return res
}
