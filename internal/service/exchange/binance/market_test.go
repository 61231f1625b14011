package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/KNICEX/oi-radar/internal/service/exchange"
	"github.com/KNICEX/oi-radar/pkg/decimalx"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	klinesBody = `[
		[1709294400000,"100.0","101.0","99.0","100.5","500.25",1709294459999,"50100.1",120,"250.0","25000.0","0"],
		[1709294460000,"100.5","103.0","100.4","102.5","40.5",1709294519999,"4100.0",30,"20.0","2000.0","0"]
	]`
	openInterestBody = `{"openInterest":"12345.678","symbol":"BTCUSDT","time":1709294470123}`
	tickersBody      = `[
		{"symbol":"BTCUSDT","lastPrice":"102.5","volume":"10","quoteVolume":"9000.5"},
		{"symbol":"BTCDOMUSD","lastPrice":"1","volume":"1","quoteVolume":"1"},
		{"symbol":"ETHUSDT","lastPrice":"3.5","volume":"10","quoteVolume":"5000"}
	]`
	exchangeInfoBody = `{"symbols":[
		{"symbol":"BTCUSDT","contractType":"PERPETUAL","status":"TRADING","baseAsset":"BTC","quoteAsset":"USDT"},
		{"symbol":"ETHUSDT_240329","contractType":"CURRENT_QUARTER","status":"TRADING","baseAsset":"ETH","quoteAsset":"USDT"},
		{"symbol":"LUNAUSDT","contractType":"PERPETUAL","status":"SETTLING","baseAsset":"LUNA","quoteAsset":"USDT"},
		{"symbol":"MATICUSDT","contractType":"PERPETUAL","status":"TRADING","baseAsset":"MATIC","quoteAsset":"USDT"},
		{"symbol":"SOLUSDC","contractType":"PERPETUAL","status":"TRADING","baseAsset":"SOL","quoteAsset":"USDC"}
	]}`
)

func newTestClient(t *testing.T) *futures.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/klines"):
			assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
			_, _ = w.Write([]byte(klinesBody))
		case strings.HasSuffix(r.URL.Path, "/openInterest"):
			_, _ = w.Write([]byte(openInterestBody))
		case strings.HasSuffix(r.URL.Path, "/ticker/24hr"):
			_, _ = w.Write([]byte(tickersBody))
		case strings.HasSuffix(r.URL.Path, "/exchangeInfo"):
			_, _ = w.Write([]byte(exchangeInfoBody))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"code":-1,"msg":"not found"}`))
		}
	}))
	t.Cleanup(srv.Close)

	cli := futures.NewClient("", "")
	cli.BaseURL = srv.URL
	return cli
}

var btc = exchange.TradingPair{Base: "BTC", Quote: "USDT"}

func TestMarketService_GetKlines(t *testing.T) {
	svc := NewMarketService(newTestClient(t))
	klines, err := svc.GetKlines(context.Background(), exchange.GetKlinesReq{
		TradingPair: btc,
		Interval:    exchange.Interval1m,
		Limit:       2,
	})
	require.NoError(t, err)
	require.Len(t, klines, 2)
	assert.True(t, decimalx.MustFromString("102.5").Equal(klines[1].Close))
	assert.True(t, decimalx.MustFromString("500.25").Equal(klines[0].Volume))
	assert.Equal(t, time.UnixMilli(1709294460000), klines[1].OpenTime)
}

func TestMarketService_OpenInterest(t *testing.T) {
	svc := NewMarketService(newTestClient(t))
	oi, err := svc.OpenInterest(context.Background(), btc)
	require.NoError(t, err)
	assert.Equal(t, btc, oi.TradingPair)
	assert.True(t, decimalx.MustFromString("12345.678").Equal(oi.Value))
	assert.Equal(t, time.UnixMilli(1709294470123).UTC(), oi.Time)
}

func TestMarketService_Tickers(t *testing.T) {
	svc := NewMarketService(newTestClient(t))
	tickers, err := svc.Tickers(context.Background())
	require.NoError(t, err)
	require.Len(t, tickers, 2)
	assert.Equal(t, "ETHUSDT", tickers[1].TradingPair.ToString())
	assert.True(t, decimalx.MustFromString("9000.5").Equal(tickers[0].QuoteVolume))
}

func TestMarketService_FeedsSnapshotSource(t *testing.T) {
	src := exchange.NewSnapshotSource(NewMarketService(newTestClient(t)), exchange.SourceConfig{})
	snap, err := src.FetchSnapshot(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, 102.5, snap.Price)
	assert.Equal(t, 500.25, snap.Volume)
	assert.Equal(t, 12345.678, snap.OpenInterest)
}

func TestConvertKlines_Malformed(t *testing.T) {
	_, err := convertKlines([]*futures.Kline{{Open: "1", Close: "x", High: "1", Low: "1", Volume: "1", QuoteAssetVolume: "1"}})
	assert.Error(t, err)
}

func TestConvertOpenInterest(t *testing.T) {
	testCases := []struct {
		name    string
		in      *futures.OpenInterest
		wantErr bool
	}{
		{name: "nil", in: nil, wantErr: true},
		{name: "bad number", in: &futures.OpenInterest{Symbol: "BTCUSDT", OpenInterest: "n/a"}, wantErr: true},
		{name: "bad symbol", in: &futures.OpenInterest{Symbol: "BTCDOMUSD", OpenInterest: "1"}, wantErr: true},
		{name: "no time", in: &futures.OpenInterest{Symbol: "BTCUSDT", OpenInterest: "1"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			oi, err := convertOpenInterest(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, oi.Time.IsZero())
		})
	}
}
