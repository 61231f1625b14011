package binance

import (
	"context"

	"github.com/KNICEX/oi-radar/internal/service/exchange"
	"github.com/adshao/go-binance/v2/futures"
)

var _ exchange.MarketService = (*MarketService)(nil)

type MarketService struct {
	cli *futures.Client
}

// NewMarketService 创建市场数据服务
func NewMarketService(cli *futures.Client) *MarketService {
	return &MarketService{cli: cli}
}

func (m *MarketService) GetKlines(ctx context.Context, req exchange.GetKlinesReq) ([]exchange.Kline, error) {
	svc := m.cli.NewKlinesService().Symbol(req.TradingPair.ToString()) // 币安合约API使用 BTCUSDT 格式，不是 BTC/USDT
	if req.Interval.ToString() != "" {
		svc.Interval(req.Interval.ToString())
	}
	if !req.StartTime.IsZero() {
		svc.StartTime(req.StartTime.UnixMilli())
	}
	if !req.EndTime.IsZero() {
		svc.EndTime(req.EndTime.UnixMilli())
	}
	if req.Limit > 0 {
		svc.Limit(req.Limit)
	}
	res, err := svc.Do(ctx)
	if err != nil {
		return nil, err
	}
	return convertKlines(res)
}

func (m *MarketService) OpenInterest(ctx context.Context, tradingPair exchange.TradingPair) (exchange.OpenInterest, error) {
	res, err := m.cli.NewGetOpenInterestService().Symbol(tradingPair.ToString()).Do(ctx)
	if err != nil {
		return exchange.OpenInterest{}, err
	}
	return convertOpenInterest(res)
}

func (m *MarketService) Tickers(ctx context.Context) ([]exchange.Ticker, error) {
	res, err := m.cli.NewListPriceChangeStatsService().Do(ctx)
	if err != nil {
		return nil, err
	}
	return convertTickers(res), nil
}
