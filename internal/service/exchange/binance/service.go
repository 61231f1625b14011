package binance

import (
	"github.com/KNICEX/oi-radar/internal/service/exchange"
	"github.com/adshao/go-binance/v2/futures"
)

type Service struct {
	marketSvc exchange.MarketService
	symbolSvc exchange.SymbolService
}

func NewService(cli *futures.Client) *Service {
	return &Service{
		marketSvc: NewMarketService(cli),
		symbolSvc: NewSymbolService(cli),
	}
}

func (s *Service) MarketService() exchange.MarketService {
	return s.marketSvc
}

func (s *Service) SymbolService() exchange.SymbolService {
	return s.symbolSvc
}
