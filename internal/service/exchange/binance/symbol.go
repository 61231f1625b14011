package binance

import (
	"context"

	"github.com/KNICEX/oi-radar/internal/service/exchange"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/samber/lo"
)

// 过期/下架及杠杆代币类币种
var binanceOverdueSymbolBase = []string{
	"BCC", "VEN", "PAX", "BCHABC", "BCHSV", "WAVES", "BTT", "USDS", "XMR", "NANO", "OMG",
	"MITH", "MATIC", "FTM", "USDSB", "GTO", "ERD", "NPXS", "COCOS", "TOMO", "PERL", "MFT",
	"KEY", "STORM", "DOCK", "BUSD", "BEAM", "REN", "HC", "MCO", "VITE", "DREP", "BULL", "BEAR",
	"BTCUP", "BTCDOWN", "ETHUP", "ETHDOWN", "LEND", "SRM", "ANT", "OCEAN", "BZRX", "YFII",
	"HNT", "BTCST", "MIR", "NU", "TORN", "KEEP", "TRIBE", "RNDR", "ANY", "OOKI", "ANC", "MULTI",
	"GAL", "EPX", "AGIX", "AMB", "LOOM", "STRAT", "AKRO", "UST", "USDC", "FUSDT", "USDP",
}

const contractStatusTrading = "TRADING"

type SymbolService struct {
	cli         *futures.Client
	overdueBase map[string]struct{}
}

func NewSymbolService(cli *futures.Client) exchange.SymbolService {
	return &SymbolService{
		cli: cli,
		overdueBase: lo.SliceToMap(binanceOverdueSymbolBase, func(item string) (string, struct{}) {
			return item, struct{}{}
		}),
	}
}

func (svc *SymbolService) GetAllSymbols(ctx context.Context) ([]exchange.TradingPair, error) {
	info, err := svc.cli.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, err
	}
	return svc.filterOverdue(tradablePerpetuals(info.Symbols)), nil
}

func tradablePerpetuals(symbols []futures.Symbol) []exchange.TradingPair {
	symbols = lo.Filter(symbols, func(item futures.Symbol, index int) bool {
		return item.ContractType == futures.ContractTypePerpetual && item.Status == contractStatusTrading
	})
	return lo.FilterMap(symbols, func(item futures.Symbol, index int) (exchange.TradingPair, bool) {
		pair, err := fromBinanceSymbol(item.Symbol)
		return pair, err == nil
	})
}

// filterOverdue 过滤掉过期的币种
func (svc *SymbolService) filterOverdue(s []exchange.TradingPair) []exchange.TradingPair {
	return lo.Reject(s, func(item exchange.TradingPair, index int) bool {
		_, ok := svc.overdueBase[item.Base]
		return ok
	})
}
