package exchange

import (
	"slices"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// SelectUniverse keeps the pairs quoted in quote and, when topN > 0, only the
// topN by 24h quote volume. Pairs without a ticker rank last. Ties are broken
// by symbol so the result is stable across calls.
func SelectUniverse(pairs []TradingPair, tickers []Ticker, quote string, topN int) []TradingPair {
	if quote != "" {
		pairs = lo.Filter(pairs, func(item TradingPair, index int) bool {
			return strings.EqualFold(item.Quote, quote)
		})
	}
	pairs = lo.UniqBy(pairs, func(item TradingPair) string {
		return item.ToString()
	})

	volumes := lo.SliceToMap(tickers, func(item Ticker) (string, decimal.Decimal) {
		return item.TradingPair.ToString(), item.QuoteVolume
	})

	sorted := slices.Clone(pairs)
	slices.SortStableFunc(sorted, func(a, b TradingPair) int {
		if c := volumes[b.ToString()].Cmp(volumes[a.ToString()]); c != 0 {
			return c
		}
		return strings.Compare(a.ToString(), b.ToString())
	})
	if topN > 0 && len(sorted) > topN {
		sorted = sorted[:topN]
	}
	return sorted
}
