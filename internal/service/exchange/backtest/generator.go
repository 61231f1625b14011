package backtest

import (
	"time"

	"github.com/KNICEX/oi-radar/internal/service/exchange"
	"github.com/shopspring/decimal"
)

type Trend string

const (
	TrendUp       Trend = "up"
	TrendDown     Trend = "down"
	TrendVolatile Trend = "volatile"
	TrendSideways Trend = "sideways"
)

// Bar 一根K线及其收盘时的持仓量
type Bar struct {
	Kline        exchange.Kline
	OpenInterest decimal.Decimal
}

// GenerateBars 生成模拟K线, 持仓量围绕 baseOI 上下 1% 交替
func GenerateBars(start time.Time, interval exchange.Interval, basePrice, baseOI float64, count int, trend Trend) []Bar {
	bars := make([]Bar, count)
	for i := 0; i < count; i++ {
		var price float64
		switch trend {
		case TrendUp:
			price = basePrice * (1 + float64(i)*0.005)
		case TrendDown:
			price = basePrice * (1 - float64(i)*0.005)
		case TrendVolatile:
			if i%2 == 0 {
				price = basePrice * (1 + float64(i%10)*0.002)
			} else {
				price = basePrice * (1 - float64(i%10)*0.002)
			}
		default:
			price = basePrice * (1 + (float64(i%5)-2)*0.001)
		}

		oi := baseOI * 1.01
		if i%2 == 1 {
			oi = baseOI * 0.99
		}

		openTime := start.Add(time.Duration(i) * interval.Duration())
		volume := 1000 + float64(i)*10
		bars[i] = Bar{
			Kline: exchange.Kline{
				OpenTime:         openTime,
				CloseTime:        openTime.Add(interval.Duration()),
				Open:             decimal.NewFromFloat(price * 0.999),
				Close:            decimal.NewFromFloat(price),
				High:             decimal.NewFromFloat(price * 1.005),
				Low:              decimal.NewFromFloat(price * 0.995),
				Volume:           decimal.NewFromFloat(volume),
				QuoteAssetVolume: decimal.NewFromFloat(price * volume),
			},
			OpenInterest: decimal.NewFromFloat(oi),
		}
	}
	return bars
}

// Spike scales the open interest and volume of bars[i].
func Spike(bars []Bar, i int, oiFactor, volumeFactor float64) {
	if i < 0 || i >= len(bars) {
		return
	}
	b := &bars[i]
	b.OpenInterest = b.OpenInterest.Mul(decimal.NewFromFloat(oiFactor))
	b.Kline.Volume = b.Kline.Volume.Mul(decimal.NewFromFloat(volumeFactor))
	b.Kline.QuoteAssetVolume = b.Kline.QuoteAssetVolume.Mul(decimal.NewFromFloat(volumeFactor))
}
