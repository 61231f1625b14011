package radar

import (
	"math"
	"time"
)

type ScorerConfig struct {
	MinHistory            int           `mapstructure:"min_history" json:"min_history"`
	SMAPeriod             int           `mapstructure:"sma_period" json:"sma_period"`
	ATRPeriod             int           `mapstructure:"atr_period" json:"atr_period"`
	OIZScorePeriod        int           `mapstructure:"oi_zscore_period" json:"oi_zscore_period"`
	ReturnLookback        time.Duration `mapstructure:"return_lookback" json:"return_lookback"`
	ReturnMinCoverage     float64       `mapstructure:"return_min_coverage" json:"return_min_coverage"`
	ReturnSigmaMultiplier float64       `mapstructure:"return_sigma_multiplier" json:"return_sigma_multiplier"`
	LiquidityWindow       int           `mapstructure:"liquidity_window" json:"liquidity_window"`
	SweepRetrace          float64       `mapstructure:"sweep_retrace" json:"sweep_retrace"`
	SwingLookback         int           `mapstructure:"swing_lookback" json:"swing_lookback"`
}

func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{
		MinHistory:            5,
		SMAPeriod:             20,
		ATRPeriod:             14,
		OIZScorePeriod:        20,
		ReturnLookback:        time.Hour,
		ReturnMinCoverage:     0.5,
		ReturnSigmaMultiplier: 3,
		LiquidityWindow:       20,
		SweepRetrace:          0.5,
		SwingLookback:         10,
	}
}

// withDefaults replaces unset fields with their defaults.
func (c ScorerConfig) withDefaults() ScorerConfig {
	d := DefaultScorerConfig()
	if c.MinHistory <= 0 {
		c.MinHistory = d.MinHistory
	}
	if c.SMAPeriod <= 0 {
		c.SMAPeriod = d.SMAPeriod
	}
	if c.ATRPeriod <= 0 {
		c.ATRPeriod = d.ATRPeriod
	}
	if c.OIZScorePeriod <= 0 {
		c.OIZScorePeriod = d.OIZScorePeriod
	}
	if c.ReturnLookback <= 0 {
		c.ReturnLookback = d.ReturnLookback
	}
	if c.ReturnMinCoverage <= 0 || c.ReturnMinCoverage > 1 {
		c.ReturnMinCoverage = d.ReturnMinCoverage
	}
	if c.ReturnSigmaMultiplier <= 0 {
		c.ReturnSigmaMultiplier = d.ReturnSigmaMultiplier
	}
	if c.LiquidityWindow <= 0 {
		c.LiquidityWindow = d.LiquidityWindow
	}
	if c.SweepRetrace <= 0 || c.SweepRetrace > 1 {
		c.SweepRetrace = d.SweepRetrace
	}
	if c.SwingLookback <= 0 {
		c.SwingLookback = d.SwingLookback
	}
	return c
}

// Scorer computes a ScoreBundle from a window. It holds configuration only,
// so one Scorer is shared by every scan loop.
type Scorer struct {
	cfg ScorerConfig
}

func NewScorer(cfg ScorerConfig) *Scorer {
	return &Scorer{cfg: cfg.withDefaults()}
}

func (s *Scorer) Config() ScorerConfig {
	return s.cfg
}

// Score evaluates the newest snapshot of samples (oldest first) against the
// samples before it. It never fails: short history yields neutral values.
func (s *Scorer) Score(samples []Snapshot) ScoreBundle {
	n := len(samples)
	if n == 0 {
		return NeutralBundle(0)
	}
	history := samples[:n-1]
	if len(history) < s.cfg.MinHistory {
		return NeutralBundle(n)
	}
	cur := samples[n-1]
	prev := history[len(history)-1]

	bundle := ScoreBundle{
		VolumeRatio:          s.volumeRatio(cur, history),
		PriceDisplacementATR: s.displacement(cur, prev, history),
		OIZScore:             s.oiZScore(cur, history),
		LiquiditySweep:       s.liquiditySweep(cur, history),
		StructureBreak:       s.structureBreak(cur, history),
		Direction:            Bullish,
		Samples:              n,
	}
	if cur.Price < prev.Price {
		bundle.Direction = Bearish
	}
	bundle.Return1h, bundle.Return1hSigma = s.return1h(cur, history)
	bundle.Return1hOutlier = bundle.Return1hSigma >= s.cfg.ReturnSigmaMultiplier
	return bundle
}

// ScoreWindow scores the full content of w.
func (s *Scorer) ScoreWindow(w *Window) ScoreBundle {
	return s.Score(w.All())
}

func (s *Scorer) volumeRatio(cur Snapshot, history []Snapshot) float64 {
	avg := mean(pluck(tail(history, s.cfg.SMAPeriod), func(x Snapshot) float64 { return x.Volume }))
	if avg <= 0 {
		return 1.0
	}
	return finite(cur.Volume/avg, 1.0)
}

func (s *Scorer) displacement(cur, prev Snapshot, history []Snapshot) float64 {
	// one extra sample so the first true range has a previous close
	atr := averageTrueRange(tail(history, s.cfg.ATRPeriod+1), s.cfg.ATRPeriod)
	if atr <= 0 {
		return 0
	}
	return finite(math.Abs(cur.Price-prev.Price)/atr, 0)
}

func (s *Scorer) oiZScore(cur Snapshot, history []Snapshot) float64 {
	ois := pluck(tail(history, s.cfg.OIZScorePeriod), func(x Snapshot) float64 { return x.OpenInterest })
	sd := stdev(ois)
	if sd == 0 {
		return 0
	}
	return finite((cur.OpenInterest-mean(ois))/sd, 0)
}

// return1h locates the reference price by elapsed time rather than sample
// count, since the polling cadence may drift.
func (s *Scorer) return1h(cur Snapshot, history []Snapshot) (ret, sigma float64) {
	target := cur.Timestamp.Add(-s.cfg.ReturnLookback)
	refIdx := -1
	for i := len(history) - 1; i >= 0; i-- {
		if !history[i].Timestamp.After(target) {
			refIdx = i
			break
		}
	}
	if refIdx < 0 {
		covered := cur.Timestamp.Sub(history[0].Timestamp)
		if float64(covered) < s.cfg.ReturnMinCoverage*float64(s.cfg.ReturnLookback) {
			return 0, 0
		}
		refIdx = 0
	}
	ref := history[refIdx]
	if ref.Price <= 0 {
		return 0, 0
	}
	ret = finite(cur.Price/ref.Price-1, 0)

	vol := stdev(stepReturns(history))
	steps := float64(len(history) - refIdx)
	if vol == 0 || steps == 0 {
		return ret, 0
	}
	return ret, finite(math.Abs(ret)/(vol*math.Sqrt(steps)), 0)
}

// liquiditySweep detects a wick through the recent extreme that closes back
// by at least SweepRetrace of the tick range.
func (s *Scorer) liquiditySweep(cur Snapshot, history []Snapshot) bool {
	ref := tail(history, s.cfg.LiquidityWindow)
	rng := cur.High - cur.Low
	if rng <= 0 {
		return false
	}
	if cur.High > maxHigh(ref) && (cur.High-cur.Price) >= s.cfg.SweepRetrace*rng {
		return true
	}
	if cur.Low < minLow(ref) && (cur.Price-cur.Low) >= s.cfg.SweepRetrace*rng {
		return true
	}
	return false
}

func (s *Scorer) structureBreak(cur Snapshot, history []Snapshot) bool {
	ref := tail(history, s.cfg.SwingLookback)
	return cur.Price > maxHigh(ref) || cur.Price < minLow(ref)
}
