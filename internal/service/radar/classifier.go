package radar

import (
	"fmt"
	"math"
)

type Weights struct {
	OI           float64 `mapstructure:"oi" json:"oi"`
	Volume       float64 `mapstructure:"volume" json:"volume"`
	Displacement float64 `mapstructure:"displacement" json:"displacement"`
	Return       float64 `mapstructure:"return" json:"return"`
}

func (w Weights) sum() float64 {
	return w.OI + w.Volume + w.Displacement + w.Return
}

type Thresholds struct {
	Watch  float64 `mapstructure:"watch" json:"watch"`
	Alert  float64 `mapstructure:"alert" json:"alert"`
	Strong float64 `mapstructure:"strong" json:"strong"`
}

// ClassifierConfig holds the composite policy. The defaults are placeholders
// until calibrated against recorded alerts.
type ClassifierConfig struct {
	Weights           Weights    `mapstructure:"weights" json:"weights"`
	Thresholds        Thresholds `mapstructure:"thresholds" json:"thresholds"`
	VolumeRatioFull   float64    `mapstructure:"volume_ratio_full" json:"volume_ratio_full"`
	OIZScoreFull      float64    `mapstructure:"oi_zscore_full" json:"oi_zscore_full"`
	DisplacementFull  float64    `mapstructure:"displacement_full" json:"displacement_full"`
	ReturnSigmaFull   float64    `mapstructure:"return_sigma_full" json:"return_sigma_full"`
	FlagBoost         float64    `mapstructure:"flag_boost" json:"flag_boost"`
	FlagWatchFloor    float64    `mapstructure:"flag_watch_floor" json:"flag_watch_floor"`
	FlagPromoteMargin float64    `mapstructure:"flag_promote_margin" json:"flag_promote_margin"`
}

func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		Weights: Weights{
			OI:           0.40,
			Volume:       0.30,
			Displacement: 0.15,
			Return:       0.15,
		},
		Thresholds: Thresholds{
			Watch:  0.20,
			Alert:  0.35,
			Strong: 0.65,
		},
		VolumeRatioFull:   3,
		OIZScoreFull:      4,
		DisplacementFull:  3,
		ReturnSigmaFull:   4,
		FlagBoost:         0.10,
		FlagWatchFloor:    0.10,
		FlagPromoteMargin: 0.05,
	}
}

func (c ClassifierConfig) Validate() error {
	w := c.Weights
	if w.OI < 0 || w.Volume < 0 || w.Displacement < 0 || w.Return < 0 {
		return fmt.Errorf("classifier: negative weight %+v", w)
	}
	if w.sum() <= 0 {
		return fmt.Errorf("classifier: weights sum to zero")
	}
	t := c.Thresholds
	if !(t.Watch > 0 && t.Watch < t.Alert && t.Alert < t.Strong && t.Strong <= 1) {
		return fmt.Errorf("classifier: thresholds must satisfy 0 < watch < alert < strong <= 1, got %+v", t)
	}
	if c.VolumeRatioFull <= 1 || c.OIZScoreFull <= 0 || c.DisplacementFull <= 0 || c.ReturnSigmaFull <= 0 {
		return fmt.Errorf("classifier: full-scale values must be positive (volume ratio > 1)")
	}
	return nil
}

// Classifier is a pure mapping from ScoreBundle to Classification.
type Classifier struct {
	cfg ClassifierConfig
}

func NewClassifier(cfg ClassifierConfig) (*Classifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Classifier{cfg: cfg}, nil
}

func (c *Classifier) Config() ClassifierConfig {
	return c.cfg
}

// normalized sub-scores, each in [0,1]
type normalized struct {
	oi, volume, displacement, ret float64
}

func (c *Classifier) normalize(b ScoreBundle) normalized {
	return normalized{
		oi:           clamp01(math.Abs(b.OIZScore) / c.cfg.OIZScoreFull),
		volume:       clamp01((b.VolumeRatio - 1) / (c.cfg.VolumeRatioFull - 1)),
		displacement: clamp01(b.PriceDisplacementATR / c.cfg.DisplacementFull),
		ret:          clamp01(b.Return1hSigma / c.cfg.ReturnSigmaFull),
	}
}

// Composite is the weighted mean of the normalized sub-scores.
func (c *Classifier) Composite(b ScoreBundle) float64 {
	n := c.normalize(b)
	w := c.cfg.Weights
	sum := w.OI*n.oi + w.Volume*n.volume + w.Displacement*n.displacement + w.Return*n.ret
	return clamp01(sum / w.sum())
}

// tier picks the verdict strictly above each threshold, so a composite sitting
// exactly on a boundary resolves to the lower tier.
func (c *Classifier) tier(composite float64) Verdict {
	t := c.cfg.Thresholds
	switch {
	case composite > t.Strong:
		return VerdictStrongAlert
	case composite > t.Alert:
		return VerdictAlert
	case composite > t.Watch:
		return VerdictWatch
	default:
		return VerdictNone
	}
}

func (c *Classifier) nextThreshold(v Verdict) (float64, bool) {
	switch v {
	case VerdictNone:
		return c.cfg.Thresholds.Watch, true
	case VerdictWatch:
		return c.cfg.Thresholds.Alert, true
	case VerdictAlert:
		return c.cfg.Thresholds.Strong, true
	case VerdictStrongAlert:
		return 0, false
	default:
		return 0, false
	}
}

func (c *Classifier) Classify(b ScoreBundle) Classification {
	composite := c.Composite(b)
	flags := 0
	if b.LiquiditySweep {
		flags++
	}
	if b.StructureBreak {
		flags++
	}

	verdict := c.tier(composite)
	if flags > 0 {
		verdict = c.promote(verdict, composite, c.normalize(b))
	}

	return Classification{
		Verdict:    verdict,
		Severity:   SeverityOf(verdict),
		Confidence: clamp01(composite + c.cfg.FlagBoost*float64(flags)),
		Composite:  composite,
	}
}

// promote lets the sweep/structure flags break near-ties. From NONE a flag can
// only reach WATCH; higher tiers also need a primary driver to be active.
func (c *Classifier) promote(v Verdict, composite float64, n normalized) Verdict {
	switch v {
	case VerdictNone:
		if composite > c.cfg.FlagWatchFloor {
			return VerdictWatch
		}
		return v
	case VerdictWatch, VerdictAlert:
		next, ok := c.nextThreshold(v)
		if !ok || n.oi+n.volume == 0 {
			return v
		}
		if next-composite <= c.cfg.FlagPromoteMargin {
			return v + 1
		}
		return v
	case VerdictStrongAlert:
		return v
	default:
		return VerdictNone
	}
}
