package radar

import (
	"errors"
	"fmt"
)

var ErrInvalidPolicy = errors.New("invalid policy")

// Validate rejects settings that withDefaults would otherwise silently
// replace, so runtime edits fail loudly instead of reverting.
func (c ScorerConfig) Validate() error {
	switch {
	case c.MinHistory <= 0, c.SMAPeriod <= 0, c.ATRPeriod <= 0, c.OIZScorePeriod <= 0,
		c.LiquidityWindow <= 0, c.SwingLookback <= 0:
		return fmt.Errorf("scorer: periods must be positive, got %+v", c)
	case c.ReturnLookback <= 0:
		return fmt.Errorf("scorer: return lookback must be positive, got %s", c.ReturnLookback)
	case c.ReturnMinCoverage <= 0 || c.ReturnMinCoverage > 1:
		return fmt.Errorf("scorer: return min coverage must be in (0,1], got %v", c.ReturnMinCoverage)
	case c.ReturnSigmaMultiplier <= 0:
		return fmt.Errorf("scorer: return sigma multiplier must be positive, got %v", c.ReturnSigmaMultiplier)
	case c.SweepRetrace <= 0 || c.SweepRetrace > 1:
		return fmt.Errorf("scorer: sweep retrace must be in (0,1], got %v", c.SweepRetrace)
	}
	return nil
}

// Policy is the tunable part of the radar: how a window is scored and how a
// score bundle becomes a verdict.
type Policy struct {
	Scorer     ScorerConfig     `json:"scorer"`
	Classifier ClassifierConfig `json:"classifier"`
}

func (p Policy) Validate() error {
	if err := p.Scorer.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPolicy, err)
	}
	if err := p.Classifier.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPolicy, err)
	}
	return nil
}

// Build validates p and returns the scorer and classifier it describes.
func (p Policy) Build() (*Scorer, *Classifier, error) {
	if err := p.Validate(); err != nil {
		return nil, nil, err
	}
	classifier, err := NewClassifier(p.Classifier)
	if err != nil {
		return nil, nil, err
	}
	return NewScorer(p.Scorer), classifier, nil
}
