package radar

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrOutOfOrderSnapshot = errors.New("radar: out of order snapshot")
	ErrUnknownVerdict     = errors.New("radar: unknown verdict")
	ErrUnknownSeverity    = errors.New("radar: unknown severity")
	ErrUnknownDirection   = errors.New("radar: unknown direction")
)

// Snapshot 单个交易对在某一时刻的观测
type Snapshot struct {
	Symbol       string    `json:"symbol"`
	Timestamp    time.Time `json:"timestamp"`
	Price        float64   `json:"price"`
	High         float64   `json:"high"`
	Low          float64   `json:"low"`
	Volume       float64   `json:"volume"`
	OpenInterest float64   `json:"open_interest"`
}

// Normalize fills a missing intra-tick range with the price and pins the
// timestamp to UTC milliseconds so snapshots survive a JSON round trip unchanged.
func (s Snapshot) Normalize() Snapshot {
	if s.High == 0 {
		s.High = s.Price
	}
	if s.Low == 0 {
		s.Low = s.Price
	}
	if s.High < s.Low {
		s.High, s.Low = s.Low, s.High
	}
	s.Timestamp = time.UnixMilli(s.Timestamp.UnixMilli()).UTC()
	return s
}

type Verdict int

const (
	VerdictNone Verdict = iota
	VerdictWatch
	VerdictAlert
	VerdictStrongAlert
)

func (v Verdict) String() string {
	switch v {
	case VerdictNone:
		return "NONE"
	case VerdictWatch:
		return "WATCH"
	case VerdictAlert:
		return "ALERT"
	case VerdictStrongAlert:
		return "STRONG_ALERT"
	default:
		return fmt.Sprintf("Verdict(%d)", int(v))
	}
}

func (v Verdict) Valid() bool {
	return v >= VerdictNone && v <= VerdictStrongAlert
}

func ParseVerdict(s string) (Verdict, error) {
	switch s {
	case "NONE":
		return VerdictNone, nil
	case "WATCH":
		return VerdictWatch, nil
	case "ALERT":
		return VerdictAlert, nil
	case "STRONG_ALERT":
		return VerdictStrongAlert, nil
	default:
		return VerdictNone, fmt.Errorf("%w: %q", ErrUnknownVerdict, s)
	}
}

func (v Verdict) MarshalText() ([]byte, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownVerdict, int(v))
	}
	return []byte(v.String()), nil
}

func (v *Verdict) UnmarshalText(b []byte) error {
	parsed, err := ParseVerdict(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

type Severity int

const (
	SeverityNone Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
)

func (s Severity) String() string {
	switch s {
	case SeverityNone:
		return "NONE"
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

func (s Severity) MarshalText() ([]byte, error) {
	switch s {
	case SeverityNone, SeverityLow, SeverityMedium, SeverityHigh:
		return []byte(s.String()), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownSeverity, int(s))
	}
}

func (s *Severity) UnmarshalText(b []byte) error {
	switch string(b) {
	case "NONE":
		*s = SeverityNone
	case "LOW":
		*s = SeverityLow
	case "MEDIUM":
		*s = SeverityMedium
	case "HIGH":
		*s = SeverityHigh
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSeverity, string(b))
	}
	return nil
}

// SeverityOf maps each verdict tier onto its severity.
func SeverityOf(v Verdict) Severity {
	switch v {
	case VerdictNone:
		return SeverityNone
	case VerdictWatch:
		return SeverityLow
	case VerdictAlert:
		return SeverityMedium
	case VerdictStrongAlert:
		return SeverityHigh
	default:
		return SeverityNone
	}
}

type Direction string

const (
	Bullish Direction = "bullish"
	Bearish Direction = "bearish"
)

func (d Direction) Valid() bool {
	return d == Bullish || d == Bearish
}

func (d Direction) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDirection, string(d))
	}
	return []byte(d), nil
}

func (d *Direction) UnmarshalText(b []byte) error {
	switch Direction(b) {
	case Bullish, Bearish:
		*d = Direction(b)
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDirection, string(b))
	}
}

// ScoreBundle 单次扫描计算出的异动分项
type ScoreBundle struct {
	VolumeRatio          float64   `json:"volume_ratio"`
	PriceDisplacementATR float64   `json:"price_displacement_atr"`
	OIZScore             float64   `json:"oi_zscore"`
	Return1h             float64   `json:"return_1h"`
	Return1hSigma        float64   `json:"return_1h_sigma"`
	Return1hOutlier      bool      `json:"return_1h_outlier"`
	LiquiditySweep       bool      `json:"liquidity_sweep"`
	StructureBreak       bool      `json:"structure_break"`
	Direction            Direction `json:"direction"`
	Samples              int       `json:"samples"`
}

// NeutralBundle is what the scorer reports when history is too short.
func NeutralBundle(samples int) ScoreBundle {
	return ScoreBundle{
		VolumeRatio: 1.0,
		Direction:   Bullish,
		Samples:     samples,
	}
}

// Classification 分类器输出
type Classification struct {
	Verdict    Verdict  `json:"verdict"`
	Severity   Severity `json:"severity"`
	Confidence float64  `json:"confidence"`
	Composite  float64  `json:"score"`
}

// Alert 持久化的告警, 写入后不可修改
type Alert struct {
	ID                string      `json:"id"`
	Symbol            string      `json:"symbol"`
	CreatedAt         time.Time   `json:"created_at"`
	Verdict           Verdict     `json:"verdict"`
	Severity          Severity    `json:"severity"`
	Confidence        float64     `json:"confidence"`
	Score             float64     `json:"score"`
	Direction         Direction   `json:"direction"`
	ScoreBundle       ScoreBundle `json:"score_bundle"`
	SnapshotAtTrigger Snapshot    `json:"snapshot_at_trigger"`
}

// Validate reports whether a can be encoded and decoded back unchanged.
func (a Alert) Validate() error {
	if a.ID == "" {
		return errors.New("radar: alert without id")
	}
	if !a.Verdict.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownVerdict, int(a.Verdict))
	}
	if _, err := a.Severity.MarshalText(); err != nil {
		return err
	}
	if !a.Direction.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownDirection, string(a.Direction))
	}
	if !a.ScoreBundle.Direction.Valid() {
		return fmt.Errorf("%w: score bundle %q", ErrUnknownDirection, string(a.ScoreBundle.Direction))
	}
	return nil
}

func (a Alert) Marshal() ([]byte, error) {
	return json.Marshal(a)
}

func UnmarshalAlert(b []byte) (Alert, error) {
	var a Alert
	if err := json.Unmarshal(b, &a); err != nil {
		return Alert{}, err
	}
	if !a.Verdict.Valid() {
		return Alert{}, fmt.Errorf("%w: %d", ErrUnknownVerdict, int(a.Verdict))
	}
	return a, nil
}
