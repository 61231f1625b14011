package monitor

import (
	"context"
	"time"

	"github.com/KNICEX/oi-radar/internal/service/radar"
)

// Phase 单个交易对扫描循环所处阶段
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseFetching
	PhaseScoring
	PhaseEmitting
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "IDLE"
	case PhaseFetching:
		return "FETCHING"
	case PhaseScoring:
		return "SCORING"
	case PhaseEmitting:
		return "EMITTING"
	default:
		return "UNKNOWN"
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// SnapshotSource 行情数据来源
type SnapshotSource interface {
	FetchSnapshot(ctx context.Context, symbol string) (radar.Snapshot, error)
}

type AlertStore interface {
	Append(ctx context.Context, alert radar.Alert) error
}

type Notifier interface {
	Notify(ctx context.Context, alert radar.Alert) error
}

// RadarService 监控服务接口
type RadarService interface {
	// Run scans symbols until ctx is cancelled and every in-flight tick has finished.
	Run(ctx context.Context, symbols []string) error
	Symbols() []string
	Phases() map[string]Phase
}

// PolicyTuner swaps the scoring policy of a running monitor.
type PolicyTuner interface {
	Policy() radar.Policy
	SetPolicy(p radar.Policy) error
	ResetPolicy() radar.Policy
}

type Config struct {
	ScanInterval      time.Duration `mapstructure:"scan_interval" json:"scan_interval"`
	FetchTimeout      time.Duration `mapstructure:"fetch_timeout" json:"fetch_timeout"`
	MaxConcurrency    int64         `mapstructure:"max_concurrency" json:"max_concurrency"`
	WindowSize        int           `mapstructure:"window_size" json:"window_size"`
	StoreWriteTimeout time.Duration `mapstructure:"store_write_timeout" json:"store_write_timeout"`
	StoreRetryBackoff time.Duration `mapstructure:"store_retry_backoff" json:"store_retry_backoff"`
}

func DefaultConfig() Config {
	return Config{
		ScanInterval:      15 * time.Second,
		FetchTimeout:      5 * time.Second,
		MaxConcurrency:    8,
		WindowSize:        240,
		StoreWriteTimeout: 2 * time.Second,
		StoreRetryBackoff: 50 * time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ScanInterval <= 0 {
		c.ScanInterval = d.ScanInterval
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = d.FetchTimeout
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = d.MaxConcurrency
	}
	if c.WindowSize <= 0 {
		c.WindowSize = d.WindowSize
	}
	if c.StoreWriteTimeout <= 0 {
		c.StoreWriteTimeout = d.StoreWriteTimeout
	}
	if c.StoreRetryBackoff <= 0 {
		c.StoreRetryBackoff = d.StoreRetryBackoff
	}
	return c
}
