package notification

import (
	"context"

	"github.com/KNICEX/oi-radar/internal/service/radar"
	"github.com/rs/zerolog"
)

// AlertNotifier 告警通知, 与 monitor.Notifier 一致
type AlertNotifier interface {
	Notify(ctx context.Context, alert radar.Alert) error
}

// LogNotifier writes each alert to the log.
type LogNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, alert radar.Alert) error {
	n.logger.Info().
		Str("symbol", alert.Symbol).
		Stringer("verdict", alert.Verdict).
		Str("direction", string(alert.Direction)).
		Float64("confidence", alert.Confidence).
		Msg("find radar alert")
	return nil
}
