package schedule

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

type Task interface {
	Run(ctx context.Context) error
	Name() string
}

const DefaultInterval = time.Minute

// Every runs task immediately and then once per interval until ctx is done.
// A failed run is logged and does not stop the schedule. A non-positive
// interval falls back to DefaultInterval.
func Every(ctx context.Context, interval time.Duration, task Task, logger zerolog.Logger) {
	logger = logger.With().Str("task", task.Name()).Logger()
	if interval <= 0 {
		logger.Warn().Dur("interval", interval).Dur("fallback", DefaultInterval).Msg("non-positive task interval")
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		start := time.Now()
		if err := task.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("task run failed")
		} else {
			logger.Debug().Dur("took", time.Since(start)).Msg("task run finished")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
