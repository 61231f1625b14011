package schedule

import (
	"context"

	"github.com/rs/zerolog"
)

type Pruner interface {
	Prune(ctx context.Context) (int64, error)
}

// RetentionTask trims the alert log to its retention horizon and record cap.
type RetentionTask struct {
	pruner Pruner
	logger zerolog.Logger
}

func NewRetentionTask(pruner Pruner, logger zerolog.Logger) Task {
	return &RetentionTask{pruner: pruner, logger: logger}
}

func (t *RetentionTask) Run(ctx context.Context) error {
	removed, err := t.pruner.Prune(ctx)
	if err != nil {
		return err
	}
	if removed > 0 {
		t.logger.Info().Int64("removed", removed).Msg("pruned expired alerts")
	}
	return nil
}

func (t *RetentionTask) Name() string {
	return "alert retention task"
}
