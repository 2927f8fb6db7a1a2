package bootstrap

import (
	"context"
	"fmt"

	"github.com/book-expert/logger"
	"github.com/book-expert/tts-bootstrap/internal/core"
)

// stageTracker reports each stage to the log and the status notifier.
type stageTracker struct {
	notifier core.StatusNotifier
	log      *logger.Logger
	runID    string
}

// run executes fn as stage. The error is wrapped with the stage name.
func (s *stageTracker) run(ctx context.Context, stage core.Stage, fn func() error) error {
	s.log.Info("[%s] Stage %s started", s.runID, stage)
	s.notifier.Notify(ctx, stage, core.StateStarted, nil)

	err := fn()
	if err != nil {
		s.log.Error("[%s] Stage %s failed: %v", s.runID, stage, err)
		s.notifier.Notify(ctx, stage, core.StateFailed, err)

		return fmt.Errorf("stage %s: %w", stage, err)
	}

	s.log.Info("[%s] Stage %s done", s.runID, stage)
	s.notifier.Notify(ctx, stage, core.StateDone, nil)

	return nil
}

// done reports a stage that completes without running anything that can fail.
func (s *stageTracker) done(ctx context.Context, stage core.Stage) {
	s.log.Info("[%s] Stage %s done", s.runID, stage)
	s.notifier.Notify(ctx, stage, core.StateDone, nil)
}
