package runner

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
)

// Schedule calls fn on every tick of the cron expression spec until ctx is
// cancelled. A tick that arrives while fn is still running is skipped rather
// than queued. Returns once the last running call has finished.
func Schedule(ctx context.Context, spec string, logger arbor.ILogger, fn func(ctx context.Context)) error {
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}

	c := cron.New(cron.WithChain(
		cron.Recover(cronLogger{logger}),
		cron.SkipIfStillRunning(cronLogger{logger}),
	))

	id, err := c.AddFunc(spec, func() {
		if ctx.Err() != nil {
			return
		}
		fn(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	c.Start()
	logger.Info().
		Str("schedule", spec).
		Str("next_run", c.Entry(id).Next.Format("2006-01-02 15:04:05")).
		Msg("Scheduler started")

	<-ctx.Done()

	// Stop prevents new ticks; the returned context is done once running jobs return
	<-c.Stop().Done()

	logger.Info().Msg("Scheduler stopped")
	return nil
}

// cronLogger adapts arbor to cron's logging interface
type cronLogger struct {
	logger arbor.ILogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Str("cron", fmt.Sprint(keysAndValues...)).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Str("cron", fmt.Sprint(keysAndValues...)).Msg(msg)
}
