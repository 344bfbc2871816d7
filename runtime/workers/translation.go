package workers

import (
	"context"
	"log/slog"

	"babelroom/contract"
	"babelroom/domain"
	"babelroom/translation"
)

var _ contract.Worker = (*TranslationWorker)(nil)

// FanoutJob is one persisted message with its resolved target set,
// waiting for cache population.
type FanoutJob struct {
	Message domain.Message
	Targets []translation.Target
}

// TranslationWorker consumes fan-out jobs and drives the engine.
// Several units run as a pool: messages are independent and progress
// concurrently, while tier ordering inside one message is the engine's
// job.
type TranslationWorker struct {
	engine *translation.Engine
	jobs   chan FanoutJob
	log    *slog.Logger
}

func NewTranslationWorker(engine *translation.Engine, jobs chan FanoutJob, log *slog.Logger) *TranslationWorker {
	return &TranslationWorker{engine: engine, jobs: jobs, log: log}
}

func (w *TranslationWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping worker")
			return ctx.Err()
		case job, ok := <-w.jobs:
			if !ok {
				w.log.Debug("Channel is closed")
				return nil
			}
			w.engine.FanOut(ctx, job.Message, job.Targets)
		}
	}
}
