package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"lifepulse/internal/infrastructure/logging"
)

// Job is the unit of scheduled work. The context is cancelled when the
// scheduler stops.
type Job func(ctx context.Context)

// Scheduler runs the sync pipeline on a fixed interval. Overlapping runs are
// skipped rather than queued: if a sweep is still uploading when the next
// tick fires, the tick is dropped. TriggerNow shares the same guard, so a
// manual sync never races a scheduled one.
type Scheduler struct {
	cron    *cron.Cron
	guarded cron.Job
	cancel  context.CancelFunc
	logger  logging.Logger
}

// New creates a scheduler that runs job every interval
func New(interval time.Duration, job Job, logger logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	cronLog := &cronLogger{logger: logger}

	s := &Scheduler{
		cron:   cron.New(cron.WithLogger(cronLog)),
		cancel: cancel,
		logger: logger,
	}

	s.guarded = cron.NewChain(
		cron.Recover(cronLog),
		cron.SkipIfStillRunning(cronLog),
	).Then(cron.FuncJob(func() { job(ctx) }))

	s.cron.Schedule(cron.Every(interval), s.guarded)
	return s
}

// Start begins interval scheduling in the background
func (s *Scheduler) Start() {
	s.logger.Info("Scheduler started")
	s.cron.Start()
}

// TriggerNow runs the job immediately in the background. If a run is already
// in flight the trigger is skipped, same as a scheduled tick would be.
func (s *Scheduler) TriggerNow() {
	s.logger.Info("Manual sync triggered")
	go s.guarded.Run()
}

// Stop cancels the job context, halts scheduling, and waits for any in-flight
// run to return
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

// cronLogger adapts the structured logger to cron's logging interface
type cronLogger struct {
	logger logging.Logger
}

func (c *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.logger.Debug(fmt.Sprintf("cron: %s", msg), keysAndValues...)
}

func (c *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	fields := append([]interface{}{"error", err}, keysAndValues...)
	c.logger.Error(fmt.Sprintf("cron: %s", msg), fields...)
}
