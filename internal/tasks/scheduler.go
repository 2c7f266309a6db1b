package tasks

import (
	"fmt"

	"github.com/hibiken/asynq"

	"pageguard/internal/config"
	"pageguard/internal/utils/logger"
)

// Scheduler handles periodic task scheduling
type Scheduler struct {
	scheduler *asynq.Scheduler
	purgeSpec string
	logger    *logger.Logger
}

// NewScheduler creates a new task scheduler. purgeSpec is a standard cron expression.
func NewScheduler(cfg config.RedisConfig, purgeSpec string) *Scheduler {
	return &Scheduler{
		scheduler: asynq.NewScheduler(redisOpt(cfg), &asynq.SchedulerOpts{}),
		purgeSpec: purgeSpec,
		logger:    logger.New("SCHEDULER"),
	}
}

// Start registers the periodic tasks and blocks running the scheduler
func (s *Scheduler) Start() error {
	if err := s.registerTasks(); err != nil {
		return fmt.Errorf("failed to register tasks: %w", err)
	}

	s.logger.Info("starting task scheduler")
	return s.scheduler.Run()
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.scheduler.Shutdown()
	s.logger.Info("task scheduler stopped")
}

func (s *Scheduler) registerTasks() error {
	entryID, err := s.scheduler.Register(s.purgeSpec,
		asynq.NewTask(TaskTypePurgeExpired, nil),
		asynq.Queue(QueueLow),
		asynq.MaxRetry(RetryMin),
		asynq.Timeout(TimeoutMedium),
	)
	if err != nil {
		return fmt.Errorf("failed to register %s: %w", TaskTypePurgeExpired, err)
	}

	s.logger.Info("registered %s %s %s", TaskTypePurgeExpired, s.purgeSpec, entryID)
	return nil
}
