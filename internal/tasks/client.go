package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"pageguard/internal/config"
	"pageguard/internal/utils/logger"
)

// TaskClient enqueues background work
type TaskClient struct {
	client *asynq.Client
	logger *logger.Logger
}

func redisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// NewTaskClient creates a new TaskClient with the given Redis configuration
func NewTaskClient(cfg config.RedisConfig) *TaskClient {
	return &TaskClient{
		client: asynq.NewClient(redisOpt(cfg)),
		logger: logger.New("TASKS"),
	}
}

// EnqueueOTPEmail schedules delivery of a reset code. The task is dropped once
// the code has expired.
func (c *TaskClient) EnqueueOTPEmail(ctx context.Context, email, name, code string, ttl time.Duration) error {
	payload, err := json.Marshal(OTPEmailPayload{
		Email:      email,
		Name:       name,
		Code:       code,
		TTLSeconds: int(ttl.Seconds()),
	})
	if err != nil {
		return fmt.Errorf("failed to encode otp payload: %w", err)
	}

	info, err := c.client.EnqueueContext(ctx,
		asynq.NewTask(TaskTypeOTPEmail, payload),
		asynq.Queue(QueueCritical),
		asynq.MaxRetry(RetryDefault),
		asynq.Timeout(TimeoutShort),
		asynq.Deadline(time.Now().Add(ttl)),
	)
	if err != nil {
		return c.logger.Error("Failed to enqueue %s", err, TaskTypeOTPEmail)
	}

	c.logger.Info("Enqueued %s %s on %s", TaskTypeOTPEmail, info.ID, info.Queue)
	return nil
}

// Close closes the underlying asynq client
func (c *TaskClient) Close() error {
	return c.client.Close()
}
