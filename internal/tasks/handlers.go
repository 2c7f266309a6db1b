package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"pageguard/internal/models"
	"pageguard/internal/utils/logger"
)

// OTPMailer sends reset codes.
type OTPMailer interface {
	SendOTP(ctx context.Context, to, name, code string, ttl time.Duration) error
}

// TaskHandler processes background tasks
type TaskHandler struct {
	db     *gorm.DB
	mailer OTPMailer
	logger *logger.Logger
	now    func() time.Time
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(db *gorm.DB, mailer OTPMailer) *TaskHandler {
	return &TaskHandler{
		db:     db,
		mailer: mailer,
		logger: logger.New("TASK-HANDLER"),
		now:    time.Now,
	}
}

// HandleOTPEmail delivers one reset code.
func (h *TaskHandler) HandleOTPEmail(ctx context.Context, t *asynq.Task) error {
	var p OTPEmailPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("invalid %s payload: %v: %w", TaskTypeOTPEmail, err, asynq.SkipRetry)
	}
	if p.Email == "" || p.Code == "" {
		return fmt.Errorf("incomplete %s payload: %w", TaskTypeOTPEmail, asynq.SkipRetry)
	}
	return h.mailer.SendOTP(ctx, p.Email, p.Name, p.Code, p.TTL())
}

// HandlePurgeExpired removes sessions and reset codes that can no longer be used.
func (h *TaskHandler) HandlePurgeExpired(ctx context.Context, _ *asynq.Task) error {
	sessions, resets, err := h.PurgeExpired(ctx)
	if err != nil {
		return err
	}
	h.logger.Info("Purged %d sessions and %d reset codes", sessions, resets)
	return nil
}

// PurgeExpired deletes expired or revoked sessions and expired or used reset codes.
func (h *TaskHandler) PurgeExpired(ctx context.Context) (int64, int64, error) {
	now := h.now().UTC()
	db := h.db.WithContext(ctx)

	sessions := db.Where("expires_at <= ? OR revoked_at IS NOT NULL", now).Delete(&models.AuthSession{})
	if sessions.Error != nil {
		return 0, 0, h.logger.Error("Failed to purge sessions", sessions.Error)
	}
	resets := db.Where("expires_at <= ? OR used = ?", now, true).Delete(&models.PasswordReset{})
	if resets.Error != nil {
		return sessions.RowsAffected, 0, h.logger.Error("Failed to purge reset codes", resets.Error)
	}
	return sessions.RowsAffected, resets.RowsAffected, nil
}
