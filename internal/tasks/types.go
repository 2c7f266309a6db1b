package tasks

import "time"

// Task Types
const (
	TaskTypeOTPEmail     = "email:otp"
	TaskTypePurgeExpired = "maintenance:purge_expired"
)

// Task Queues
const (
	QueueCritical = "critical" // For time-sensitive tasks like email sending
	QueueDefault  = "default"  // For regular tasks
	QueueLow      = "low"      // For background tasks like cleanup
)

// Task Timeouts
const (
	TimeoutShort  = 1 * time.Minute
	TimeoutMedium = 5 * time.Minute
)

// Task Retry Settings
const (
	RetryDefault = 3
	RetryMin     = 1
)

// OTPEmailPayload is the payload of TaskTypeOTPEmail.
type OTPEmailPayload struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	Code       string `json:"code"`
	TTLSeconds int    `json:"ttl_seconds"`
}

func (p OTPEmailPayload) TTL() time.Duration {
	return time.Duration(p.TTLSeconds) * time.Second
}
