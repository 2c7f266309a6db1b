package notify

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pageguard/internal/config"
)

func TestOTPMessage(t *testing.T) {
	msg := OTPMessage("no-reply@example.com", "amy@example.com", "Amy Pond", "482913", 10*time.Minute)

	assert.Equal(t, []string{"amy@example.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"Your password reset code"}, msg.GetHeader("Subject"))

	var buf bytes.Buffer
	_, err := msg.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "482913")
	assert.Contains(t, buf.String(), "10 minutes")
}

func TestSendOTPHonoursCancelledContext(t *testing.T) {
	m := NewMailer(config.SMTPConfig{Host: "localhost", Port: 2525, From: "no-reply@example.com"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, m.SendOTP(ctx, "amy@example.com", "", "123456", time.Minute), context.Canceled)
}
