// Package notify delivers e-mail over SMTP.
package notify

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/gomail.v2"

	"pageguard/internal/config"
	"pageguard/internal/utils/logger"
)

// Mailer sends transactional e-mail through one SMTP relay.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
	log    *logger.Logger
}

func NewMailer(cfg config.SMTPConfig) *Mailer {
	return &Mailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		log:    logger.New("MAILER"),
	}
}

// SendOTP mails a password reset code.
func (m *Mailer) SendOTP(ctx context.Context, to, name, code string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := OTPMessage(m.from, to, name, code, ttl)
	if err := m.dialer.DialAndSend(msg); err != nil {
		return m.log.Error("Failed to send reset code to %s", err, to)
	}
	m.log.Info("Reset code sent to %s", to)
	return nil
}

// OTPMessage builds the password reset e-mail.
func OTPMessage(from, to, name, code string, ttl time.Duration) *gomail.Message {
	if name == "" {
		name = to
	}
	minutes := int(ttl.Minutes())

	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Your password reset code")
	msg.SetBody("text/plain", fmt.Sprintf(
		"Hello %s,\n\nYour password reset code is %s. It expires in %d minutes.\n\nIf you did not ask for a reset you can ignore this e-mail.\n",
		name, code, minutes))
	msg.AddAlternative("text/html", fmt.Sprintf(
		`<p>Hello %s,</p><p>Your password reset code is <strong>%s</strong>. It expires in %d minutes.</p><p>If you did not ask for a reset you can ignore this e-mail.</p>`,
		name, code, minutes))
	return msg
}
