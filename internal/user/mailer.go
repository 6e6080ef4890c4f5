package user

import (
	"context"
	"log/slog"
)

// Mailer delivers one-time passwords.
type Mailer interface {
	SendOTP(ctx context.Context, email, code string) error
}

// LogMailer writes codes to the log instead of sending mail. It is meant for
// development setups.
type LogMailer struct {
	From   string
	Logger *slog.Logger
}

func (m *LogMailer) SendOTP(ctx context.Context, email, code string) error {
	l := m.Logger
	if l == nil {
		l = slog.Default()
	}

	l.InfoContext(ctx, "otp issued",
		slog.String("from", m.From),
		slog.String("to", email),
		slog.String("subject", "Your Login OTP"),
		slog.String("code", code),
	)

	return nil
}
