// Package notify is the delivery boundary for OTP codes and account mail.
// Real SMS/email providers live behind the Sender interface; handlers and
// services never put codes into HTTP responses.
package notify

import (
	"context"
	"log/slog"
)

type Sender interface {
	SendSMS(ctx context.Context, phone, message string) error
	SendEmail(ctx context.Context, to, subject, body string) error
}

var _ Sender = (*LogSender)(nil)

// LogSender is the development Sender; it logs deliveries instead of
// calling a provider. Message bodies go to Debug so codes stay out of
// production-level logs.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendSMS(ctx context.Context, phone, message string) error {
	s.logger.InfoContext(ctx, "SMS dispatched", slog.String("phone", phone))
	s.logger.DebugContext(ctx, "SMS body", slog.String("message", message))
	return nil
}

func (s *LogSender) SendEmail(ctx context.Context, to, subject, body string) error {
	s.logger.InfoContext(ctx, "Email dispatched", slog.String("to", to), slog.String("subject", subject))
	s.logger.DebugContext(ctx, "Email body", slog.String("body", body))
	return nil
}
