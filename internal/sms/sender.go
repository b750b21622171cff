package sms

import (
	"context"
	"fmt"

	"github.com/quarrydirect/portal/internal/common/config"

	"go.uber.org/zap"
)

// Sender delivers text messages. The OTP engine calls it fire-and-forget;
// delivery failures never fail the authentication request.
type Sender interface {
	Send(ctx context.Context, phone, message string) error
}

// NewSender creates a sender based on configuration
func NewSender(logger *zap.Logger, cfg *config.SMSConfig) (Sender, error) {
	switch cfg.Provider {
	case "bulksms":
		return NewBulkSMSSender(logger, cfg), nil
	case "log":
		return NewLogSender(logger), nil
	default:
		return nil, fmt.Errorf("unsupported sms provider: %s", cfg.Provider)
	}
}

// LogSender writes messages to the log instead of delivering them. Default
// in development so OTP codes are visible without an SMS account.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates a logging no-op sender
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger.Named("sms.log")}
}

// Send implements Sender.Send
func (s *LogSender) Send(_ context.Context, phone, message string) error {
	s.logger.Warn("sms not delivered (log provider)",
		zap.String("phone", phone),
		zap.String("message", message))
	return nil
}
