package otp

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/quarrydirect/portal/internal/common/config"
)

// NewStore creates a new OTP store based on configuration
func NewStore(logger *zap.Logger, cfg *config.OTPConfig) (Store, error) {
	logger.Info("initializing otp store", zap.String("type", cfg.Store))
	switch cfg.Store {
	case "memory":
		return NewMemoryStore(logger), nil
	case "redis":
		return NewRedisStore(logger, cfg.Redis)
	default:
		return nil, fmt.Errorf("unsupported otp store type: %s", cfg.Store)
	}
}
