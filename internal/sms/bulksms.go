package sms

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/quarrydirect/portal/internal/common/config"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const defaultBulkSMSURL = "https://api.bulksms.com/v1"

// BulkSMSSender delivers messages through the BulkSMS JSON API.
type BulkSMSSender struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

var _ Sender = (*BulkSMSSender)(nil)

type bulkSMSMessage struct {
	To       []string `json:"to"`
	Body     string   `json:"body"`
	Encoding string   `json:"encoding"`
}

// NewBulkSMSSender creates a BulkSMS API client
func NewBulkSMSSender(logger *zap.Logger, cfg *config.SMSConfig) *BulkSMSSender {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBulkSMSURL
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(1 * time.Second).
		SetBasicAuth(cfg.Username, cfg.Password).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &BulkSMSSender{
		httpClient: client,
		logger:     logger.Named("sms.bulksms"),
	}
}

// Send implements Sender.Send
func (s *BulkSMSSender) Send(ctx context.Context, phone, message string) error {
	body := bulkSMSMessage{
		To:       []string{formatPhone(phone)},
		Body:     message,
		Encoding: "UNICODE",
	}

	resp, err := s.httpClient.R().
		SetContext(ctx).
		SetBody(body).
		Post("/messages")
	if err != nil {
		s.logger.Error("bulksms request failed", zap.Error(err))
		return fmt.Errorf("failed to send sms: %w", err)
	}
	if resp.IsError() {
		s.logger.Error("bulksms returned error",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("body", resp.String()))
		return fmt.Errorf("bulksms error: status %d", resp.StatusCode())
	}

	s.logger.Info("sms sent", zap.String("phone", phone))
	return nil
}

// formatPhone converts a local number to the international form BulkSMS
// expects (South African numbering).
func formatPhone(phone string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	p := digits.String()
	switch {
	case strings.HasPrefix(p, "0"):
		return "27" + p[1:]
	case strings.HasPrefix(p, "27"):
		return p
	default:
		return "27" + p
	}
}
