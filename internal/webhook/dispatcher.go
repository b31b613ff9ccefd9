package webhook

import (
	"context"
	"errors"
	"fmt"

	"github.com/shenikar/ecowatch_reports/internal/config"
	"github.com/shenikar/ecowatch_reports/internal/models"
	"github.com/sirupsen/logrus"
)

var (
	// ErrDelivery - адресат недоступен или ответил не 2xx
	ErrDelivery = errors.New("webhook delivery failed")
	// ErrEncode - отчёт не удалось сериализовать
	ErrEncode = errors.New("webhook payload encoding failed")
)

// Dispatcher - интерфейс для однократной отправки отчёта
type Dispatcher interface {
	Dispatch(ctx context.Context, payload models.ReportPayload) error
}

// StatusError - адресат ответил статусом вне диапазона 2xx
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("webhook responded with status %d", e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	return ErrDelivery
}

// NewDispatcher выбирает отправку по HTTP, если задан REPORT_WEBHOOK_URL, иначе только логирует
func NewDispatcher(cfg *config.Config, logger *logrus.Logger) Dispatcher {
	if cfg.ForwardingEnabled() {
		return NewHTTPDispatcher(cfg, logger)
	}
	return NewLogDispatcher(logger)
}
