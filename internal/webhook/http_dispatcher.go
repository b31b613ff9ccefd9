package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/shenikar/ecowatch_reports/internal/config"
	"github.com/shenikar/ecowatch_reports/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	signatureHeader = "X-Webhook-Signature"
	// сколько байт ответа адресата попадает в ошибку
	maxErrorBodyBytes = 1024
)

// HTTPDispatcher пересылает отчёт JSON-запросом на настроенный адрес
type HTTPDispatcher struct {
	url        string
	secret     string
	logger     *logrus.Logger
	httpClient *http.Client
}

// NewHTTPDispatcher создает новый HTTPDispatcher
func NewHTTPDispatcher(cfg *config.Config, logger *logrus.Logger) *HTTPDispatcher {
	return &HTTPDispatcher{
		url:    cfg.WebhookURL,
		secret: cfg.WebhookSecret,
		logger: logger,
		httpClient: &http.Client{
			Timeout: cfg.WebhookTimeout,
		},
	}
}

// Dispatch отправляет отчёт один раз, без повторов
func (d *HTTPDispatcher) Dispatch(ctx context.Context, payload models.ReportPayload) error {
	log := d.logger.WithField("report_id", payload.ID)

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEncode, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: could not build request: %v", ErrDelivery, err)
	}
	req.Header.Set("Content-Type", "application/json")

	// Добавляем HMAC подпись, если WEBHOOK_SECRET задан
	if d.secret != "" {
		req.Header.Set(signatureHeader, generateHMACSHA256(body, d.secret))
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		log.WithField("status", resp.StatusCode).Info("Report forwarded to webhook")
		return nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	return &StatusError{StatusCode: resp.StatusCode, Body: string(snippet)}
}

// generateHMACSHA256 генерирует HMAC-SHA256 подпись для данных
func generateHMACSHA256(data []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
