package webhook

import (
	"context"

	"github.com/shenikar/ecowatch_reports/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	ImagePlaceholder = "<image base64>"
	AudioPlaceholder = "<audio base64>"
)

// LogDispatcher пишет отчёт в лог, когда адрес пересылки не настроен
type LogDispatcher struct {
	logger *logrus.Logger
}

func NewLogDispatcher(logger *logrus.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

// Dispatch пишет ровно одну запись; base64 вложений заменяется маркерами
func (d *LogDispatcher) Dispatch(_ context.Context, payload models.ReportPayload) error {
	if payload.Image != "" {
		payload.Image = ImagePlaceholder
	}
	if payload.Audio != "" {
		payload.Audio = AudioPlaceholder
	}

	d.logger.WithFields(logrus.Fields{
		"report_id": payload.ID,
		"report":    payload,
	}).Info("Report received (no webhook configured)")
	return nil
}
