package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/ecowatch_reports/internal/models"
	"github.com/shenikar/ecowatch_reports/internal/webhook"
	"github.com/shenikar/ecowatch_reports/pkg/datauri"
	"github.com/sirupsen/logrus"
)

// ReportService определяет контракт приёма отчётов об инцидентах
type ReportService interface {
	SubmitReport(ctx context.Context, report *models.IncidentReport) error
}

type reportService struct {
	dispatcher webhook.Dispatcher
	logger     *logrus.Logger
	now        func() time.Time
}

func NewReportService(dispatcher webhook.Dispatcher, logger *logrus.Logger) ReportService {
	return &reportService{
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// SubmitReport присваивает отчёту ID и время приёма и отправляет его ровно один раз.
// Ошибка доставки не возвращается вызывающему: пользователь всегда получает подтверждение.
func (s *reportService) SubmitReport(ctx context.Context, report *models.IncidentReport) error {
	report.ID = uuid.New()
	report.SubmittedAt = s.now().UTC()

	log := s.logger.WithFields(logrus.Fields{
		"service":   "report",
		"method":    "SubmitReport",
		"report_id": report.ID,
		"type":      report.Type,
	})
	log.Debug("Dispatching incident report")

	payload := ToPayload(report)

	// Приём уже состоялся, отмена клиентом не должна обрывать пересылку
	err := s.dispatcher.Dispatch(context.WithoutCancel(ctx), payload)
	if err == nil {
		return nil
	}

	if errors.Is(err, webhook.ErrDelivery) {
		entry := log.WithError(err)
		var statusErr *webhook.StatusError
		if errors.As(err, &statusErr) {
			entry = entry.WithFields(logrus.Fields{
				"status": statusErr.StatusCode,
				"body":   statusErr.Body,
			})
		}
		entry.Warn("Webhook forward failed")
		return nil
	}

	log.WithError(err).Error("Failed to dispatch incident report")
	return fmt.Errorf("service: could not dispatch report: %w", err)
}

// ToPayload нормализует отчёт: вложения превращаются в data URI
func ToPayload(report *models.IncidentReport) models.ReportPayload {
	payload := models.ReportPayload{
		ID:            report.ID.String(),
		Type:          string(report.Type),
		Description:   report.Description,
		Location:      report.Location,
		LocationQuery: report.LocationQuery,
		SubmittedAt:   report.SubmittedAt.UTC().Format(models.TimestampLayout),
		UserAgent:     report.UserAgent,
	}
	if report.Image != nil {
		payload.Image = datauri.Encode(report.Image.ContentType, report.Image.Data)
	}
	if report.Audio != nil {
		payload.Audio = datauri.Encode(report.Audio.ContentType, report.Audio.Data)
	}
	return payload
}
