package v1

import "github.com/shenikar/ecowatch_reports/internal/models"

// FormToReport преобразует форму и прочитанные вложения в доменную модель
func FormToReport(form ReportForm, image, audio *models.Attachment, userAgent string) *models.IncidentReport {
	return &models.IncidentReport{
		Type:          models.IncidentType(form.Type),
		Description:   form.Description,
		LocationQuery: form.LocationQuery,
		Location:      models.ParseLocation(form.Latitude, form.Longitude, form.Accuracy),
		Image:         image,
		Audio:         audio,
		UserAgent:     userAgent,
	}
}
