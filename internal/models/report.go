package models

import (
	"time"

	"github.com/google/uuid"
)

// IncidentType - категория инцидента
type IncidentType string

const (
	IncidentWildfire      IncidentType = "wildfire"
	IncidentDeforestation IncidentType = "deforestation"
	IncidentOther         IncidentType = "other"
)

// DefaultIncidentType выбирается формой по умолчанию
const DefaultIncidentType = IncidentWildfire

// IncidentTypes перечисляет категории в порядке показа в форме
var IncidentTypes = []IncidentType{IncidentWildfire, IncidentDeforestation, IncidentOther}

// Location - координаты места инцидента
type Location struct {
	Latitude  float64  `json:"lat"`
	Longitude float64  `json:"lng"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
}

// Attachment - полностью прочитанное бинарное вложение
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// IncidentReport существует только в течение одного запроса
type IncidentReport struct {
	ID            uuid.UUID
	Type          IncidentType
	Description   string
	LocationQuery string
	Location      *Location
	Image         *Attachment
	Audio         *Attachment
	SubmittedAt   time.Time
	UserAgent     string
}

// ReportPayload - JSON, который уходит на вебхук или в лог
type ReportPayload struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	Description   string    `json:"description"`
	Location      *Location `json:"location,omitempty"`
	LocationQuery string    `json:"locationQuery,omitempty"`
	SubmittedAt   string    `json:"submittedAt"`
	UserAgent     string    `json:"userAgent"`
	Image         string    `json:"image,omitempty"`
	Audio         string    `json:"audio,omitempty"`
}

// TimestampLayout - ISO-8601 с миллисекундами в UTC
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// AttachmentInfo - сведения о вложении без самих байт
type AttachmentInfo struct {
	Filename    string `json:"filename,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	Size        int    `json:"size"`
}

// Receipt - последний отправленный формой отчёт, хранится локально для экспорта
type Receipt struct {
	ReportID      string          `json:"reportId,omitempty"`
	Type          IncidentType    `json:"type"`
	Description   string          `json:"description"`
	Location      *Location       `json:"location,omitempty"`
	LocationQuery string          `json:"locationQuery,omitempty"`
	SubmittedAt   time.Time       `json:"submittedAt"`
	Image         *AttachmentInfo `json:"image,omitempty"`
	Audio         *AttachmentInfo `json:"audio,omitempty"`
	Delivered     bool            `json:"delivered"`
	ServerMessage string          `json:"serverMessage,omitempty"`
}

// Info возвращает сведения о вложении; nil для nil
func (a *Attachment) Info() *AttachmentInfo {
	if a == nil {
		return nil
	}
	return &AttachmentInfo{Filename: a.Filename, ContentType: a.ContentType, Size: len(a.Data)}
}
