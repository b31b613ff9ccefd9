package v1

import "strings"

// ReportForm DTO полей формы отчёта об инциденте
// @Description Поля multipart-формы отчёта (файлы image и audio передаются отдельными частями)
type ReportForm struct {
	Type          string `form:"type" validate:"required"`
	Description   string `form:"description" validate:"required"`
	Latitude      string `form:"lat"`
	Longitude     string `form:"lng"`
	Accuracy      string `form:"accuracy"`
	LocationQuery string `form:"locationQuery"`
}

// Normalize обрезает пробелы, чтобы "   " не проходило проверку required
func (f *ReportForm) Normalize() {
	f.Type = strings.TrimSpace(f.Type)
	f.Description = strings.TrimSpace(f.Description)
	f.LocationQuery = strings.TrimSpace(f.LocationQuery)
}

// MessageResponse DTO ответа с сообщением для пользователя
// @Description DTO ответа с сообщением для пользователя
type MessageResponse struct {
	Message string `json:"message"`
}
