package v1

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shenikar/ecowatch_reports/internal/config"
	"github.com/shenikar/ecowatch_reports/internal/models"
	"github.com/shenikar/ecowatch_reports/internal/service"
	"github.com/sirupsen/logrus"
)

const (
	msgMissingFields = "Missing required fields."
	msgTooLarge      = "Attachment too large."
	msgServerError   = "Server error."

	reportIDHeader = "X-Report-ID"
)

type Handler struct {
	reportService service.ReportService
	logger        *logrus.Logger
	validate      *validator.Validate
	cfg           *config.Config
}

func NewHandler(reportService service.ReportService, logger *logrus.Logger, cfg *config.Config) *Handler {
	return &Handler{
		reportService: reportService,
		logger:        logger,
		validate:      validator.New(),
		cfg:           cfg,
	}
}

// @Summary Submit an incident report
// @Description Accepts a citizen report. The report is forwarded to the configured webhook or logged; the caller is acknowledged either way.
// @Tags Reports
// @Accept multipart/form-data
// @Produce json
// @Param type formData string true "Incident type (wildfire, deforestation, other)"
// @Param description formData string true "What was observed"
// @Param lat formData number false "Latitude"
// @Param lng formData number false "Longitude"
// @Param accuracy formData number false "Position accuracy in meters"
// @Param locationQuery formData string false "Free-text place name"
// @Param image formData file false "Photo"
// @Param audio formData file false "Voice note"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} MessageResponse "Missing required fields"
// @Failure 413 {object} MessageResponse "Request body exceeds MAX_UPLOAD_SIZE"
// @Failure 500 {object} MessageResponse "Server error"
// @Router /report [post]
func (h *Handler) submitReport(c *gin.Context) {
	log := h.logger.WithField("method", "submitReport")

	if h.cfg.MaxUploadSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.MaxUploadSize)
	}

	var input ReportForm
	if err := c.ShouldBindWith(&input, binding.Form); err != nil {
		h.abortOnReadError(c, log, err)
		return
	}
	input.Normalize()

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, MessageResponse{Message: msgMissingFields})
		return
	}

	image, err := readAttachment(c, "image")
	if err != nil {
		h.abortOnReadError(c, log, err)
		return
	}
	audio, err := readAttachment(c, "audio")
	if err != nil {
		h.abortOnReadError(c, log, err)
		return
	}

	report := FormToReport(input, image, audio, c.Request.UserAgent())
	if err := h.reportService.SubmitReport(c.Request.Context(), report); err != nil {
		log.WithError(err).Error("Failed to submit report in service")
		c.JSON(http.StatusInternalServerError, MessageResponse{Message: msgServerError})
		return
	}

	c.Header(reportIDHeader, report.ID.String())
	c.JSON(http.StatusOK, MessageResponse{Message: h.cfg.AckMessage})
}

// @Summary Get application health status
// @Description Get health status of the application
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string "Status OK"
// @Router /system/health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) abortOnReadError(c *gin.Context, log *logrus.Entry, err error) {
	if isBodyTooLarge(err) {
		log.WithError(err).WithField("limit", h.cfg.MaxUploadSize).Warn("Request body too large")
		c.JSON(http.StatusRequestEntityTooLarge, MessageResponse{Message: msgTooLarge})
		return
	}
	log.WithError(err).Error("Failed to read report form")
	c.JSON(http.StatusInternalServerError, MessageResponse{Message: msgServerError})
}

// readAttachment читает файл целиком; отсутствие файла не ошибка
func readAttachment(c *gin.Context, field string) (*models.Attachment, error) {
	fileHeader, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}

	return &models.Attachment{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func isBodyTooLarge(err error) bool {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}
