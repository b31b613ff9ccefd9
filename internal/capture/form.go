package capture

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shenikar/ecowatch_reports/internal/models"
)

const (
	reportPath = "/api/report"

	snapshotFilename    = "snapshot.jpg"
	snapshotContentType = "image/jpeg"
	audioFilename       = "report.webm"
	audioContentType    = "audio/webm"

	// ThankYouMessage показывается после любой отправки
	ThankYouMessage = "Thank you! Your report has been received."

	statusCameraDenied = "Camera permission denied or unavailable."
	statusCaptured     = "Captured photo from camera."
	statusMicDenied    = "Microphone permission denied or unavailable."
	statusAudioSaved   = "Audio recorded."
	statusNoLocation   = "Location unavailable, the report is sent without coordinates."
)

// ErrSubmitting - повторная отправка, пока первая ещё не завершилась
var ErrSubmitting = errors.New("report is already being submitted")

// ImageSource - откуда взято фото
type ImageSource int

const (
	ImageNone ImageSource = iota
	ImageSnapshot
	ImageFile
)

func (s ImageSource) String() string {
	switch s {
	case ImageSnapshot:
		return "camera snapshot"
	case ImageFile:
		return "file"
	default:
		return "none"
	}
}

// ImageChoice хранит не больше одного фото: снимок камеры или выбранный файл.
// Выбор одного варианта заменяет другой.
type ImageChoice struct {
	source     ImageSource
	attachment *models.Attachment
}

func (c ImageChoice) Source() ImageSource { return c.source }

func (c ImageChoice) Attachment() *models.Attachment { return c.attachment }

// SubmitResult - что на самом деле произошло при отправке
type SubmitResult struct {
	Delivered     bool
	StatusCode    int
	ServerMessage string
	ReportID      string
	Err           error
}

// AckPolicy решает, какое подтверждение увидит пользователь
type AckPolicy func(result SubmitResult) string

// OptimisticAck благодарит пользователя независимо от результата доставки
func OptimisticAck(SubmitResult) string {
	return ThankYouMessage
}

// Outcome - результат Submit: сообщение для пользователя и фактический итог
type Outcome struct {
	Message string
	Result  SubmitResult
	Receipt models.Receipt
}

// Options - настройки формы
type Options struct {
	Endpoint   string
	HTTPClient *http.Client
	UserAgent  string
	Locator    Locator
	Ack        AckPolicy
	Now        func() time.Time
}

// Form собирает отчёт и отправляет его одним multipart-запросом
type Form struct {
	endpoint   string
	httpClient *http.Client
	userAgent  string
	locator    Locator
	ack        AckPolicy
	now        func() time.Time

	mu            sync.Mutex
	incidentType  models.IncidentType
	description   string
	locationQuery string
	image         ImageChoice
	audio         *models.Attachment
	camera        Camera
	microphone    Microphone
	submitting    bool
	status        string
	last          *models.Receipt
}

func NewForm(opts Options) (*Form, error) {
	base, err := url.Parse(strings.TrimRight(opts.Endpoint, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid endpoint %q", opts.Endpoint)
	}

	f := &Form{
		endpoint:     base.String() + reportPath,
		httpClient:   opts.HTTPClient,
		userAgent:    opts.UserAgent,
		locator:      opts.Locator,
		ack:          opts.Ack,
		now:          opts.Now,
		incidentType: models.DefaultIncidentType,
	}
	if f.httpClient == nil {
		f.httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	if f.ack == nil {
		f.ack = OptimisticAck
	}
	if f.now == nil {
		f.now = time.Now
	}
	return f, nil
}

func (f *Form) SetType(t models.IncidentType) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.incidentType = t
}

func (f *Form) SetDescription(description string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.description = description
}

func (f *Form) SetLocationQuery(query string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locationQuery = strings.TrimSpace(query)
}

func (f *Form) Type() models.IncidentType {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.incidentType
}

func (f *Form) Description() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.description
}

func (f *Form) Image() ImageChoice {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.image
}

func (f *Form) Audio() *models.Attachment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.audio
}

// Status - последнее информационное сообщение для пользователя
func (f *Form) Status() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *Form) Submitting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitting
}

// LastReceipt возвращает последний отправленный отчёт для экспорта
func (f *Form) LastReceipt() (models.Receipt, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.last == nil {
		return models.Receipt{}, false
	}
	return *f.last, true
}

// StartCamera включает камеру; одновременно может работать только одна
func (f *Form) StartCamera(ctx context.Context, camera Camera) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.camera != nil {
		return ErrDeviceBusy
	}
	if err := camera.Start(ctx); err != nil {
		f.status = statusCameraDenied
		return err
	}
	f.camera = camera
	return nil
}

// CapturePhoto делает снимок и заменяет им выбранный файл
func (f *Form) CapturePhoto(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.camera == nil {
		return ErrDeviceStopped
	}
	frame, err := f.camera.Capture(ctx)
	if err != nil {
		f.status = statusCameraDenied
		return err
	}
	f.image = ImageChoice{
		source:     ImageSnapshot,
		attachment: &models.Attachment{Filename: snapshotFilename, ContentType: snapshotContentType, Data: frame},
	}
	f.status = statusCaptured
	return nil
}

func (f *Form) StopCamera() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.camera == nil {
		return nil
	}
	err := f.camera.Stop()
	f.camera = nil
	return err
}

// PickFile прикрепляет фото с диска и сбрасывает снимок камеры
func (f *Form) PickFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read image: %w", err)
	}
	name := filepath.Base(path)
	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.image = ImageChoice{
		source:     ImageFile,
		attachment: &models.Attachment{Filename: name, ContentType: contentType, Data: data},
	}
	f.status = "Selected: " + name
	return nil
}

func (f *Form) StartRecording(ctx context.Context, microphone Microphone) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.microphone != nil {
		return ErrDeviceBusy
	}
	if err := microphone.Start(ctx); err != nil {
		f.status = statusMicDenied
		return err
	}
	f.microphone = microphone
	return nil
}

// StopRecording завершает запись; частичная запись при ошибке не сохраняется
func (f *Form) StopRecording() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.microphone == nil {
		return ErrDeviceStopped
	}
	data, err := f.microphone.Stop()
	f.microphone = nil
	if err != nil {
		f.status = statusMicDenied
		return err
	}
	f.audio = &models.Attachment{Filename: audioFilename, ContentType: audioContentType, Data: data}
	f.status = statusAudioSaved
	return nil
}

type submission struct {
	incidentType  models.IncidentType
	description   string
	locationQuery string
	location      *models.Location
	image         *models.Attachment
	audio         *models.Attachment
}

// Submit отправляет отчёт. Ошибка возвращается только при повторном вызове во время отправки;
// итог доставки лежит в Outcome.Result, а пользователь в любом случае получает подтверждение.
func (f *Form) Submit(ctx context.Context) (Outcome, error) {
	f.mu.Lock()
	if f.submitting {
		f.mu.Unlock()
		return Outcome{}, ErrSubmitting
	}
	f.submitting = true
	f.status = ""
	sub := submission{
		incidentType:  f.incidentType,
		description:   f.description,
		locationQuery: f.locationQuery,
		image:         f.image.attachment,
		audio:         f.audio,
	}
	f.mu.Unlock()

	var locationNote string
	sub.location, locationNote = f.locate(ctx)

	submittedAt := f.now()
	result := f.send(ctx, sub)
	message := f.ack(result)

	receipt := models.Receipt{
		ReportID:      result.ReportID,
		Type:          sub.incidentType,
		Description:   sub.description,
		Location:      sub.location,
		LocationQuery: sub.locationQuery,
		SubmittedAt:   submittedAt.UTC(),
		Image:         sub.image.Info(),
		Audio:         sub.audio.Info(),
		Delivered:     result.Delivered,
		ServerMessage: result.ServerMessage,
	}

	f.mu.Lock()
	f.submitting = false
	f.description = ""
	f.image = ImageChoice{}
	f.audio = nil
	f.status = strings.TrimSpace(message + " " + locationNote)
	f.last = &receipt
	f.mu.Unlock()

	return Outcome{Message: message, Result: result, Receipt: receipt}, nil
}

// locate запрашивает координаты не дольше LocateTimeout; неудача не ошибка
func (f *Form) locate(ctx context.Context) (*models.Location, string) {
	if f.locator == nil {
		return nil, ""
	}
	ctx, cancel := context.WithTimeout(ctx, LocateTimeout)
	defer cancel()

	loc, err := f.locator.Locate(ctx, LocateOptions{HighAccuracy: true})
	if err != nil || loc == nil {
		return nil, statusNoLocation
	}
	return loc, ""
}

func (f *Form) send(ctx context.Context, sub submission) SubmitResult {
	body, contentType, err := encodeSubmission(sub)
	if err != nil {
		return SubmitResult{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, body)
	if err != nil {
		return SubmitResult{Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return SubmitResult{Err: err}
	}
	defer resp.Body.Close()

	result := SubmitResult{
		StatusCode: resp.StatusCode,
		ReportID:   resp.Header.Get("X-Report-ID"),
		Delivered:  resp.StatusCode >= 200 && resp.StatusCode < 300,
	}
	var msg struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&msg); err == nil {
		result.ServerMessage = msg.Message
	}
	if !result.Delivered {
		result.Err = fmt.Errorf("server responded with status %d", resp.StatusCode)
	}
	return result
}

func encodeSubmission(sub submission) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	fields := [][2]string{
		{"type", string(sub.incidentType)},
		{"description", sub.description},
	}
	if sub.locationQuery != "" {
		fields = append(fields, [2]string{"locationQuery", sub.locationQuery})
	}
	if sub.location != nil {
		fields = append(fields,
			[2]string{"lat", formatFloat(sub.location.Latitude)},
			[2]string{"lng", formatFloat(sub.location.Longitude)},
		)
		if sub.location.Accuracy != nil {
			fields = append(fields, [2]string{"accuracy", formatFloat(*sub.location.Accuracy)})
		}
	}
	for _, field := range fields {
		if err := w.WriteField(field[0], field[1]); err != nil {
			return nil, "", err
		}
	}

	for field, att := range map[string]*models.Attachment{"image": sub.image, "audio": sub.audio} {
		if att == nil {
			continue
		}
		if err := writeFilePart(w, field, att); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return body, w.FormDataContentType(), nil
}

func writeFilePart(w *multipart.Writer, field string, att *models.Attachment) error {
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, att.Filename))
	if att.ContentType != "" {
		header.Set("Content-Type", att.ContentType)
	}
	part, err := w.CreatePart(header)
	if err != nil {
		return err
	}
	_, err = part.Write(att.Data)
	return err
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
