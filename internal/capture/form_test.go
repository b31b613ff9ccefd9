package capture

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shenikar/ecowatch_reports/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCamera struct {
	startErr error
	frame    []byte
	stopped  bool
}

func (c *fakeCamera) Start(context.Context) error { return c.startErr }

func (c *fakeCamera) Capture(context.Context) ([]byte, error) { return c.frame, nil }

func (c *fakeCamera) Stop() error {
	c.stopped = true
	return nil
}

type fakeMicrophone struct {
	startErr error
	data     []byte
}

func (m *fakeMicrophone) Start(context.Context) error { return m.startErr }

func (m *fakeMicrophone) Stop() ([]byte, error) { return m.data, nil }

// capturedRequest - то, что получил сервер
type capturedRequest struct {
	fields    map[string]string
	files     map[string][]byte
	fileTypes map[string]string
	userAgent string
}

func newReportServer(t *testing.T, status int) (*httptest.Server, chan capturedRequest) {
	t.Helper()
	requests := make(chan capturedRequest, 4)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, reportPath, r.URL.Path)
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		got := capturedRequest{
			fields:    map[string]string{},
			files:     map[string][]byte{},
			fileTypes: map[string]string{},
			userAgent: r.UserAgent(),
		}
		for name, values := range r.MultipartForm.Value {
			got.fields[name] = values[0]
		}
		for name, headers := range r.MultipartForm.File {
			f, err := headers[0].Open()
			if !assert.NoError(t, err) {
				continue
			}
			data, _ := io.ReadAll(f)
			f.Close()
			got.files[name] = data
			got.fileTypes[name] = headers[0].Header.Get("Content-Type")
		}
		requests <- got

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Report-ID", "c0ffee00-0000-4000-8000-000000000000")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"message":"Report submitted. Thank you for helping protect our planet."}`))
	}))
	t.Cleanup(server.Close)
	return server, requests
}

func newTestForm(t *testing.T, endpoint string, locator Locator) *Form {
	t.Helper()
	form, err := NewForm(Options{
		Endpoint:  endpoint,
		UserAgent: "ecowatch-reporter-test",
		Locator:   locator,
		Now:       func() time.Time { return time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return form
}

func TestForm_SubmitSendsEverything(t *testing.T) {
	server, requests := newReportServer(t, http.StatusOK)
	accuracy := 8.0
	form := newTestForm(t, server.URL, StaticLocator{Location: &models.Location{Latitude: 51.5, Longitude: -0.12, Accuracy: &accuracy}})

	form.SetType(models.IncidentDeforestation)
	form.SetDescription("chainsaws at dawn")
	form.SetLocationQuery("Epping Forest")
	require.NoError(t, form.StartCamera(context.Background(), &fakeCamera{frame: []byte("jpeg")}))
	require.NoError(t, form.CapturePhoto(context.Background()))
	require.NoError(t, form.StopCamera())
	require.NoError(t, form.StartRecording(context.Background(), &fakeMicrophone{data: []byte("webm")}))
	require.NoError(t, form.StopRecording())

	outcome, err := form.Submit(context.Background())
	require.NoError(t, err)

	got := <-requests
	assert.Equal(t, "deforestation", got.fields["type"])
	assert.Equal(t, "chainsaws at dawn", got.fields["description"])
	assert.Equal(t, "Epping Forest", got.fields["locationQuery"])
	assert.Equal(t, "51.5", got.fields["lat"])
	assert.Equal(t, "-0.12", got.fields["lng"])
	assert.Equal(t, "8", got.fields["accuracy"])
	assert.Equal(t, []byte("jpeg"), got.files["image"])
	assert.Equal(t, "image/jpeg", got.fileTypes["image"])
	assert.Equal(t, []byte("webm"), got.files["audio"])
	assert.Equal(t, "audio/webm", got.fileTypes["audio"])
	assert.Equal(t, "ecowatch-reporter-test", got.userAgent)

	assert.Equal(t, ThankYouMessage, outcome.Message)
	assert.True(t, outcome.Result.Delivered)
	assert.Equal(t, "c0ffee00-0000-4000-8000-000000000000", outcome.Receipt.ReportID)
	assert.Equal(t, 4, outcome.Receipt.Image.Size)
	assert.Equal(t, "report.webm", outcome.Receipt.Audio.Filename)

	// поля очищены, тип сохранён
	assert.Empty(t, form.Description())
	assert.Equal(t, ImageNone, form.Image().Source())
	assert.Nil(t, form.Audio())
	assert.Equal(t, models.IncidentDeforestation, form.Type())
	assert.False(t, form.Submitting())

	receipt, ok := form.LastReceipt()
	require.True(t, ok)
	assert.Equal(t, "chainsaws at dawn", receipt.Description)
}

func TestForm_OptimisticAckOnServerError(t *testing.T) {
	server, requests := newReportServer(t, http.StatusInternalServerError)
	form := newTestForm(t, server.URL, nil)
	form.SetDescription("smoke")

	outcome, err := form.Submit(context.Background())
	require.NoError(t, err)
	<-requests

	assert.Equal(t, ThankYouMessage, outcome.Message)
	assert.Equal(t, ThankYouMessage, form.Status())
	assert.False(t, outcome.Result.Delivered)
	assert.Equal(t, http.StatusInternalServerError, outcome.Result.StatusCode)
	assert.Error(t, outcome.Result.Err)
	assert.Empty(t, form.Description())
}

func TestForm_OptimisticAckOnNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	endpoint := server.URL
	server.Close()

	form := newTestForm(t, endpoint, nil)
	form.SetDescription("smoke")
	require.NoError(t, form.PickFile(writeTempImage(t)))

	outcome, err := form.Submit(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ThankYouMessage, outcome.Message)
	assert.False(t, outcome.Result.Delivered)
	assert.Error(t, outcome.Result.Err)
	assert.Equal(t, ImageNone, form.Image().Source())

	_, ok := form.LastReceipt()
	assert.True(t, ok)
}

func TestForm_RejectsResubmissionWhileSubmitting(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	}))
	defer server.Close()

	form := newTestForm(t, server.URL, nil)
	form.SetDescription("smoke")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := form.Submit(context.Background())
		assert.NoError(t, err)
	}()

	require.Eventually(t, form.Submitting, time.Second, 5*time.Millisecond)

	_, err := form.Submit(context.Background())
	assert.ErrorIs(t, err, ErrSubmitting)

	close(release)
	wg.Wait()
	assert.False(t, form.Submitting())
}

func TestForm_LocationFailureIsSilent(t *testing.T) {
	server, requests := newReportServer(t, http.StatusOK)
	var gotOpts LocateOptions
	var hadDeadline bool
	locator := LocatorFunc(func(ctx context.Context, opts LocateOptions) (*models.Location, error) {
		gotOpts = opts
		deadline, ok := ctx.Deadline()
		hadDeadline = ok && time.Until(deadline) <= LocateTimeout
		return nil, errors.New("permission denied")
	})
	form := newTestForm(t, server.URL, locator)
	form.SetDescription("smoke")

	outcome, err := form.Submit(context.Background())
	require.NoError(t, err)

	got := <-requests
	assert.NotContains(t, got.fields, "lat")
	assert.NotContains(t, got.fields, "lng")
	assert.NotContains(t, got.fields, "accuracy")
	assert.Nil(t, outcome.Receipt.Location)
	assert.True(t, gotOpts.HighAccuracy)
	assert.True(t, hadDeadline)
	assert.Contains(t, form.Status(), statusNoLocation)
}

func TestForm_ImageSourcesAreExclusive(t *testing.T) {
	form := newTestForm(t, "http://localhost:8080", nil)
	path := writeTempImage(t)

	require.NoError(t, form.StartCamera(context.Background(), &fakeCamera{frame: []byte("frame")}))
	require.NoError(t, form.CapturePhoto(context.Background()))
	assert.Equal(t, ImageSnapshot, form.Image().Source())
	assert.Equal(t, "snapshot.jpg", form.Image().Attachment().Filename)

	require.NoError(t, form.PickFile(path))
	assert.Equal(t, ImageFile, form.Image().Source())
	assert.Equal(t, "ridge.png", form.Image().Attachment().Filename)
	assert.Equal(t, "image/png", form.Image().Attachment().ContentType)

	require.NoError(t, form.CapturePhoto(context.Background()))
	assert.Equal(t, ImageSnapshot, form.Image().Source())
	assert.Equal(t, []byte("frame"), form.Image().Attachment().Data)
}

func TestForm_CameraFailures(t *testing.T) {
	form := newTestForm(t, "http://localhost:8080", nil)

	err := form.StartCamera(context.Background(), &fakeCamera{startErr: ErrDeviceUnavailable})
	assert.ErrorIs(t, err, ErrDeviceUnavailable)
	assert.Equal(t, statusCameraDenied, form.Status())

	assert.ErrorIs(t, form.CapturePhoto(context.Background()), ErrDeviceStopped)

	camera := &fakeCamera{}
	require.NoError(t, form.StartCamera(context.Background(), camera))
	assert.ErrorIs(t, form.StartCamera(context.Background(), &fakeCamera{}), ErrDeviceBusy)
	require.NoError(t, form.StopCamera())
	assert.True(t, camera.stopped)
}

func TestForm_MicrophoneFailure(t *testing.T) {
	form := newTestForm(t, "http://localhost:8080", nil)

	err := form.StartRecording(context.Background(), &fakeMicrophone{startErr: ErrDeviceUnavailable})
	assert.ErrorIs(t, err, ErrDeviceUnavailable)
	assert.Equal(t, statusMicDenied, form.Status())
	assert.ErrorIs(t, form.StopRecording(), ErrDeviceStopped)
	assert.Nil(t, form.Audio())
}

func TestNewForm_InvalidEndpoint(t *testing.T) {
	_, err := NewForm(Options{Endpoint: "not a url"})
	assert.Error(t, err)
}

func TestMapPreviewURL(t *testing.T) {
	loc := &models.Location{Latitude: -3.1, Longitude: -60.02}
	assert.Equal(t, "https://www.openstreetmap.org/?mlat=-3.1&mlon=-60.02#map=15/-3.1/-60.02", MapPreviewURL(loc, "Manaus"))
	assert.Equal(t, "https://www.openstreetmap.org/search?query=Serra+do+Mar", MapPreviewURL(nil, "Serra do Mar"))
	assert.Empty(t, MapPreviewURL(nil, ""))
}

func writeTempImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ridge.png")
	require.NoError(t, os.WriteFile(path, []byte("\x89PNG\r\n\x1a\n"), 0o600))
	return path
}
