package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shenikar/ecowatch_reports/internal/config"
	"github.com/shenikar/ecowatch_reports/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPayload() models.ReportPayload {
	accuracy := 12.5
	return models.ReportPayload{
		ID:          "2f1e3b8a-0000-4000-8000-000000000001",
		Type:        "wildfire",
		Description: "smoke near ridge",
		Location:    &models.Location{Latitude: 45.1, Longitude: -121.7, Accuracy: &accuracy},
		SubmittedAt: "2026-10-15T08:30:00.000Z",
		UserAgent:   "reporter-test/1.0",
		Image:       "data:image/jpeg;base64,/9j/4A==",
		Audio:       "data:audio/webm;base64,GkXfow==",
	}
}

func newTestHTTPDispatcher(t *testing.T, url, secret string) (*HTTPDispatcher, *test.Hook) {
	logger, hook := test.NewNullLogger()
	cfg := &config.Config{
		WebhookURL:     url,
		WebhookSecret:  secret,
		WebhookTimeout: time.Second,
	}
	return NewHTTPDispatcher(cfg, logger), hook
}

func TestHTTPDispatcher_Success(t *testing.T) {
	var (
		gotBody        []byte
		gotContentType string
		gotSignature   string
		calls          int
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, http.MethodPost, r.Method)
		gotContentType = r.Header.Get("Content-Type")
		gotSignature = r.Header.Get(signatureHeader)
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	dispatcher, _ := newTestHTTPDispatcher(t, server.URL, "")
	payload := testPayload()

	err := dispatcher.Dispatch(context.Background(), payload)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, "application/json", gotContentType)
	assert.Empty(t, gotSignature)

	var forwarded models.ReportPayload
	require.NoError(t, json.Unmarshal(gotBody, &forwarded))
	assert.Equal(t, payload, forwarded)
}

func TestHTTPDispatcher_SignsBodyWhenSecretConfigured(t *testing.T) {
	const secret = "s3cret"
	var gotBody []byte
	var gotSignature string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSignature = r.Header.Get(signatureHeader)
		gotBody, _ = io.ReadAll(r.Body)
	}))
	defer server.Close()

	dispatcher, _ := newTestHTTPDispatcher(t, server.URL, secret)
	require.NoError(t, dispatcher.Dispatch(context.Background(), testPayload()))

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(gotBody)
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), gotSignature)
}

func TestHTTPDispatcher_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(strings.Repeat("x", 4096)))
	}))
	defer server.Close()

	dispatcher, _ := newTestHTTPDispatcher(t, server.URL, "")
	err := dispatcher.Dispatch(context.Background(), testPayload())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDelivery)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.Len(t, statusErr.Body, maxErrorBodyBytes)
}

func TestHTTPDispatcher_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	logger, _ := test.NewNullLogger()
	dispatcher := NewHTTPDispatcher(&config.Config{
		WebhookURL:     server.URL,
		WebhookTimeout: 50 * time.Millisecond,
	}, logger)

	err := dispatcher.Dispatch(context.Background(), testPayload())
	assert.ErrorIs(t, err, ErrDelivery)
}

func TestHTTPDispatcher_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	dispatcher, _ := newTestHTTPDispatcher(t, url, "")
	err := dispatcher.Dispatch(context.Background(), testPayload())
	assert.ErrorIs(t, err, ErrDelivery)
}

func TestLogDispatcher_ReplacesAttachmentsWithPlaceholders(t *testing.T) {
	logger, hook := test.NewNullLogger()
	dispatcher := NewLogDispatcher(logger)

	err := dispatcher.Dispatch(context.Background(), testPayload())
	require.NoError(t, err)

	require.Len(t, hook.AllEntries(), 1)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "Report received (no webhook configured)", entry.Message)

	logged, ok := entry.Data["report"].(models.ReportPayload)
	require.True(t, ok)
	assert.Equal(t, ImagePlaceholder, logged.Image)
	assert.Equal(t, AudioPlaceholder, logged.Audio)
	assert.Equal(t, "smoke near ridge", logged.Description)
}

func TestLogDispatcher_NoAttachmentsNoPlaceholders(t *testing.T) {
	logger, hook := test.NewNullLogger()
	payload := testPayload()
	payload.Image, payload.Audio, payload.Location = "", "", nil

	require.NoError(t, NewLogDispatcher(logger).Dispatch(context.Background(), payload))

	logged := hook.LastEntry().Data["report"].(models.ReportPayload)
	raw, err := json.Marshal(logged)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"image"`)
	assert.NotContains(t, string(raw), `"audio"`)
	assert.NotContains(t, string(raw), `"location"`)
}

func TestNewDispatcher_SelectsByConfig(t *testing.T) {
	logger, _ := test.NewNullLogger()

	_, isLog := NewDispatcher(&config.Config{}, logger).(*LogDispatcher)
	assert.True(t, isLog)

	_, isHTTP := NewDispatcher(&config.Config{WebhookURL: "http://collector.invalid", WebhookTimeout: time.Second}, logger).(*HTTPDispatcher)
	assert.True(t, isHTTP)
}
