package capture

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/shenikar/ecowatch_reports/internal/models"
)

// LocateTimeout - сколько форма ждёт координаты перед отправкой
const LocateTimeout = 5 * time.Second

var ErrLocationUnavailable = errors.New("location unavailable")

// LocateOptions - параметры запроса координат
type LocateOptions struct {
	HighAccuracy bool
}

// Locator определяет координаты устройства
type Locator interface {
	Locate(ctx context.Context, opts LocateOptions) (*models.Location, error)
}

// StaticLocator возвращает заранее известные координаты (из флагов командной строки)
type StaticLocator struct {
	Location *models.Location
}

func (l StaticLocator) Locate(ctx context.Context, _ LocateOptions) (*models.Location, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if l.Location == nil {
		return nil, ErrLocationUnavailable
	}
	loc := *l.Location
	return &loc, nil
}

// LocatorFunc позволяет использовать функцию как Locator
type LocatorFunc func(ctx context.Context, opts LocateOptions) (*models.Location, error)

func (f LocatorFunc) Locate(ctx context.Context, opts LocateOptions) (*models.Location, error) {
	return f(ctx, opts)
}

// MapPreviewURL строит ссылку на карту по координатам, иначе по названию места
func MapPreviewURL(loc *models.Location, query string) string {
	if loc != nil {
		lat := strconv.FormatFloat(loc.Latitude, 'f', -1, 64)
		lng := strconv.FormatFloat(loc.Longitude, 'f', -1, 64)
		return fmt.Sprintf("https://www.openstreetmap.org/?mlat=%s&mlon=%s#map=15/%s/%s", lat, lng, lat, lng)
	}
	if query != "" {
		return "https://www.openstreetmap.org/search?query=" + url.QueryEscape(query)
	}
	return ""
}
