package models

import (
	"math"
	"strconv"
	"strings"
)

// ParseLocation собирает координаты из строковых полей формы.
// Возвращает nil, если хотя бы одна координата отсутствует, не число или не конечна.
func ParseLocation(rawLat, rawLng, rawAccuracy string) *Location {
	lat, okLat := ParseCoordinate(rawLat)
	lng, okLng := ParseCoordinate(rawLng)
	if !okLat || !okLng {
		return nil
	}

	location := &Location{Latitude: lat, Longitude: lng}
	if accuracy, ok := ParseCoordinate(rawAccuracy); ok {
		location.Accuracy = &accuracy
	}
	return location
}

// ParseCoordinate разбирает конечное число; NaN и Inf считаются отсутствующими
func ParseCoordinate(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	return value, true
}
