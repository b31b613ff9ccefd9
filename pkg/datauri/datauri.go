// Package datauri кодирует вложения в самоописывающий формат data URI (RFC 2397, только base64).
package datauri

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// DefaultMediaType подставляется, когда клиент не прислал тип содержимого
const DefaultMediaType = "application/octet-stream"

const (
	scheme       = "data:"
	base64Marker = ";base64"
)

var ErrMalformed = errors.New("malformed data uri")

// Encode возвращает data:<type>;base64,<payload>
func Encode(mediaType string, data []byte) string {
	mediaType = strings.TrimSpace(mediaType)
	if mediaType == "" {
		mediaType = DefaultMediaType
	}

	var b strings.Builder
	b.Grow(len(scheme) + len(mediaType) + len(base64Marker) + 1 + base64.StdEncoding.EncodedLen(len(data)))
	b.WriteString(scheme)
	b.WriteString(mediaType)
	b.WriteString(base64Marker)
	b.WriteByte(',')
	b.WriteString(base64.StdEncoding.EncodeToString(data))
	return b.String()
}

// Decode разбирает data URI, созданный Encode
func Decode(uri string) (string, []byte, error) {
	if !strings.HasPrefix(uri, scheme) {
		return "", nil, fmt.Errorf("%w: missing %q prefix", ErrMalformed, scheme)
	}
	// base64 не содержит запятых, а тип содержимого может
	rest := uri[len(scheme):]
	sep := strings.LastIndexByte(rest, ',')
	if sep < 0 {
		return "", nil, fmt.Errorf("%w: missing payload separator", ErrMalformed)
	}
	header, payload := rest[:sep], rest[sep+1:]
	mediaType, isBase64 := strings.CutSuffix(header, base64Marker)
	if !isBase64 {
		return "", nil, fmt.Errorf("%w: only base64 payloads are supported", ErrMalformed)
	}
	if mediaType == "" {
		mediaType = DefaultMediaType
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return mediaType, data, nil
}
