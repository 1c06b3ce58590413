// internal/bingo/datauri.go
//
// Cell images travel as base64 data URIs ("data:<mime>;base64,...") in
// exported documents and saved state.

package bingo

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
)

// ErrNotDataURI is returned when a string is not a base64 data URI.
var ErrNotDataURI = errors.New("not a base64 data URI")

// EncodeDataURI embeds raw file bytes as "data:<mime>;base64,<payload>".
// An empty contentType is sniffed from the bytes.
func EncodeDataURI(data []byte, contentType string) string {
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURI splits a base64 data URI into its media type and bytes.
func DecodeDataURI(uri string) (mediaType string, data []byte, err error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, ErrNotDataURI
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return "", nil, ErrNotDataURI
	}
	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, err
	}
	return strings.TrimSuffix(meta, ";base64"), data, nil
}
