package util

import (
	"bytes"
	"encoding/base64"
	"net/http"
	"strings"
)

var (
	jpegMagic = []byte{0xFF, 0xD8}
	pngMagic  = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	pdfMagic  = []byte("%PDF-")
)

// SniffMimeForOCR returns the short format names OCR APIs expect: JPEG, PNG, PDF or "".
func SniffMimeForOCR(b []byte) string {
	switch {
	case bytes.HasPrefix(b, jpegMagic):
		return "JPEG"
	case bytes.HasPrefix(b, pngMagic):
		return "PNG"
	case bytes.HasPrefix(b, pdfMagic):
		return "PDF"
	}
	return ""
}

// DecodeBase64MaybeDataURL decodes plain base64 or a data: URI. For a data URI the
// MIME type from its prefix is returned as well.
func DecodeBase64MaybeDataURL(s string) ([]byte, string, error) {
	s = strings.TrimSpace(s)
	var hint string
	if strings.HasPrefix(s, "data:") {
		if idx := strings.IndexByte(s, ','); idx > 0 {
			meta := s[len("data:"):idx]
			if semi := strings.IndexByte(meta, ';'); semi >= 0 {
				hint = meta[:semi]
			} else {
				hint = meta
			}
			s = s[idx+1:]
		}
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err == nil {
		return b, hint, nil
	}
	if b2, err2 := base64.URLEncoding.DecodeString(s); err2 == nil {
		return b2, hint, nil
	}
	return nil, "", err
}

// PickMIME prefers an explicit type, then a hint, then sniffs the bytes.
func PickMIME(explicit, hint string, data []byte) string {
	for _, m := range []string{explicit, hint} {
		m = strings.TrimSpace(m)
		if m != "" && m != "application/octet-stream" {
			return m
		}
	}
	if len(data) > 0 {
		return http.DetectContentType(data)
	}
	return "image/jpeg"
}
