package util

import (
	"encoding/base64"
	"testing"
)

func TestSniffMimeForOCR(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0}, "JPEG"},
		{"png", []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0}, "PNG"},
		{"pdf", []byte("%PDF-1.7"), "PDF"},
		{"unknown", []byte("GIF89a"), ""},
		{"short", []byte{0xFF}, ""},
	}
	for _, tt := range tests {
		if got := SniffMimeForOCR(tt.in); got != tt.want {
			t.Errorf("%s: got=%q want=%q", tt.name, got, tt.want)
		}
	}
}

func TestDecodeBase64MaybeDataURL(t *testing.T) {
	t.Parallel()
	payload := base64.StdEncoding.EncodeToString([]byte("hello"))

	b, mime, err := DecodeBase64MaybeDataURL("data:image/png;base64," + payload)
	if err != nil || string(b) != "hello" || mime != "image/png" {
		t.Fatalf("data url: b=%q mime=%q err=%v", b, mime, err)
	}
	b, mime, err = DecodeBase64MaybeDataURL(payload)
	if err != nil || string(b) != "hello" || mime != "" {
		t.Fatalf("plain: b=%q mime=%q err=%v", b, mime, err)
	}
	if _, _, err := DecodeBase64MaybeDataURL("!!!"); err == nil {
		t.Fatal("expected error for garbage input")
	}
}

func TestPickMIME(t *testing.T) {
	t.Parallel()
	if got := PickMIME("image/webp", "image/png", nil); got != "image/webp" {
		t.Errorf("explicit: got=%q", got)
	}
	if got := PickMIME("application/octet-stream", "", []byte{0xFF, 0xD8, 0xFF, 0xE0}); got != "image/jpeg" {
		t.Errorf("sniffed: got=%q", got)
	}
	if got := PickMIME("", "", nil); got != "image/jpeg" {
		t.Errorf("default: got=%q", got)
	}
}
