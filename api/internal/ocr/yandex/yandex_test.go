package yandex

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"quiz-gen/api/internal/ocr"
)

// newTestEngine points both the IAM and OCR endpoints at one test server.
func newTestEngine(t *testing.T, ocrHandler http.HandlerFunc) (*Engine, *int32) {
	t.Helper()
	var iamCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/iam", func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&iamCalls, 1)
		_ = json.NewEncoder(w).Encode(map[string]string{"iamToken": "tok" + string(rune('0'+n))})
	})
	mux.HandleFunc("/ocr", ocrHandler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	e := New("oauth", "folder", ocr.Options{Langs: []string{"ko", "en"}})
	e.url = srv.URL + "/ocr"
	e.iamc.url = srv.URL + "/iam"
	return e, &iamCalls
}

func TestExtractTextFullText(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-folder-id") != "folder" || r.Header.Get("Authorization") != "Bearer tok1" {
			http.Error(w, "bad headers", http.StatusBadRequest)
			return
		}
		var req request
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.MimeType != "JPEG" || req.Model != "page" || strings.Join(req.LanguageCodes, ",") != "ko,en" {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		_, _ = io.WriteString(w, `{"result":{"textAnnotation":{"fullText":"  피타고라스 정리  "}}}`)
	})
	got, err := e.ExtractText(context.Background(), []byte{0xFF, 0xD8, 0xFF})
	if err != nil {
		t.Fatal(err)
	}
	if got != "피타고라스 정리" {
		t.Errorf("got=%q", got)
	}
}

func TestExtractTextLinesFallback(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"result":{"textAnnotation":{"blocks":[{"lines":[{"text":"a"},{"text":" "}]},{"lines":[{"text":"b"}]}]}}}`)
	})
	got, err := e.ExtractText(context.Background(), []byte("x"))
	if err != nil {
		t.Fatal(err)
	}
	if got != "a\nb" {
		t.Errorf("got=%q", got)
	}
}

func TestExtractTextRetriesOnceOn401(t *testing.T) {
	t.Parallel()
	var ocrCalls int32
	e, iamCalls := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&ocrCalls, 1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.Header.Get("Authorization") != "Bearer tok2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, `{"result":{"textAnnotation":{"fullText":"ok"}}}`)
	})
	got, err := e.ExtractText(context.Background(), []byte("x"))
	if err != nil {
		t.Fatal(err)
	}
	if got != "ok" || atomic.LoadInt32(iamCalls) != 2 || atomic.LoadInt32(&ocrCalls) != 2 {
		t.Errorf("got=%q iam=%d ocr=%d", got, *iamCalls, ocrCalls)
	}
}

func TestExtractTextServerError(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	})
	if _, err := e.ExtractText(context.Background(), []byte("x")); err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("err=%v", err)
	}
}
