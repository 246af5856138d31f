package handle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/gorilla/mux"

	"quiz-gen/api/internal/logger"
	"quiz-gen/api/internal/ocr"
	"quiz-gen/api/internal/question"
	"quiz-gen/api/internal/service"
	"quiz-gen/api/internal/store"
)

// ExchangeLister reads the exchange journal.
type ExchangeLister interface {
	Recent(ctx context.Context, limit int) ([]store.Exchange, error)
}

type Options struct {
	RequestTimeout time.Duration
	MaxUploadBytes int64
}

type Handle struct {
	svc      *service.QuestionService
	ocr      ocr.Recognizer
	journal  ExchangeLister
	log      *logger.Logger
	timeout  time.Duration
	maxBytes int64
}

// New wires the handlers. rec and journal may be nil: OCR is then skipped and
// the journal endpoint answers 404.
func New(svc *service.QuestionService, rec ocr.Recognizer, journal ExchangeLister, log *logger.Logger, opt Options) *Handle {
	if rec == nil {
		rec = ocr.Nop{}
	}
	if log == nil {
		log = logger.Nop()
	}
	if opt.RequestTimeout <= 0 {
		opt.RequestTimeout = 180 * time.Second
	}
	if opt.MaxUploadBytes <= 0 {
		opt.MaxUploadBytes = 20 << 20
	}
	return &Handle{
		svc:      svc,
		ocr:      rec,
		journal:  journal,
		log:      log,
		timeout:  opt.RequestTimeout,
		maxBytes: opt.MaxUploadBytes,
	}
}

// Router builds the full HTTP surface with CORS and request logging.
func (h *Handle) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(corsMiddleware)
	r.Use(h.logMiddleware)

	r.PathPrefix("/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodOptions)

	h.RegisterRoutes(r)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	return r
}

func (h *Handle) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/questions/generate", h.Generate).Methods(http.MethodPost)
	r.HandleFunc("/questions/verify", h.Verify).Methods(http.MethodPost)
	r.HandleFunc("/questions/answers/generate", h.AnswerFreeQuestion).Methods(http.MethodPost)
	r.HandleFunc("/questions/check-choice", h.CheckChoice).Methods(http.MethodPost)
	r.HandleFunc("/questions/exchanges", h.Exchanges).Methods(http.MethodGet)
}

// deadline honours X-Request-Timeout or ?timeoutSec=, in seconds.
func (h *Handle) deadline(r *http.Request) (context.Context, context.CancelFunc) {
	d := h.timeout
	if ts := r.Header.Get("X-Request-Timeout"); ts != "" {
		if v, _ := strconv.Atoi(ts); v > 0 {
			d = time.Duration(v) * time.Second
		}
	} else if ts := r.URL.Query().Get("timeoutSec"); ts != "" {
		if v, _ := strconv.Atoi(ts); v > 0 {
			d = time.Duration(v) * time.Second
		}
	}
	return context.WithTimeout(r.Context(), d)
}

// service picks the engine from ?llm_name=.
func (h *Handle) service(w http.ResponseWriter, r *http.Request) (*service.QuestionService, bool) {
	svc, err := h.svc.Using(r.URL.Query().Get("llm_name"))
	if err != nil {
		writeError(w, http.StatusBadRequest, publicMessage(err))
		return nil, false
	}
	return svc, true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, map[string]string{"detail": detail})
}

// writeFailure maps orchestrator errors: caller mistakes are 400, the rest 500.
func (h *Handle) writeFailure(w http.ResponseWriter, err error) {
	if errors.Is(err, question.ErrInvalidInput) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.log.Error("request failed", "error", err)
	writeError(w, http.StatusInternalServerError, err.Error())
}

// publicMessage drops the "invalid input: " kind prefix and capitalizes the rest.
func publicMessage(err error) string {
	msg := strings.TrimPrefix(err.Error(), question.ErrInvalidInput.Error()+": ")
	r, size := utf8.DecodeRuneInString(msg)
	if r == utf8.RuneError {
		return msg
	}
	return string(unicode.ToUpper(r)) + msg[size:]
}
