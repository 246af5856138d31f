package handle

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"quiz-gen/api/internal/question"
	"quiz-gen/api/internal/service"
	"quiz-gen/api/internal/util"
)

type generateUpload struct {
	image  []byte
	mime   string
	params question.GenerateParams
}

// Generate accepts either multipart (textbook_image file + data JSON field) or a
// JSON body carrying the same parameters plus image_b64.
func (h *Handle) Generate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	var (
		up  generateUpload
		err error
	)
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "multipart/form-data" {
		up, err = h.readMultipart(r)
	} else {
		up, err = readGenerateJSON(r)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, publicMessage(err))
		return
	}

	svc, ok := h.service(w, r)
	if !ok {
		return
	}
	ctx, cancel := h.deadline(r)
	defer cancel()

	text, err := h.ocr.ExtractText(ctx, up.image)
	if err != nil {
		h.writeFailure(w, &service.OperationError{
			Op:  service.OpGenerate,
			Err: fmt.Errorf("%w: ocr %s: %w", service.ErrBackendUnavailable, h.ocr.Name(), err),
		})
		return
	}
	h.log.Debug("page recognized", "ocr", h.ocr.Name(), "chars", len([]rune(text)), "preview", util.Truncate(text, 80))

	qs, err := svc.Generate(ctx, service.GenerateInput{
		TextbookText: text,
		Image:        up.image,
		MIME:         up.mime,
		Params:       up.params,
	})
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, qs)
}

func (h *Handle) readMultipart(r *http.Request) (generateUpload, error) {
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		return generateUpload{}, fmt.Errorf("%w: bad multipart body: %v", question.ErrInvalidInput, err)
	}
	params, err := question.ParseGenerateParams([]byte(r.FormValue("data")))
	if err != nil {
		return generateUpload{}, err
	}
	f, hdr, err := r.FormFile("textbook_image")
	if err != nil {
		return generateUpload{}, fmt.Errorf("%w: missing required field: textbook_image", question.ErrInvalidInput)
	}
	defer f.Close()
	img, err := io.ReadAll(f)
	if err != nil || len(img) == 0 {
		return generateUpload{}, fmt.Errorf("%w: empty textbook_image", question.ErrInvalidInput)
	}
	return generateUpload{
		image:  img,
		mime:   util.PickMIME(hdr.Header.Get("Content-Type"), "", img),
		params: params,
	}, nil
}

func readGenerateJSON(r *http.Request) (generateUpload, error) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return generateUpload{}, fmt.Errorf("%w: %v", question.ErrInvalidInput, err)
	}
	params, err := question.ParseGenerateParams(raw)
	if err != nil {
		return generateUpload{}, err
	}
	var body struct {
		ImageB64 string `json:"image_b64"`
		Mime     string `json:"mime"`
	}
	_ = json.Unmarshal(raw, &body)
	if strings.TrimSpace(body.ImageB64) == "" {
		return generateUpload{}, fmt.Errorf("%w: missing required field: image_b64", question.ErrInvalidInput)
	}
	img, hint, err := util.DecodeBase64MaybeDataURL(body.ImageB64)
	if err != nil || len(img) == 0 {
		return generateUpload{}, fmt.Errorf("%w: bad image_b64", question.ErrInvalidInput)
	}
	return generateUpload{image: img, mime: util.PickMIME(body.Mime, hint, img), params: params}, nil
}

func (h *Handle) Verify(w http.ResponseWriter, r *http.Request) {
	var req question.VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}
	svc, ok := h.service(w, r)
	if !ok {
		return
	}
	ctx, cancel := h.deadline(r)
	defer cancel()

	out, err := svc.Verify(ctx, req)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handle) AnswerFreeQuestion(w http.ResponseWriter, r *http.Request) {
	var req question.FreeQuestion
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}
	svc, ok := h.service(w, r)
	if !ok {
		return
	}
	ctx, cancel := h.deadline(r)
	defer cancel()

	out, err := svc.AnswerFreeQuestion(ctx, req)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type checkChoiceReq struct {
	Question json.RawMessage `json:"question"`
	Answer   string          `json:"answer"`
}

// CheckChoice grades a multiple-choice answer locally, without the backend.
func (h *Handle) CheckChoice(w http.ResponseWriter, r *http.Request) {
	var req checkChoiceReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Question) == 0 {
		writeError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}
	q, err := question.DecodeQuestion(req.Question)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad question: "+err.Error())
		return
	}
	mc, ok := q.(question.MultipleChoiceQuestion)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("only multiple_choice questions can be checked locally, got %s", q.Type()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"correct": question.CheckChoice(mc, req.Answer)})
}

func (h *Handle) Exchanges(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		writeError(w, http.StatusNotFound, "exchange journal is disabled")
		return
	}
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}
	out, err := h.journal.Recent(r.Context(), limit)
	if err != nil {
		h.log.Error("journal read failed", "error", err)
		writeError(w, http.StatusInternalServerError, "journal read failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, out)
}
