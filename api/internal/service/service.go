package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"quiz-gen/api/internal/llm"
	"quiz-gen/api/internal/logger"
	"quiz-gen/api/internal/prompt"
	"quiz-gen/api/internal/question"
	"quiz-gen/api/internal/retrieval"
	"quiz-gen/api/internal/store"
	"quiz-gen/api/internal/util"
)

const (
	OpGenerate = "generate questions"
	OpVerify   = "verify answer"
	OpAnswer   = "answer question"
)

// Journal receives every backend exchange. Failures to record are logged only.
type Journal interface {
	Record(ctx context.Context, ex store.Exchange) error
}

type Config struct {
	Engines   *llm.Engines
	Retriever retrieval.Retriever // optional
	Journal   Journal             // optional
	Logger    *logger.Logger
	TopK      int
}

// QuestionService runs the three flows: generate, verify, answer. Each flow makes
// at most one backend call and never retries.
type QuestionService struct {
	engines   *llm.Engines
	backend   llm.Engine
	retriever retrieval.Retriever
	journal   Journal
	log       *logger.Logger
	topK      int
}

func New(cfg Config) (*QuestionService, error) {
	if cfg.Engines == nil {
		return nil, errors.New("service: engines are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 2
	}
	return &QuestionService{
		engines:   cfg.Engines,
		backend:   cfg.Engines.Default(),
		retriever: cfg.Retriever,
		journal:   cfg.Journal,
		log:       cfg.Logger,
		topK:      cfg.TopK,
	}, nil
}

// Using returns a copy of the service bound to the named engine ("" keeps the default).
func (s *QuestionService) Using(llmName string) (*QuestionService, error) {
	if strings.TrimSpace(llmName) == "" {
		return s, nil
	}
	eng, err := s.engines.GetEngine(llmName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", question.ErrInvalidInput, err)
	}
	cp := *s
	cp.backend = eng
	return &cp, nil
}

func (s *QuestionService) Engine() llm.Engine { return s.backend }

// GenerateInput is everything needed to generate questions from one page.
type GenerateInput struct {
	// TextbookText is the OCR text of the page; it drives retrieval.
	TextbookText string
	Image        []byte
	MIME         string
	Params       question.GenerateParams
}

// Generate may return fewer questions than requested: records the model labels
// with an unknown type are dropped.
func (s *QuestionService) Generate(ctx context.Context, in GenerateInput) ([]question.Question, error) {
	if err := in.Params.Validate(); err != nil {
		return nil, fail(OpGenerate, err)
	}
	snippets, err := s.retrieve(ctx, in.TextbookText)
	if err != nil {
		return nil, fail(OpGenerate, err)
	}

	p := in.Params
	text := prompt.Generation(p.Subject, p.Difficulty, p.NumberOfQuestions, p.QuestionType, snippets)
	ex, err := s.call(ctx, OpGenerate, text, in.Image, in.MIME)
	if err != nil {
		return nil, fail(OpGenerate, err)
	}

	value, err := util.ExtractJSON(ex.Response)
	if err != nil {
		ex.Error = err.Error()
		s.record(ctx, ex)
		return nil, fail(OpGenerate, err)
	}
	batch, err := question.FromRecords(value)
	if err != nil {
		ex.Error = err.Error()
		s.record(ctx, ex)
		return nil, fail(OpGenerate, err)
	}
	s.record(ctx, ex)

	if batch.Skipped > 0 {
		s.log.Warn("skipped unrecognized question records", "skipped", batch.Skipped, "engine", ex.Engine)
	}
	s.log.Info("questions generated",
		"engine", ex.Engine,
		"subject", p.Subject,
		"requested", p.NumberOfQuestions,
		"returned", len(batch.Questions),
		"snippets", len(snippets),
	)
	return batch.Questions, nil
}

// Verify grades a short-answer or description answer with the backend.
// Multiple-choice questions are rejected before any backend call.
func (s *QuestionService) Verify(ctx context.Context, req question.VerifyRequest) (question.AnswerVerificationResult, error) {
	if err := req.Validate(); err != nil {
		return question.AnswerVerificationResult{}, fail(OpVerify, err)
	}
	text, err := prompt.Verification(req.Question, req.Answer, req.QuestionType)
	if err != nil {
		return question.AnswerVerificationResult{}, fail(OpVerify, err)
	}
	ex, err := s.call(ctx, OpVerify, text, nil, "")
	if err != nil {
		return question.AnswerVerificationResult{}, fail(OpVerify, err)
	}

	interp := util.Interpret(ex.Response)
	obj, ok := interp.Object()
	if !ok {
		ex.FallbackUsed = true
		s.record(ctx, ex)
		s.log.Warn("verification reply is not a JSON object; returning raw text", "engine", ex.Engine, "cause", causeOf(interp))
		return question.AnswerVerificationResult{Correct: false, Feedback: interp.Raw}, nil
	}
	s.record(ctx, ex)
	feedback, _ := obj["feedback"].(string)
	return question.AnswerVerificationResult{Correct: asBool(obj["correct"]), Feedback: feedback}, nil
}

// AnswerFreeQuestion answers an open question about a subject.
func (s *QuestionService) AnswerFreeQuestion(ctx context.Context, fq question.FreeQuestion) (question.FreeAnswer, error) {
	if err := fq.Validate(); err != nil {
		return question.FreeAnswer{}, fail(OpAnswer, err)
	}
	ex, err := s.call(ctx, OpAnswer, prompt.FreeQuestion(fq.Subject, fq.Question), nil, "")
	if err != nil {
		return question.FreeAnswer{}, fail(OpAnswer, err)
	}

	interp := util.Interpret(ex.Response)
	obj, ok := interp.Object()
	if !ok {
		ex.FallbackUsed = true
		s.record(ctx, ex)
		s.log.Warn("answer reply is not a JSON object; returning raw text", "engine", ex.Engine, "cause", causeOf(interp))
		return question.FreeAnswer{Answer: interp.Raw}, nil
	}
	s.record(ctx, ex)
	answer, _ := obj["answer"].(string)
	return question.FreeAnswer{Answer: answer}, nil
}

func (s *QuestionService) retrieve(ctx context.Context, text string) ([]string, error) {
	if s.retriever == nil || strings.TrimSpace(text) == "" {
		return nil, nil
	}
	snippets, err := s.retriever.TopK(ctx, text, s.topK)
	if err != nil {
		return nil, fmt.Errorf("%w: retrieval: %w", ErrBackendUnavailable, err)
	}
	return snippets, nil
}

// call performs the single backend round trip of an operation. Failed calls are
// recorded here; successful ones are recorded by the caller once interpreted.
func (s *QuestionService) call(ctx context.Context, op, text string, image []byte, mime string) (store.Exchange, error) {
	ex := store.Exchange{
		Operation: op,
		Engine:    s.backend.Name(),
		Model:     s.backend.GetModel(),
		Prompt:    text,
	}
	start := time.Now()
	raw, err := s.backend.Generate(ctx, text, image, mime)
	ex.LatencyMS = time.Since(start).Milliseconds()
	ex.Response = raw
	if err != nil {
		ex.Error = err.Error()
		s.record(ctx, ex)
		s.log.Error("backend call failed", "op", op, "engine", ex.Engine, "model", ex.Model, "error", err)
		return ex, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}
	s.log.Debug("backend call done", "op", op, "engine", ex.Engine, "latency_ms", ex.LatencyMS, "bytes", len(raw))
	return ex, nil
}

func (s *QuestionService) record(ctx context.Context, ex store.Exchange) {
	if s.journal == nil {
		return
	}
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.journal.Record(rctx, ex); err != nil {
		s.log.Warn("journal record failed", "op", ex.Operation, "error", err)
	}
}

func causeOf(in util.Interpretation) string {
	if in.Cause != nil {
		return in.Cause.Error()
	}
	return "not an object"
}

// asBool accepts JSON booleans and the string forms some models emit.
func asBool(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		return err == nil && b
	default:
		return false
	}
}
