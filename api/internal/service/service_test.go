package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"quiz-gen/api/internal/llm"
	"quiz-gen/api/internal/question"
	"quiz-gen/api/internal/store"
	"quiz-gen/api/internal/util"
)

type fakeEngine struct {
	name  string
	reply string
	err   error

	mu      sync.Mutex
	calls   int
	prompts []string
	images  [][]byte
}

func (f *fakeEngine) Name() string     { return f.name }
func (f *fakeEngine) GetModel() string { return f.name + "-model" }

func (f *fakeEngine) Generate(_ context.Context, prompt string, image []byte, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	f.images = append(f.images, image)
	return f.reply, f.err
}

type fakeRetriever struct {
	snippets []string
	err      error
	queries  []string
	ks       []int
}

func (f *fakeRetriever) TopK(_ context.Context, query string, k int) ([]string, error) {
	f.queries = append(f.queries, query)
	f.ks = append(f.ks, k)
	return f.snippets, f.err
}

type fakeJournal struct {
	mu  sync.Mutex
	got []store.Exchange
	err error
}

func (f *fakeJournal) Record(_ context.Context, ex store.Exchange) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, ex)
	return f.err
}

func newService(t *testing.T, eng *fakeEngine, r *fakeRetriever, j *fakeJournal) *QuestionService {
	t.Helper()
	engines, err := llm.NewEngines(eng.name, eng)
	if err != nil {
		t.Fatalf("NewEngines: %v", err)
	}
	cfg := Config{Engines: engines}
	if r != nil {
		cfg.Retriever = r
	}
	if j != nil {
		cfg.Journal = j
	}
	svc, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return svc
}

func mathParams() question.GenerateParams {
	return question.GenerateParams{
		Subject:           "math",
		Difficulty:        "easy",
		NumberOfQuestions: 2,
		QuestionType:      question.Random,
	}
}

func TestGenerate_SkipsUnknownTypes(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{name: "gemini", reply: "Sure!\n```json\n" +
		`[{"question":"What is 2+2?","type":"short_answer"},{"question":"?","type":"bogus"}]` +
		"\n```"}
	ret := &fakeRetriever{snippets: []string{"addition facts", "number line"}}
	svc := newService(t, eng, ret, nil)

	qs, err := svc.Generate(context.Background(), GenerateInput{
		TextbookText: "Chapter 1: adding numbers",
		Image:        []byte{0xff, 0xd8, 0xff},
		MIME:         "image/jpeg",
		Params:       mathParams(),
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(qs) != 1 {
		t.Fatalf("got %d questions, want 1", len(qs))
	}
	sa, ok := qs[0].(question.ShortAnswerQuestion)
	if !ok || sa.Question != "What is 2+2?" {
		t.Fatalf("unexpected question: %#v", qs[0])
	}

	if eng.calls != 1 {
		t.Fatalf("backend calls=%d want 1", eng.calls)
	}
	if len(ret.ks) != 1 || ret.ks[0] != 2 || ret.queries[0] != "Chapter 1: adding numbers" {
		t.Fatalf("retriever called with %v %v", ret.queries, ret.ks)
	}
	for _, want := range []string{"addition facts", "number line", "math", "easy"} {
		if !strings.Contains(eng.prompts[0], want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if len(eng.images[0]) != 3 {
		t.Errorf("image not forwarded to backend")
	}
}

func TestGenerate_NoRetrievalForBlankText(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{name: "gemini", reply: `[{"question":"Q","type":"description"}]`}
	ret := &fakeRetriever{}
	svc := newService(t, eng, ret, nil)

	qs, err := svc.Generate(context.Background(), GenerateInput{TextbookText: "  \n", Params: mathParams()})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(qs) != 1 || qs[0].Type() != question.Description {
		t.Fatalf("unexpected questions: %#v", qs)
	}
	if len(ret.queries) != 0 {
		t.Fatalf("retriever should not be called, got %v", ret.queries)
	}
}

func TestGenerate_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		reply     string
		engErr    error
		retErr    error
		params    question.GenerateParams
		wantKind  error
		wantCalls int
	}{
		{
			name:      "invalid params never reach the backend",
			params:    question.GenerateParams{Subject: "math", Difficulty: "easy", NumberOfQuestions: 0, QuestionType: question.Random},
			wantKind:  question.ErrInvalidInput,
			wantCalls: 0,
		},
		{
			name:      "retrieval outage",
			retErr:    errors.New("connection refused"),
			params:    mathParams(),
			wantKind:  ErrBackendUnavailable,
			wantCalls: 0,
		},
		{
			name:      "backend outage",
			engErr:    context.DeadlineExceeded,
			params:    mathParams(),
			wantKind:  ErrBackendUnavailable,
			wantCalls: 1,
		},
		{
			name:      "prose only",
			reply:     "I cannot help with that.",
			params:    mathParams(),
			wantKind:  util.ErrNoJSONFound,
			wantCalls: 1,
		},
		{
			name:      "broken json",
			reply:     `[{"question": "x", }]`,
			params:    mathParams(),
			wantKind:  util.ErrJSONParse,
			wantCalls: 1,
		},
		{
			name:      "object instead of array",
			reply:     `{"question":"x","type":"short_answer"}`,
			params:    mathParams(),
			wantKind:  question.ErrValidation,
			wantCalls: 1,
		},
		{
			name:      "multiple choice with one choice",
			reply:     `[{"question":"Pick","type":"multiple_choice","choices":["a"],"correct_answer":"a"}]`,
			params:    mathParams(),
			wantKind:  question.ErrValidation,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			eng := &fakeEngine{name: "gemini", reply: tt.reply, err: tt.engErr}
			ret := &fakeRetriever{snippets: []string{"s"}, err: tt.retErr}
			svc := newService(t, eng, ret, nil)

			_, err := svc.Generate(context.Background(), GenerateInput{TextbookText: "page", Params: tt.params})
			if err == nil {
				t.Fatalf("expected error")
			}
			var opErr *OperationError
			if !errors.As(err, &opErr) || opErr.Op != OpGenerate {
				t.Fatalf("want *OperationError for %q, got %T %v", OpGenerate, err, err)
			}
			if !strings.HasPrefix(err.Error(), "generate questions failed: ") {
				t.Errorf("message=%q", err.Error())
			}
			if !errors.Is(err, tt.wantKind) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.wantKind)
			}
			if eng.calls != tt.wantCalls {
				t.Errorf("backend calls=%d want %d", eng.calls, tt.wantCalls)
			}
		})
	}
}

func TestVerify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		reply string
		want  question.AnswerVerificationResult
	}{
		{
			name:  "fenced object",
			reply: "```json\n{\"correct\": true, \"feedback\": \"Well done.\\\\nKeep going.\"}\n```",
			want:  question.AnswerVerificationResult{Correct: true, Feedback: "Well done.\nKeep going."},
		},
		{
			name:  "missing fields take defaults",
			reply: `{"note":"hmm"}`,
			want:  question.AnswerVerificationResult{Correct: false, Feedback: ""},
		},
		{
			name:  "string boolean",
			reply: `{"correct":"true","feedback":"ok"}`,
			want:  question.AnswerVerificationResult{Correct: true, Feedback: "ok"},
		},
		{
			name:  "prose falls back to raw text",
			reply: "The answer looks right to me.",
			want:  question.AnswerVerificationResult{Correct: false, Feedback: "The answer looks right to me."},
		},
		{
			name:  "array is not an object",
			reply: `[true, "ok"]`,
			want:  question.AnswerVerificationResult{Correct: false, Feedback: `[true, "ok"]`},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			eng := &fakeEngine{name: "openai", reply: tt.reply}
			svc := newService(t, eng, nil, nil)

			got, err := svc.Verify(context.Background(), question.VerifyRequest{
				Question:     "Why is the sky blue?",
				Answer:       "Rayleigh scattering",
				QuestionType: question.Description,
			})
			if err != nil {
				t.Fatalf("Verify: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got=%+v want=%+v", got, tt.want)
			}
		})
	}
}

func TestVerify_RejectsMultipleChoiceWithoutBackendCall(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{name: "gemini", reply: `{"correct":true}`}
	svc := newService(t, eng, nil, nil)

	_, err := svc.Verify(context.Background(), question.VerifyRequest{
		Question:     "Capital of France?",
		Answer:       "Paris",
		QuestionType: question.MultipleChoice,
	})
	if !errors.Is(err, question.ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput, got %v", err)
	}
	if eng.calls != 0 {
		t.Fatalf("backend called %d times", eng.calls)
	}
}

func TestVerify_BackendError(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{name: "gemini", err: errors.New("503")}
	svc := newService(t, eng, nil, nil)

	_, err := svc.Verify(context.Background(), question.VerifyRequest{
		Question: "q", Answer: "a", QuestionType: question.ShortAnswer,
	})
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("want ErrBackendUnavailable, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "verify answer failed: ") {
		t.Fatalf("message=%q", err.Error())
	}
}

func TestAnswerFreeQuestion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{"structured", `Here: {"answer": "Photosynthesis\\nmakes sugar."}`, "Photosynthesis\nmakes sugar."},
		{"fallback", "Plants make sugar from light.", "Plants make sugar from light."},
		{"non-string answer", `{"answer": 42}`, ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			eng := &fakeEngine{name: "anthropic", reply: tt.reply}
			svc := newService(t, eng, nil, nil)

			got, err := svc.AnswerFreeQuestion(context.Background(), question.FreeQuestion{
				Subject: "biology", Question: "What is photosynthesis?",
			})
			if err != nil {
				t.Fatalf("AnswerFreeQuestion: %v", err)
			}
			if got.Answer != tt.want {
				t.Fatalf("got=%q want=%q", got.Answer, tt.want)
			}
		})
	}
}

func TestAnswerFreeQuestion_InvalidInput(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{name: "gemini"}
	svc := newService(t, eng, nil, nil)

	_, err := svc.AnswerFreeQuestion(context.Background(), question.FreeQuestion{Subject: "biology"})
	if !errors.Is(err, question.ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput, got %v", err)
	}
	if eng.calls != 0 {
		t.Fatalf("backend called")
	}
}

func TestJournal(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{name: "gemini", reply: "no json here"}
	j := &fakeJournal{err: errors.New("db down")}
	svc := newService(t, eng, nil, j)

	got, err := svc.AnswerFreeQuestion(context.Background(), question.FreeQuestion{Subject: "s", Question: "q"})
	if err != nil {
		t.Fatalf("journal failure must not fail the call: %v", err)
	}
	if got.Answer != "no json here" {
		t.Fatalf("answer=%q", got.Answer)
	}
	if len(j.got) != 1 {
		t.Fatalf("recorded %d exchanges, want 1", len(j.got))
	}
	ex := j.got[0]
	if ex.Operation != OpAnswer || ex.Engine != "gemini" || ex.Model != "gemini-model" || !ex.FallbackUsed {
		t.Fatalf("unexpected exchange: %+v", ex)
	}
	if ex.Response != "no json here" || ex.Prompt == "" {
		t.Fatalf("prompt/response not recorded: %+v", ex)
	}
}

func TestUsing(t *testing.T) {
	t.Parallel()

	g := &fakeEngine{name: "gemini", reply: `{"answer":"from gemini"}`}
	o := &fakeEngine{name: "openai", reply: `{"answer":"from openai"}`}
	engines, err := llm.NewEngines("gemini", g, o)
	if err != nil {
		t.Fatalf("NewEngines: %v", err)
	}
	svc, err := New(Config{Engines: engines})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	alt, err := svc.Using("gpt")
	if err != nil {
		t.Fatalf("Using: %v", err)
	}
	got, err := alt.AnswerFreeQuestion(context.Background(), question.FreeQuestion{Subject: "s", Question: "q"})
	if err != nil || got.Answer != "from openai" {
		t.Fatalf("got=%q err=%v", got.Answer, err)
	}
	if svc.Engine().Name() != "gemini" {
		t.Fatalf("Using must not change the receiver")
	}

	if _, err := svc.Using("mistral"); !errors.Is(err, question.ErrInvalidInput) {
		t.Fatalf("unknown engine: want ErrInvalidInput, got %v", err)
	}
}
