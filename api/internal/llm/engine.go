package llm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Engine is a generative backend: one prompt (plus an optional image) in, raw text out.
type Engine interface {
	Name() string
	GetModel() string
	Generate(ctx context.Context, prompt string, image []byte, mime string) (string, error)
}

// ErrEmptyResponse is returned when the backend answered with no text at all.
var ErrEmptyResponse = errors.New("empty response")

// Options are shared by all engines.
type Options struct {
	Timeout     time.Duration
	Attempts    int
	Temperature float32
	MaxTokens   int
}

// Normalize fills zero values with defaults. Engines call it in their constructors.
func (o Options) Normalize() Options {
	if o.Attempts < 1 {
		o.Attempts = 1
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = 8192
	}
	return o
}

// WithTimeout bounds ctx by the configured per-call timeout, if any.
func (o Options) WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.Timeout)
}

// Retry runs call up to attempts times with a linear backoff of 300ms per attempt.
// The default is a single attempt.
func Retry(ctx context.Context, attempts int, call func(context.Context) (string, error)) (string, error) {
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		out, err := call(ctx)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if attempt == attempts || errors.Is(err, ErrEmptyResponse) {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(time.Duration(attempt) * 300 * time.Millisecond):
		}
	}
	return "", lastErr
}

// Engines is the set of configured backends with one default.
type Engines struct {
	def string
	m   map[string]Engine
}

var aliases = map[string]string{
	"gpt":    "openai",
	"claude": "anthropic",
	"google": "gemini",
}

func canonical(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if a, ok := aliases[name]; ok {
		return a
	}
	return name
}

// NewEngines registers the non-nil engines. def must name one of them.
func NewEngines(def string, engs ...Engine) (*Engines, error) {
	e := &Engines{m: map[string]Engine{}}
	for _, eng := range engs {
		if eng == nil {
			continue
		}
		e.m[canonical(eng.Name())] = eng
	}
	if len(e.m) == 0 {
		return nil, errors.New("no llm engines configured")
	}
	e.def = canonical(def)
	if _, ok := e.m[e.def]; !ok {
		return nil, fmt.Errorf("default llm %q is not configured; have %s", def, strings.Join(e.Names(), ", "))
	}
	return e, nil
}

// GetEngine resolves an llm_name; empty means the default engine.
func (e *Engines) GetEngine(llmName string) (Engine, error) {
	name := canonical(llmName)
	if name == "" {
		name = e.def
	}
	if eng, ok := e.m[name]; ok {
		return eng, nil
	}
	return nil, fmt.Errorf("unknown llm_name %q; use one of: %s", llmName, strings.Join(e.Names(), ", "))
}

func (e *Engines) Default() Engine { return e.m[e.def] }

func (e *Engines) Names() []string {
	out := make([]string, 0, len(e.m))
	for k := range e.m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
