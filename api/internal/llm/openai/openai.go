package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	lcopenai "github.com/tmc/langchaingo/llms/openai"

	"quiz-gen/api/internal/llm"
	"quiz-gen/api/internal/util"
)

type Engine struct {
	Model  string
	client llms.Model
	opts   llm.Options
}

// New builds an engine backed by the OpenAI chat API. The returned error is
// only about client construction; an empty key is reported at call time.
func New(apiKey, model string, opts llm.Options) (*Engine, error) {
	e := &Engine{Model: strings.TrimSpace(model), opts: opts.Normalize()}
	if strings.TrimSpace(apiKey) == "" {
		return e, nil
	}
	cl, err := lcopenai.New(
		lcopenai.WithModel(e.Model),
		lcopenai.WithToken(strings.TrimSpace(apiKey)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
	}
	e.client = cl
	return e, nil
}

// NewWithClient wires any langchaingo model, e.g. an OpenAI-compatible gateway.
func NewWithClient(model string, client llms.Model, opts llm.Options) *Engine {
	return &Engine{Model: model, client: client, opts: opts.Normalize()}
}

func (e *Engine) Name() string     { return "openai" }
func (e *Engine) GetModel() string { return e.Model }

func (e *Engine) Generate(ctx context.Context, prompt string, image []byte, mime string) (string, error) {
	if e.client == nil {
		return "", errors.New("OPENAI_API_KEY is empty")
	}
	ctx, cancel := e.opts.WithTimeout(ctx)
	defer cancel()

	parts := make([]llms.ContentPart, 0, 2)
	if len(image) > 0 {
		parts = append(parts, llms.BinaryPart(util.PickMIME(mime, "", image), image))
	}
	parts = append(parts, llms.TextPart(prompt))
	msgs := []llms.MessageContent{{Role: llms.ChatMessageTypeHuman, Parts: parts}}

	return llm.Retry(ctx, e.opts.Attempts, func(ctx context.Context) (string, error) {
		resp, err := e.client.GenerateContent(ctx, msgs,
			llms.WithTemperature(float64(e.opts.Temperature)),
			llms.WithMaxTokens(e.opts.MaxTokens),
		)
		if err != nil {
			return "", fmt.Errorf("openai: %w", err)
		}
		if resp == nil || len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Content) == "" {
			return "", fmt.Errorf("openai: %w", llm.ErrEmptyResponse)
		}
		return resp.Choices[0].Content, nil
	})
}
