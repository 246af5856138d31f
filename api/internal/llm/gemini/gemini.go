package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"quiz-gen/api/internal/llm"
	"quiz-gen/api/internal/util"
)

type Engine struct {
	APIKey string
	Model  string
	opts   llm.Options
}

func New(apiKey, model string, opts llm.Options) *Engine {
	return &Engine{
		APIKey: strings.TrimSpace(apiKey),
		Model:  strings.TrimSpace(model),
		opts:   opts.Normalize(),
	}
}

func (e *Engine) Name() string     { return "gemini" }
func (e *Engine) GetModel() string { return e.Model }

// Generate sends the image (if any) followed by the prompt as a single user turn.
func (e *Engine) Generate(ctx context.Context, prompt string, image []byte, mime string) (string, error) {
	if e.APIKey == "" {
		return "", errors.New("GEMINI_API_KEY is empty")
	}
	ctx, cancel := e.opts.WithTimeout(ctx)
	defer cancel()

	cl, err := genai.NewClient(ctx, option.WithAPIKey(e.APIKey))
	if err != nil {
		return "", err
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.Model)
	if m == nil {
		return "", fmt.Errorf("gemini: model is nil")
	}
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:     ptrFloat32(e.opts.Temperature),
		MaxOutputTokens: ptrInt32(int32(e.opts.MaxTokens)),
	}

	parts := make([]genai.Part, 0, 2)
	if len(image) > 0 {
		parts = append(parts, genai.Blob{MIMEType: util.PickMIME(mime, "", image), Data: image})
	}
	parts = append(parts, genai.Text(prompt))

	return llm.Retry(ctx, e.opts.Attempts, func(ctx context.Context) (string, error) {
		resp, err := m.GenerateContent(ctx, parts...)
		if err != nil {
			return "", fmt.Errorf("gemini: %w", err)
		}
		txt := firstText(resp)
		if strings.TrimSpace(txt) == "" {
			return "", fmt.Errorf("gemini: %w", llm.ErrEmptyResponse)
		}
		return txt, nil
	})
}

// firstText joins the text parts of the first candidate that has any.
func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		var b strings.Builder
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
		if b.Len() > 0 {
			return b.String()
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
func ptrInt32(v int32) *int32       { return &v }
