package anthropic

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"quiz-gen/api/internal/llm"
	"quiz-gen/api/internal/util"
)

// messages is the slice of the SDK the engine depends on.
type messages interface {
	New(ctx context.Context, body anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

type Engine struct {
	Model string
	api   messages
	opts  llm.Options
}

func New(apiKey, model string, opts llm.Options) *Engine {
	e := &Engine{Model: strings.TrimSpace(model), opts: opts.Normalize()}
	if key := strings.TrimSpace(apiKey); key != "" {
		client := anthropic.NewClient(option.WithAPIKey(key))
		e.api = &client.Messages
	}
	return e
}

func (e *Engine) Name() string     { return "anthropic" }
func (e *Engine) GetModel() string { return e.Model }

// claude accepts only these image media types
var imageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

func (e *Engine) Generate(ctx context.Context, prompt string, image []byte, mime string) (string, error) {
	if e.api == nil {
		return "", errors.New("ANTHROPIC_API_KEY is empty")
	}
	ctx, cancel := e.opts.WithTimeout(ctx)
	defer cancel()

	blocks := make([]anthropic.ContentBlockParamUnion, 0, 2)
	if len(image) > 0 {
		mt := util.PickMIME(mime, "", image)
		if !imageTypes[mt] {
			return "", fmt.Errorf("anthropic: unsupported image type %q", mt)
		}
		blocks = append(blocks, anthropic.NewImageBlockBase64(mt, base64.StdEncoding.EncodeToString(image)))
	}
	blocks = append(blocks, anthropic.NewTextBlock(prompt))

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(e.Model),
		MaxTokens:   int64(e.opts.MaxTokens),
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(blocks...)},
		Temperature: anthropic.Float(float64(e.opts.Temperature)),
	}

	return llm.Retry(ctx, e.opts.Attempts, func(ctx context.Context) (string, error) {
		resp, err := e.api.New(ctx, params)
		if err != nil {
			return "", fmt.Errorf("anthropic: %w", err)
		}
		txt := messageText(resp)
		if strings.TrimSpace(txt) == "" {
			return "", fmt.Errorf("anthropic: %w", llm.ErrEmptyResponse)
		}
		return txt, nil
	})
}

func messageText(m *anthropic.Message) string {
	if m == nil {
		return ""
	}
	var b strings.Builder
	for _, block := range m.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(tb.Text)
		}
	}
	return b.String()
}
