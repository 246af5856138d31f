package app

import (
	"context"
	"testing"

	"quiz-gen/api/internal/config"
	"quiz-gen/api/internal/logger"
	"quiz-gen/api/internal/ocr"
)

func TestBuildEngines(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		LLMDefault:      "claude",
		GeminiAPIKey:    "g-key",
		GeminiModel:     "gemini-2.5-flash",
		AnthropicAPIKey: "a-key",
		AnthropicModel:  "claude-sonnet-4-20250514",
		LLMAttempts:     1,
	}
	engines, err := BuildEngines(cfg)
	if err != nil {
		t.Fatalf("BuildEngines: %v", err)
	}
	if got := engines.Default().Name(); got != "anthropic" {
		t.Fatalf("default=%q want anthropic", got)
	}
	if names := engines.Names(); len(names) != 2 {
		t.Fatalf("names=%v", names)
	}
	if _, err := engines.GetEngine("openai"); err == nil {
		t.Fatalf("openai has no key and must not be registered")
	}
}

func TestBuildEnginesDefaultMissing(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{LLMDefault: "openai", GeminiAPIKey: "g-key", GeminiModel: "m"}
	if _, err := BuildEngines(cfg); err == nil {
		t.Fatalf("expected error for unconfigured default")
	}
}

func TestBuildMinimal(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		LLMDefault:        "gemini",
		GeminiAPIKey:      "g-key",
		GeminiModel:       "m",
		LLMAttempts:       1,
		RetrievalProvider: "none",
		RetrievalTopK:     2,
		OCRProvider:       "none",
	}
	a, err := Build(context.Background(), cfg, logger.Nop())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer a.Close()

	if a.Journal != nil {
		t.Fatalf("journal must be disabled without a database")
	}
	if _, ok := a.OCR.(ocr.Nop); !ok {
		t.Fatalf("OCR=%T want ocr.Nop", a.OCR)
	}
	if a.Service == nil || a.Service.Engine().Name() != "gemini" {
		t.Fatalf("service not wired")
	}

	// no journal: returns immediately
	a.PurgeLoop(context.Background(), 0)
}
