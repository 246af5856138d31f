package config

import (
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"GEMINI_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "LLM_DEFAULT",
		"RETRIEVAL_PROVIDER", "PINECONE_API_KEY", "PINECONE_INDEX", "OCR_PROVIDER",
		"YC_OAUTH_TOKEN", "YC_FOLDER_ID", "DATABASE_URL", "POSTGRES_PASSWORD",
		"LLM_TIMEOUT", "LLM_ATTEMPTS", "RETRIEVAL_TOP_K", "OCR_LANGS", "JOURNAL_RETENTION",
		"PORT", "REQUEST_TIMEOUT", "POSTGRES_USER", "POSTGRES_DB", "PGHOST", "PGPORT",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "g")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8000" || cfg.LLMDefault != "gemini" || cfg.RetrievalTopK != 2 || cfg.LLMAttempts != 1 {
		t.Fatalf("defaults: %+v", cfg)
	}
	if cfg.LLMTimeout != 120*time.Second || cfg.RequestTimeout != 180*time.Second {
		t.Fatalf("timeouts: %v %v", cfg.LLMTimeout, cfg.RequestTimeout)
	}
	if strings.Join(cfg.OCRLangs, ",") != "ko,en" {
		t.Fatalf("langs=%v", cfg.OCRLangs)
	}
	if cfg.DatabaseURL != "" {
		t.Fatalf("journal should be off, dsn=%q", cfg.DatabaseURL)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "o")
	t.Setenv("LLM_DEFAULT", "OpenAI")
	t.Setenv("LLM_TIMEOUT", "45")
	t.Setenv("JOURNAL_RETENTION", "48h")
	t.Setenv("OCR_LANGS", " ru , en ,")
	t.Setenv("RETRIEVAL_PROVIDER", "local")
	t.Setenv("POSTGRES_PASSWORD", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLMDefault != "openai" || cfg.LLMTimeout != 45*time.Second || cfg.JournalRetention != 48*time.Hour {
		t.Fatalf("overrides: %+v", cfg)
	}
	if strings.Join(cfg.OCRLangs, ",") != "ru,en" {
		t.Fatalf("langs=%v", cfg.OCRLangs)
	}
	if !strings.HasPrefix(cfg.DatabaseURL, "postgres://quizgen:secret@db:5432/quizgen") {
		t.Fatalf("dsn=%q", cfg.DatabaseURL)
	}
	if s := SafeDSNSummary(cfg.DatabaseURL); strings.Contains(s, "secret") || s != "host=db port=5432 db=quizgen user=quizgen" {
		t.Fatalf("summary=%q", s)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"no llm", map[string]string{}, "no LLM configured"},
		{"bad timeout", map[string]string{"GEMINI_API_KEY": "g", "LLM_TIMEOUT": "soon"}, "LLM_TIMEOUT"},
		{"bad top k", map[string]string{"GEMINI_API_KEY": "g", "RETRIEVAL_TOP_K": "0"}, "RETRIEVAL_TOP_K"},
		{"pinecone without key", map[string]string{"OPENAI_API_KEY": "o", "LLM_DEFAULT": "openai", "RETRIEVAL_PROVIDER": "pinecone"}, "PINECONE_API_KEY"},
		{"local without openai", map[string]string{"GEMINI_API_KEY": "g", "RETRIEVAL_PROVIDER": "local"}, "OPENAI_API_KEY"},
		{"yandex without folder", map[string]string{"GEMINI_API_KEY": "g", "OCR_PROVIDER": "yandex", "YC_OAUTH_TOKEN": "t"}, "YC_FOLDER_ID"},
		{"unknown ocr", map[string]string{"GEMINI_API_KEY": "g", "OCR_PROVIDER": "tesseract"}, "OCR_PROVIDER"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err=%v want mention of %q", err, tt.want)
			}
		})
	}
}
