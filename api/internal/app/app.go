// Package app assembles the collaborators shared by the HTTP API and the bot.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"quiz-gen/api/internal/config"
	"quiz-gen/api/internal/llm"
	"quiz-gen/api/internal/llm/anthropic"
	"quiz-gen/api/internal/llm/gemini"
	"quiz-gen/api/internal/llm/openai"
	"quiz-gen/api/internal/logger"
	"quiz-gen/api/internal/ocr"
	"quiz-gen/api/internal/ocr/vision"
	"quiz-gen/api/internal/ocr/yandex"
	"quiz-gen/api/internal/retrieval"
	"quiz-gen/api/internal/service"
	"quiz-gen/api/internal/store"
)

type App struct {
	Service *service.QuestionService
	OCR     ocr.Recognizer
	// Journal is nil when no database is configured.
	Journal *store.ExchangeRepo

	db      *sql.DB
	closers []func() error
	log     *logger.Logger
}

func Build(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	a := &App{log: log}

	engines, err := BuildEngines(cfg)
	if err != nil {
		return nil, err
	}
	log.Info("llm engines ready", "default", engines.Default().Name(), "available", engines.Names())

	retriever, err := buildRetriever(cfg, log)
	if err != nil {
		return nil, err
	}

	a.OCR, err = a.buildOCR(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	scfg := service.Config{
		Engines:   engines,
		Retriever: retriever,
		Logger:    log.With("component", "service"),
		TopK:      cfg.RetrievalTopK,
	}
	if cfg.DatabaseURL != "" {
		db, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.db = db
		a.closers = append(a.closers, db.Close)
		log.Info("db connected", "dsn", config.SafeDSNSummary(cfg.DatabaseURL))

		a.Journal = store.NewExchangeRepo(db)
		if err := a.Journal.EnsureSchema(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("journal schema: %w", err)
		}
		scfg.Journal = a.Journal
	} else {
		log.Info("exchange journal disabled: no database configured")
	}

	a.Service, err = service.New(scfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// BuildEngines registers every backend with an API key.
func BuildEngines(cfg *config.Config) (*llm.Engines, error) {
	opts := llm.Options{
		Timeout:     cfg.LLMTimeout,
		Attempts:    cfg.LLMAttempts,
		Temperature: float32(cfg.LLMTemperature),
	}
	var engs []llm.Engine
	if cfg.GeminiAPIKey != "" {
		engs = append(engs, gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel, opts))
	}
	if cfg.OpenAIAPIKey != "" {
		eng, err := openai.New(cfg.OpenAIAPIKey, cfg.OpenAIModel, opts)
		if err != nil {
			return nil, err
		}
		engs = append(engs, eng)
	}
	if cfg.AnthropicAPIKey != "" {
		engs = append(engs, anthropic.New(cfg.AnthropicAPIKey, cfg.AnthropicModel, opts))
	}
	return llm.NewEngines(cfg.LLMDefault, engs...)
}

func buildRetriever(cfg *config.Config, log *logger.Logger) (retrieval.Retriever, error) {
	switch cfg.RetrievalProvider {
	case "pinecone":
		emb, err := retrieval.NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.EmbeddingModel)
		if err != nil {
			return nil, err
		}
		return retrieval.NewPinecone(cfg.PineconeAPIKey, cfg.PineconeIndex, cfg.PineconeNamespace, emb, log)
	case "local":
		emb, err := retrieval.NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.EmbeddingModel)
		if err != nil {
			return nil, err
		}
		ix, err := retrieval.LoadLocalIndex(cfg.LocalIndexPath, emb)
		if err != nil {
			return nil, err
		}
		log.Info("local index loaded", "path", cfg.LocalIndexPath, "passages", ix.Len())
		return ix, nil
	default:
		log.Info("retrieval disabled")
		return nil, nil
	}
}

func (a *App) buildOCR(ctx context.Context, cfg *config.Config) (ocr.Recognizer, error) {
	opt := ocr.Options{Langs: cfg.OCRLangs}
	switch cfg.OCRProvider {
	case "yandex":
		return yandex.New(cfg.YCOAuthToken, cfg.YCFolderID, opt), nil
	case "vision":
		eng, err := vision.New(ctx, opt)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, eng.Close)
		return eng, nil
	default:
		return ocr.Nop{}, nil
	}
}

// PurgeLoop trims the journal once an hour until ctx is done.
func (a *App) PurgeLoop(ctx context.Context, retention time.Duration) {
	if a.Journal == nil || retention <= 0 {
		return
	}
	t := time.NewTicker(time.Hour)
	defer t.Stop()
	for {
		n, err := a.Journal.PurgeOlderThan(ctx, retention)
		if err != nil {
			a.log.Warn("journal purge failed", "error", err)
		} else if n > 0 {
			a.log.Info("journal purged", "rows", n)
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}
