// Command indexdocs chunks reference documents, embeds them and writes them to
// the local index file and/or the Pinecone index used for retrieval.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"quiz-gen/api/internal/config"
	"quiz-gen/api/internal/logger"
	"quiz-gen/api/internal/retrieval"
)

const upsertBatch = 50

func main() {
	var (
		dir       string
		out       string
		target    string
		chunkSize int
	)
	flag.StringVar(&dir, "dir", "", "directory with .txt/.md reference documents (required)")
	flag.StringVar(&out, "out", "", "local index file (default LOCAL_INDEX_PATH)")
	flag.StringVar(&target, "target", "local", "where to write: local | pinecone | both")
	flag.IntVar(&chunkSize, "chunk", 1200, "max runes per passage")
	flag.Parse()

	if dir == "" {
		fmt.Fprintln(os.Stderr, "indexdocs: -dir is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	if out == "" {
		out = cfg.LocalIndexPath
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, log, dir, out, target, chunkSize); err != nil {
		log.Fatal("indexing failed", "error", err)
	}
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger, dir, out, target string, chunkSize int) error {
	writeLocal := target == "local" || target == "both"
	writePinecone := target == "pinecone" || target == "both"
	if !writeLocal && !writePinecone {
		return fmt.Errorf("unknown -target %q", target)
	}
	if cfg.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required for embeddings")
	}

	docs, err := retrieval.LoadDocuments(dir)
	if err != nil {
		return err
	}
	log.Info("documents loaded", "dir", dir, "count", len(docs))
	if len(docs) == 0 {
		return fmt.Errorf("no .txt or .md files under %s", dir)
	}

	emb, err := retrieval.NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.EmbeddingModel)
	if err != nil {
		return err
	}
	start := time.Now()
	passages, err := retrieval.BuildPassages(ctx, emb, docs, chunkSize)
	if err != nil {
		return err
	}
	log.Info("passages embedded", "count", len(passages), "model", cfg.EmbeddingModel, "took", time.Since(start).String())

	if writeLocal {
		if err := retrieval.WriteLocalIndex(out, cfg.EmbeddingModel, passages); err != nil {
			return err
		}
		log.Info("local index written", "path", out)
	}

	if writePinecone {
		if cfg.PineconeAPIKey == "" || cfg.PineconeIndex == "" {
			return fmt.Errorf("PINECONE_API_KEY and PINECONE_INDEX are required for -target %s", target)
		}
		pc, err := retrieval.NewPinecone(cfg.PineconeAPIKey, cfg.PineconeIndex, cfg.PineconeNamespace, emb, log)
		if err != nil {
			return err
		}
		total := 0
		for i := 0; i < len(passages); i += upsertBatch {
			end := min(i+upsertBatch, len(passages))
			n, err := pc.Upsert(ctx, passages[i:end])
			if err != nil {
				return fmt.Errorf("upsert batch %d: %w", i/upsertBatch+1, err)
			}
			total += n
			log.Info("upserted batch", "batch", i/upsertBatch+1, "vectors", n)
		}
		log.Info("pinecone index updated", "index", cfg.PineconeIndex, "vectors", total)
	}
	return nil
}
