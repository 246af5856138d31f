// Package retrieval looks up reference passages related to a textbook page.
package retrieval

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Retriever returns up to k passages ranked by relevance to query.
type Retriever interface {
	TopK(ctx context.Context, query string, k int) ([]string, error)
}

// NewOpenAIEmbedder builds the query/document embedder shared by both index kinds.
func NewOpenAIEmbedder(apiKey, model string) (embeddings.Embedder, error) {
	llm, err := openai.New(
		openai.WithToken(apiKey),
		openai.WithEmbeddingModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
	}
	emb, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return emb, nil
}
