package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/pinecone-io/go-pinecone/v3/pinecone"
	"github.com/tmc/langchaingo/embeddings"
	"google.golang.org/protobuf/types/known/structpb"

	"quiz-gen/api/internal/logger"
)

// Pinecone searches a hosted vector index. Passage text lives in match metadata.
type Pinecone struct {
	client    *pinecone.Client
	embedder  embeddings.Embedder
	indexName string
	namespace string
	log       *logger.Logger

	mu   sync.Mutex
	conn *pinecone.IndexConnection
}

func NewPinecone(apiKey, indexName, namespace string, emb embeddings.Embedder, log *logger.Logger) (*Pinecone, error) {
	if emb == nil {
		return nil, errors.New("pinecone: embedder is nil")
	}
	pc, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create Pinecone client: %w", err)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Pinecone{
		client:    pc,
		embedder:  emb,
		indexName: indexName,
		namespace: namespace,
		log:       log.With("component", "pinecone", "index", indexName),
	}, nil
}

// connect resolves the index host once and reuses the connection.
func (p *Pinecone) connect(ctx context.Context) (*pinecone.IndexConnection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		return p.conn, nil
	}
	desc, err := p.client.DescribeIndex(ctx, p.indexName)
	if err != nil {
		return nil, fmt.Errorf("failed to describe index: %w", err)
	}
	conn, err := p.client.Index(pinecone.NewIndexConnParams{Host: desc.Host, Namespace: p.namespace})
	if err != nil {
		return nil, fmt.Errorf("failed to create index connection: %w", err)
	}
	p.conn = conn
	return conn, nil
}

func (p *Pinecone) TopK(ctx context.Context, query string, k int) ([]string, error) {
	if k <= 0 || strings.TrimSpace(query) == "" {
		return []string{}, nil
	}
	conn, err := p.connect(ctx)
	if err != nil {
		return nil, err
	}
	vec, err := p.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	res, err := conn.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          vec,
		TopK:            uint32(k),
		IncludeValues:   false,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}

	matches := res.Matches
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })

	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if m == nil || m.Vector == nil || m.Vector.Metadata == nil {
			continue
		}
		if txt := matchText(m.Vector.Metadata.AsMap()); txt != "" {
			out = append(out, txt)
		}
	}
	p.log.Debug("pinecone query", "k", k, "matches", len(matches), "returned", len(out))
	return out, nil
}

// Upsert writes embedded passages into the index namespace.
func (p *Pinecone) Upsert(ctx context.Context, passages []Passage) (int, error) {
	conn, err := p.connect(ctx)
	if err != nil {
		return 0, err
	}
	vectors := make([]*pinecone.Vector, 0, len(passages))
	for i := range passages {
		ps := passages[i]
		meta, err := structpb.NewStruct(map[string]any{
			"content": ps.Text,
			"source":  ps.Source,
		})
		if err != nil {
			return 0, fmt.Errorf("metadata for %s: %w", ps.ID, err)
		}
		values := ps.Embedding
		vectors = append(vectors, &pinecone.Vector{Id: ps.ID, Values: &values, Metadata: meta})
	}
	n, err := conn.UpsertVectors(ctx, vectors)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert vectors: %w", err)
	}
	return int(n), nil
}

// matchText picks the passage text out of match metadata.
func matchText(meta map[string]any) string {
	for _, k := range []string{"content", "page_content", "text"} {
		if s, ok := meta[k].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}
