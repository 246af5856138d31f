package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
)

// Passage is one indexed chunk of reference text.
type Passage struct {
	ID        string    `json:"id"`
	Source    string    `json:"source,omitempty"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
}

type indexFile struct {
	Model    string    `json:"model,omitempty"`
	Dim      int       `json:"dim"`
	Passages []Passage `json:"passages"`
}

// LocalIndex is a read-only in-memory index searched by cosine similarity.
type LocalIndex struct {
	embedder embeddings.Embedder
	passages []Passage
	norms    []float64
	dim      int
}

func NewLocalIndex(passages []Passage, emb embeddings.Embedder) (*LocalIndex, error) {
	if emb == nil {
		return nil, errors.New("local index: embedder is nil")
	}
	ix := &LocalIndex{embedder: emb, passages: passages, norms: make([]float64, len(passages))}
	for i, p := range passages {
		if len(p.Embedding) == 0 {
			return nil, fmt.Errorf("local index: passage %q has no embedding", p.ID)
		}
		if ix.dim == 0 {
			ix.dim = len(p.Embedding)
		} else if len(p.Embedding) != ix.dim {
			return nil, fmt.Errorf("local index: passage %q has dim %d, want %d", p.ID, len(p.Embedding), ix.dim)
		}
		ix.norms[i] = norm(p.Embedding)
	}
	return ix, nil
}

// LoadLocalIndex reads an index written by WriteLocalIndex.
func LoadLocalIndex(path string, emb embeddings.Embedder) (*LocalIndex, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("local index: %w", err)
	}
	var f indexFile
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("local index %s: %w", path, err)
	}
	return NewLocalIndex(f.Passages, emb)
}

// WriteLocalIndex stores passages (with embeddings) as JSON.
func WriteLocalIndex(path, model string, passages []Passage) error {
	f := indexFile{Model: model, Passages: passages}
	if len(passages) > 0 {
		f.Dim = len(passages[0].Embedding)
	}
	b, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func (ix *LocalIndex) Len() int { return len(ix.passages) }

func (ix *LocalIndex) TopK(ctx context.Context, query string, k int) ([]string, error) {
	if k <= 0 || len(ix.passages) == 0 || strings.TrimSpace(query) == "" {
		return []string{}, nil
	}
	q, err := ix.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(q) != ix.dim {
		return nil, fmt.Errorf("query embedding dim %d, index dim %d", len(q), ix.dim)
	}
	qn := norm(q)

	type scored struct {
		i     int
		score float64
	}
	ranked := make([]scored, len(ix.passages))
	for i, p := range ix.passages {
		ranked[i] = scored{i: i, score: cosine(q, qn, p.Embedding, ix.norms[i])}
	}
	sort.SliceStable(ranked, func(a, b int) bool { return ranked[a].score > ranked[b].score })

	if k > len(ranked) {
		k = len(ranked)
	}
	out := make([]string, 0, k)
	for _, r := range ranked[:k] {
		out = append(out, ix.passages[r.i].Text)
	}
	return out, nil
}

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func cosine(a []float32, an float64, b []float32, bn float64) float64 {
	if an == 0 || bn == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (an * bn)
}
