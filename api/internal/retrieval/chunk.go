package retrieval

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"
	"github.com/tmc/langchaingo/embeddings"
)

// Document is a source text to be split into passages.
type Document struct {
	Source string
	Text   string
}

// Chunk splits text on blank lines and packs paragraphs into pieces of at most
// maxRunes runes. A single paragraph longer than maxRunes is cut hard.
func Chunk(text string, maxRunes int) []string {
	if maxRunes <= 0 {
		maxRunes = 1000
	}
	paras := lo.FilterMap(strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n"), func(p string, _ int) (string, bool) {
		p = strings.TrimSpace(p)
		return p, p != ""
	})

	var out []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for _, p := range paras {
		for utf8.RuneCountInString(p) > maxRunes {
			flush()
			r := []rune(p)
			out = append(out, string(r[:maxRunes]))
			p = strings.TrimSpace(string(r[maxRunes:]))
		}
		if p == "" {
			continue
		}
		if cur.Len() > 0 && utf8.RuneCountInString(cur.String())+2+utf8.RuneCountInString(p) > maxRunes {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteString("\n\n")
		}
		cur.WriteString(p)
	}
	flush()
	return out
}

// BuildPassages chunks every document and embeds the chunks in one batch per document.
func BuildPassages(ctx context.Context, emb embeddings.Embedder, docs []Document, maxRunes int) ([]Passage, error) {
	var out []Passage
	for _, d := range docs {
		chunks := Chunk(d.Text, maxRunes)
		if len(chunks) == 0 {
			continue
		}
		vecs, err := emb.EmbedDocuments(ctx, chunks)
		if err != nil {
			return nil, fmt.Errorf("embed %s: %w", d.Source, err)
		}
		if len(vecs) != len(chunks) {
			return nil, fmt.Errorf("embed %s: got %d vectors for %d chunks", d.Source, len(vecs), len(chunks))
		}
		for i, c := range chunks {
			out = append(out, Passage{
				ID:        fmt.Sprintf("%s#%d", d.Source, i),
				Source:    d.Source,
				Text:      c,
				Embedding: vecs[i],
			})
		}
	}
	return out, nil
}

// LoadDocuments reads every .txt and .md file under dir. Source is the path
// relative to dir, with forward slashes.
func LoadDocuments(dir string) ([]Document, error) {
	var docs []Document
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".txt", ".md":
		default:
			return nil
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		docs = append(docs, Document{Source: filepath.ToSlash(rel), Text: string(b)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load documents from %s: %w", dir, err)
	}
	return docs, nil
}
