// Package rag serves query-time retrieval, context assembly, and answer
// synthesis over the ingested rulebook collection.
package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/greyhelm/rulekeeper/internal/store"
)

// DefaultTopK is the number of chunks retrieved when the caller does not
// specify one.
const DefaultTopK = 15

// Embedder embeds the query text as a one-element batch.
type Embedder interface {
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

// Searcher is the read side of the vector collection.
type Searcher interface {
	Search(ctx context.Context, vector []float32, limit int) ([]*store.ScoredChunk, error)
}

// Retrieval is the assembled context for one query: a bounded context block
// plus the ordered source chunks behind it, kept for citations.
type Retrieval struct {
	Context string
	Sources []*store.ScoredChunk
}

// Retriever embeds queries and assembles retrieval context.
type Retriever struct {
	embedder Embedder
	col      Searcher
}

func NewRetriever(embedder Embedder, col Searcher) *Retriever {
	return &Retriever{embedder: embedder, col: col}
}

// Retrieve embeds the query, fetches the topK nearest chunks, and
// concatenates their texts in descending-similarity order into a single
// context block. An empty result set returns ErrNoRelevantDocuments.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) (*Retrieval, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	vector, err := r.embedder.EmbedOne(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	scored, err := r.col.Search(ctx, vector, topK)
	if err != nil {
		return nil, fmt.Errorf("search collection: %w", err)
	}
	if len(scored) == 0 {
		return nil, ErrNoRelevantDocuments
	}

	// A correct collection never returns duplicate IDs, but the assembler
	// does not trust that.
	seen := make(map[string]struct{}, len(scored))
	sources := make([]*store.ScoredChunk, 0, len(scored))
	var b strings.Builder
	for _, s := range scored {
		if _, dup := seen[s.Chunk.ID]; dup {
			continue
		}
		seen[s.Chunk.ID] = struct{}{}
		sources = append(sources, s)
		b.WriteString("- ")
		b.WriteString(s.Chunk.Text)
		b.WriteString("\n")
	}

	return &Retrieval{Context: b.String(), Sources: sources}, nil
}
