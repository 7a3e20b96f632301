package store

import "context"

// Collection is a persistent, named set of chunks keyed by ID. Upsert
// semantics are required: adding a chunk whose ID already exists replaces
// the stored record, which is what makes re-ingestion idempotent.
type Collection interface {
	// Count returns the number of stored chunks.
	Count(ctx context.Context) (uint64, error)

	// Upsert inserts or replaces chunks by ID.
	Upsert(ctx context.Context, chunks []*Chunk) error

	// Search returns up to limit chunks nearest to the query vector,
	// ordered by descending similarity. An empty collection yields an
	// empty result, never an error.
	Search(ctx context.Context, vector []float32, limit int) ([]*ScoredChunk, error)

	// Get fetches full chunk records by ID. Unknown IDs are omitted.
	Get(ctx context.Context, ids []string) ([]*Chunk, error)

	// ListSources returns the distinct source paths present in the
	// collection, sorted.
	ListSources(ctx context.Context) ([]string, error)
}
