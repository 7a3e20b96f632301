package store

import "time"

// Chunk is the unit of retrieval: a slice of rulebook text with its
// embedding and provenance metadata. Chunks are immutable once created;
// re-ingesting an unchanged source produces the same IDs and upserts in place.
type Chunk struct {
	ID       string    // Deterministic UUID derived from (source_path, page, offset)
	Text     string    // UTF-8 chunk content
	Vector   []float32 // Embedding, dimensionality fixed per collection
	Metadata Metadata
}

// Metadata carries chunk provenance used for citations and filtering.
type Metadata struct {
	SourcePath  string    // Path of the source file on disk
	Title       string    // Document title inferred from the file name
	Corpus      string    // Logical document group, one per configured folder
	Edition     string    // Game system edition, "1e" when not inferable
	PageNumber  int       // 1-indexed page within the source document
	ChunkOffset int       // Byte offset of the chunk within its page
	Section     string    // Heading path for markdown sources, may be empty
	IndexedAt   time.Time // When this chunk version was written
}

// ScoredChunk pairs a chunk with its similarity score from a search.
type ScoredChunk struct {
	Chunk *Chunk
	Score float64
}

// Distance selects the similarity metric for a collection. The metric is
// fixed at collection creation time and must match between index time and
// query time.
type Distance string

const (
	DistanceCosine Distance = "cosine"
	DistanceL2     Distance = "l2"
)
