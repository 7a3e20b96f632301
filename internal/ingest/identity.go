package ingest

import (
	"fmt"

	"github.com/google/uuid"
)

// chunkNamespace is the fixed UUIDv5 namespace for chunk identity. Changing
// it would orphan every stored chunk, so it never changes.
var chunkNamespace = uuid.MustParse("9b1060e2-44c7-5bfa-9a4b-6d3f2c5f8e01")

// ChunkID derives the stable identifier for a chunk from its source path,
// 1-indexed page number, and byte offset within the page. The same triple
// always produces the same ID across process restarts, which is what makes
// re-ingestion upsert in place instead of duplicating records.
func ChunkID(sourcePath string, pageNumber, chunkOffset int) string {
	key := fmt.Sprintf("%s|%d|%d", sourcePath, pageNumber, chunkOffset)
	return uuid.NewSHA1(chunkNamespace, []byte(key)).String()
}
