package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryCollection is an in-process Collection with the same upsert and
// search semantics as the Qdrant backend. It backs tests and the
// storage-free development mode; contents do not survive a restart.
type MemoryCollection struct {
	mu        sync.RWMutex
	chunks    map[string]*Chunk
	dimension int
	distance  Distance
}

// NewMemoryCollection creates an empty in-memory collection with the given
// vector dimension and distance metric.
func NewMemoryCollection(dimension int, distance Distance) (*MemoryCollection, error) {
	switch distance {
	case DistanceCosine, DistanceL2:
	default:
		return nil, fmt.Errorf("%w: %q", ErrBadDistance, distance)
	}
	return &MemoryCollection{
		chunks:    make(map[string]*Chunk),
		dimension: dimension,
		distance:  distance,
	}, nil
}

func (m *MemoryCollection) Count(ctx context.Context) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return uint64(len(m.chunks)), nil
}

func (m *MemoryCollection) Upsert(ctx context.Context, chunks []*Chunk) error {
	for i, chunk := range chunks {
		if len(chunk.Vector) != m.dimension {
			return fmt.Errorf("%w: chunk %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(chunk.Vector), m.dimension)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, chunk := range chunks {
		m.chunks[chunk.ID] = chunk
	}
	return nil
}

func (m *MemoryCollection) Search(ctx context.Context, vector []float32, limit int) ([]*ScoredChunk, error) {
	if len(vector) != m.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(vector), m.dimension)
	}

	m.mu.RLock()
	scored := make([]*ScoredChunk, 0, len(m.chunks))
	for _, chunk := range m.chunks {
		scored = append(scored, &ScoredChunk{
			Chunk: chunk,
			Score: m.score(vector, chunk.Vector),
		})
	}
	m.mu.RUnlock()

	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

func (m *MemoryCollection) Get(ctx context.Context, ids []string) ([]*Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	chunks := make([]*Chunk, 0, len(ids))
	for _, id := range ids {
		if chunk, ok := m.chunks[id]; ok {
			chunks = append(chunks, chunk)
		}
	}
	return chunks, nil
}

func (m *MemoryCollection) ListSources(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	seen := make(map[string]struct{})
	for _, chunk := range m.chunks {
		seen[chunk.Metadata.SourcePath] = struct{}{}
	}
	m.mu.RUnlock()

	paths := make([]string, 0, len(seen))
	for path := range seen {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths, nil
}

// score maps a vector pair to a similarity where larger is more similar,
// matching Qdrant's score ordering for the corresponding metric.
func (m *MemoryCollection) score(a, b []float32) float64 {
	switch m.distance {
	case DistanceL2:
		var sum float64
		for i := range a {
			d := float64(a[i]) - float64(b[i])
			sum += d * d
		}
		return -math.Sqrt(sum)
	default: // cosine
		var dot, na, nb float64
		for i := range a {
			dot += float64(a[i]) * float64(b[i])
			na += float64(a[i]) * float64(a[i])
			nb += float64(b[i]) * float64(b[i])
		}
		if na == 0 || nb == 0 {
			return 0
		}
		return dot / (math.Sqrt(na) * math.Sqrt(nb))
	}
}
