package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/qdrant/go-client/qdrant"
)

// upsertBatchSize bounds the number of points sent per gRPC upsert call.
const upsertBatchSize = 100

// QdrantCollection is a Collection backed by a Qdrant server over gRPC.
// The collection is created on first use at the configured address and
// persists across process restarts; it is destroyed only by explicit
// operator action.
type QdrantCollection struct {
	client    *qdrant.Client
	name      string
	dimension uint64
	distance  Distance
}

// NewQdrantCollection connects to Qdrant and validates reachability.
// It performs a health check with exponential backoff on startup and
// fails fast (ErrUnavailable) if the server cannot be reached.
func NewQdrantCollection(host string, port int, name string, dimension int, distance Distance) (*QdrantCollection, error) {
	if _, err := qdrantDistance(distance); err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}

	c := &QdrantCollection{
		client:    client,
		name:      name,
		dimension: uint64(dimension),
		distance:  distance,
	}

	if err := backoff.Retry(func() error {
		return c.Health(context.Background())
	}, startupBackoff()); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return c, nil
}

func startupBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}

// Health performs a single health check against the Qdrant server.
func (c *QdrantCollection) Health(ctx context.Context) error {
	result, err := c.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

// EnsureCollection creates the collection if it does not exist. Idempotent.
// If the collection already exists its vector size and distance metric must
// match the configured values; a mismatch is a configuration error
// (ErrDimensionMismatch / ErrMetricMismatch), never silently tolerated.
func (c *QdrantCollection) EnsureCollection(ctx context.Context) error {
	names, err := c.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}

	for _, name := range names {
		if name == c.name {
			return c.validateExisting(ctx)
		}
	}

	dist, err := qdrantDistance(c.distance)
	if err != nil {
		return err
	}

	err = c.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: c.name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     c.dimension,
			Distance: dist,
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}

	// Index the fields the serving layer filters and groups on.
	for _, field := range []string{"source_path", "corpus"} {
		_, err := c.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: c.name,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			return fmt.Errorf("create index for field %s: %w", field, err)
		}
	}

	return nil
}

// validateExisting checks that an existing collection was created with the
// same vector size and distance metric this process is configured for.
func (c *QdrantCollection) validateExisting(ctx context.Context) error {
	info, err := c.client.GetCollectionInfo(ctx, c.name)
	if err != nil {
		return fmt.Errorf("get collection: %w", err)
	}

	params := info.GetConfig().GetParams().GetVectorsConfig().GetParams()
	if params == nil {
		return fmt.Errorf("collection %q has no vector params", c.name)
	}

	if params.GetSize() != c.dimension {
		return fmt.Errorf("%w: collection %q has size %d, configured %d",
			ErrDimensionMismatch, c.name, params.GetSize(), c.dimension)
	}

	dist, err := qdrantDistance(c.distance)
	if err != nil {
		return err
	}
	if params.GetDistance() != dist {
		return fmt.Errorf("%w: collection %q uses %s, configured %s",
			ErrMetricMismatch, c.name, params.GetDistance(), c.distance)
	}

	return nil
}

// Drop deletes the collection and recreates it empty. Used by the sync
// command's --reset flag, never by the pipeline itself.
func (c *QdrantCollection) Drop(ctx context.Context) error {
	if err := c.client.DeleteCollection(ctx, c.name); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	return c.EnsureCollection(ctx)
}

// Close closes the underlying gRPC connection.
func (c *QdrantCollection) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Count returns the number of stored chunks.
func (c *QdrantCollection) Count(ctx context.Context) (uint64, error) {
	info, err := c.client.GetCollectionInfo(ctx, c.name)
	if err != nil {
		return 0, fmt.Errorf("get collection: %w", err)
	}
	return info.GetPointsCount(), nil
}

// Upsert inserts or replaces chunks by ID, batched per gRPC call.
// Qdrant upserts by point ID, so re-adding an unchanged chunk is a no-op
// in effect and re-adding a changed chunk replaces it.
func (c *QdrantCollection) Upsert(ctx context.Context, chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	for i, chunk := range chunks {
		if uint64(len(chunk.Vector)) != c.dimension {
			return fmt.Errorf("%w: chunk %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(chunk.Vector), c.dimension)
		}
	}

	for i := 0; i < len(chunks); i += upsertBatchSize {
		end := min(i+upsertBatchSize, len(chunks))
		batch := chunks[i:end]

		points := make([]*qdrant.PointStruct, len(batch))
		for j, chunk := range batch {
			points[j] = &qdrant.PointStruct{
				Id:      qdrant.NewIDUUID(chunk.ID),
				Vectors: qdrant.NewVectors(chunk.Vector...),
				Payload: qdrant.NewValueMap(map[string]any{
					"text":         chunk.Text,
					"source_path":  chunk.Metadata.SourcePath,
					"title":        chunk.Metadata.Title,
					"corpus":       chunk.Metadata.Corpus,
					"edition":      chunk.Metadata.Edition,
					"page_number":  chunk.Metadata.PageNumber,
					"chunk_offset": chunk.Metadata.ChunkOffset,
					"section":      chunk.Metadata.Section,
					"indexed_at":   chunk.Metadata.IndexedAt.Format(time.RFC3339),
				}),
			}
		}

		if err := c.upsertWithRetry(ctx, points); err != nil {
			return fmt.Errorf("upsert batch %d-%d: %w", i, end, err)
		}
	}

	return nil
}

func (c *QdrantCollection) upsertWithRetry(ctx context.Context, points []*qdrant.PointStruct) error {
	operation := func() error {
		// Wait so a query arriving right after ingestion sees the new chunks.
		_, err := c.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: c.name,
			Points:         points,
			Wait:           qdrant.PtrOf(true),
		})
		return err
	}
	return backoff.Retry(operation, backoff.WithContext(startupBackoff(), ctx))
}

// Search returns up to limit nearest chunks by the collection's distance
// metric, ordered by descending similarity. Searching an empty collection
// returns an empty slice.
func (c *QdrantCollection) Search(ctx context.Context, vector []float32, limit int) ([]*ScoredChunk, error) {
	if uint64(len(vector)) != c.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(vector), c.dimension)
	}

	results, err := c.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: c.name,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}

	scored := make([]*ScoredChunk, 0, len(results))
	for _, result := range results {
		scored = append(scored, &ScoredChunk{
			Chunk: chunkFromPayload(result.Id.GetUuid(), result.Payload),
			Score: float64(result.Score),
		})
	}

	return scored, nil
}

// Get fetches full chunk records by ID. Unknown IDs are omitted from the
// result, in keeping with the Collection contract.
func (c *QdrantCollection) Get(ctx context.Context, ids []string) ([]*Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qdrant.NewIDUUID(id)
	}

	results, err := c.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: c.name,
		Ids:            pointIDs,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get chunks: %w", err)
	}

	chunks := make([]*Chunk, 0, len(results))
	for _, result := range results {
		chunks = append(chunks, chunkFromPayload(result.Id.GetUuid(), result.Payload))
	}
	return chunks, nil
}

// ListSources scrolls the collection and returns the distinct source paths,
// sorted alphabetically.
func (c *QdrantCollection) ListSources(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	var offset *qdrant.PointId
	batch := uint32(256)

	for {
		results, err := c.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: c.name,
			Limit:          qdrant.PtrOf(batch),
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayloadInclude("source_path"),
		})
		if err != nil {
			return nil, fmt.Errorf("scroll sources: %w", err)
		}

		for _, result := range results {
			if path := result.Payload["source_path"].GetStringValue(); path != "" {
				seen[path] = struct{}{}
			}
		}

		if uint32(len(results)) < batch {
			break
		}
		offset = results[len(results)-1].Id
	}

	paths := make([]string, 0, len(seen))
	for path := range seen {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths, nil
}

func chunkFromPayload(id string, payload map[string]*qdrant.Value) *Chunk {
	indexedAt, err := time.Parse(time.RFC3339, payload["indexed_at"].GetStringValue())
	if err != nil {
		indexedAt = time.Time{}
	}

	return &Chunk{
		ID:   id,
		Text: payload["text"].GetStringValue(),
		Metadata: Metadata{
			SourcePath:  payload["source_path"].GetStringValue(),
			Title:       payload["title"].GetStringValue(),
			Corpus:      payload["corpus"].GetStringValue(),
			Edition:     payload["edition"].GetStringValue(),
			PageNumber:  int(payload["page_number"].GetIntegerValue()),
			ChunkOffset: int(payload["chunk_offset"].GetIntegerValue()),
			Section:     payload["section"].GetStringValue(),
			IndexedAt:   indexedAt,
		},
	}
}

func qdrantDistance(d Distance) (qdrant.Distance, error) {
	switch d {
	case DistanceCosine:
		return qdrant.Distance_Cosine, nil
	case DistanceL2:
		return qdrant.Distance_Euclid, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrBadDistance, d)
	}
}
