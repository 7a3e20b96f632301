// Package ingest keeps the vector collection consistent with the source
// corpora on disk: bootstrap ingestion for an empty collection, throttled
// freshness checks, and per-folder re-ingestion when files change.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/greyhelm/rulekeeper/internal/chunk"
	"github.com/greyhelm/rulekeeper/internal/extract"
	"github.com/greyhelm/rulekeeper/internal/store"
)

// Embedder is the remote embedding function as the coordinator sees it.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Corpus maps one source folder to one logical document group.
type Corpus struct {
	Name string
	Path string
}

// Config holds the coordinator's tunables.
type Config struct {
	Corpora       []Corpus
	ChunkSize     int           // window size in bytes, default 1000
	ChunkOverlap  int           // window overlap in bytes, default 100
	CheckInterval time.Duration // minimum gap between freshness scans, default 60s
}

// Result summarizes one folder ingestion.
type Result struct {
	Corpus   string
	Files    int
	Chunks   int
	Skipped  []SkippedFile
	Duration time.Duration
}

// SkippedFile records a source file that could not be extracted. Skips are
// recovered per file and never abort the rest of the folder.
type SkippedFile struct {
	Path   string
	Reason string
}

// FreshnessState is a snapshot of the coordinator's change-detection state.
type FreshnessState struct {
	LastChecked time.Time
	Watermarks  map[string]time.Time
}

// Coordinator owns all writes to the collection. Freshness throttling uses
// the last-check timestamp; change detection uses the per-folder mtime
// watermark. The two are deliberately independent values: conflating them
// would re-trigger ingestion on every check instead of only when a file
// actually changed.
type Coordinator struct {
	extractor *extract.Extractor
	embedder  Embedder
	col       store.Collection
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time

	// bootMu serializes bootstrap ingestion so concurrent first queries
	// cannot both run a full ingest.
	bootMu sync.Mutex

	mu          sync.Mutex
	lastChecked time.Time
	watermarks  map[string]time.Time
	inflight    map[string]bool
}

// NewCoordinator validates the configuration and builds a coordinator with
// freshness state initialized to "never checked".
func NewCoordinator(extractor *extract.Extractor, embedder Embedder, col store.Collection, cfg Config, logger *slog.Logger) (*Coordinator, error) {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = chunk.DefaultSize
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = 0
	}
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("chunk overlap %d must be smaller than chunk size %d", cfg.ChunkOverlap, cfg.ChunkSize)
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Coordinator{
		extractor:  extractor,
		embedder:   embedder,
		col:        col,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
		watermarks: make(map[string]time.Time),
		inflight:   make(map[string]bool),
	}, nil
}

// EnsureFresh makes the collection reflect the current source folders.
// Idempotent and safe to call on every request: an empty collection
// triggers bootstrap ingestion (errors are fatal to readiness and
// propagate); otherwise a throttled freshness scan re-ingests only folders
// whose files changed since the recorded watermark, and scan-cycle failures
// are logged rather than returned.
func (c *Coordinator) EnsureFresh(ctx context.Context) error {
	count, err := c.col.Count(ctx)
	if err != nil {
		return fmt.Errorf("count collection: %w", err)
	}
	if count == 0 {
		return c.bootstrap(ctx)
	}

	c.mu.Lock()
	now := c.now()
	if now.Sub(c.lastChecked) < c.cfg.CheckInterval {
		c.mu.Unlock()
		return nil
	}
	c.lastChecked = now
	c.mu.Unlock()

	for _, corpus := range c.cfg.Corpora {
		latest, err := c.latestModTime(corpus.Path)
		if err != nil {
			c.logger.Warn("freshness scan failed", "corpus", corpus.Name, "error", err)
			continue
		}

		c.mu.Lock()
		mark, seen := c.watermarks[corpus.Name]
		if !seen {
			// First check since startup for a non-empty collection: record
			// the baseline without re-embedding anything.
			c.watermarks[corpus.Name] = latest
		}
		c.mu.Unlock()

		if !seen || !latest.After(mark) {
			continue
		}

		if err := c.refresh(ctx, corpus, latest); err != nil {
			c.logger.Warn("refresh failed, will retry on next check cycle",
				"corpus", corpus.Name, "error", err)
		}
	}

	return nil
}

// bootstrap runs the initial full ingest behind a single gate. The first
// caller ingests; concurrent callers block until it finishes, re-check the
// count, and return without embedding anything when the winner succeeded.
func (c *Coordinator) bootstrap(ctx context.Context) error {
	c.bootMu.Lock()
	defer c.bootMu.Unlock()

	count, err := c.col.Count(ctx)
	if err != nil {
		return fmt.Errorf("count collection: %w", err)
	}
	if count > 0 {
		return nil
	}

	_, err = c.IngestAll(ctx)
	return err
}

// IngestAll runs a full ingest over every configured folder. Used for
// bootstrap and by the sync command; any folder error aborts the run.
func (c *Coordinator) IngestAll(ctx context.Context) ([]*Result, error) {
	results := make([]*Result, 0, len(c.cfg.Corpora))
	for _, corpus := range c.cfg.Corpora {
		latest, err := c.latestModTime(corpus.Path)
		if err != nil {
			return results, fmt.Errorf("scan corpus %s: %w", corpus.Name, err)
		}

		result, err := c.ingestFolder(ctx, corpus)
		if err != nil {
			return results, err
		}
		results = append(results, result)

		c.mu.Lock()
		c.watermarks[corpus.Name] = latest
		c.mu.Unlock()
	}

	c.mu.Lock()
	c.lastChecked = c.now()
	c.mu.Unlock()

	return results, nil
}

// refresh re-ingests one folder behind a per-folder in-progress flag; a
// concurrent trigger for the same folder is a no-op. The watermark only
// advances on success so a failed refresh is retried next cycle.
func (c *Coordinator) refresh(ctx context.Context, corpus Corpus, latest time.Time) error {
	c.mu.Lock()
	if c.inflight[corpus.Name] {
		c.mu.Unlock()
		return nil
	}
	c.inflight[corpus.Name] = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.inflight, corpus.Name)
		c.mu.Unlock()
	}()

	if _, err := c.ingestFolder(ctx, corpus); err != nil {
		return err
	}

	c.mu.Lock()
	c.watermarks[corpus.Name] = latest
	c.mu.Unlock()
	return nil
}

// ingestFolder extracts, chunks, embeds, and upserts one folder. Extraction
// failures skip the file; an embedding failure aborts the whole folder
// batch. Re-chunking unchanged files is wasteful but harmless: chunk IDs
// are deterministic and the collection upserts by ID, so no duplicates can
// appear.
func (c *Coordinator) ingestFolder(ctx context.Context, corpus Corpus) (*Result, error) {
	start := c.now()
	result := &Result{Corpus: corpus.Name}

	files, err := c.extractor.ListFiles(corpus.Path)
	if err != nil {
		return nil, fmt.Errorf("list corpus %s: %w", corpus.Name, err)
	}

	var pending []*store.Chunk
	var texts []string

	for _, file := range files {
		pages, err := c.extractor.Extract(file)
		if err != nil {
			c.logger.Warn("skipping file", "file", file, "error", err)
			result.Skipped = append(result.Skipped, SkippedFile{Path: file, Reason: err.Error()})
			continue
		}
		result.Files++

		info := extract.InferMetadata(file)
		for _, page := range pages {
			windows, err := chunk.Split(page.Text, c.cfg.ChunkSize, c.cfg.ChunkOverlap)
			if err != nil {
				return nil, fmt.Errorf("chunk %s page %d: %w", file, page.Number, err)
			}

			for _, w := range windows {
				pending = append(pending, &store.Chunk{
					ID:   ChunkID(file, page.Number, w.Start),
					Text: w.Text,
					Metadata: store.Metadata{
						SourcePath:  file,
						Title:       info.Title,
						Corpus:      corpus.Name,
						Edition:     info.Edition,
						PageNumber:  page.Number,
						ChunkOffset: w.Start,
						Section:     page.Section,
						IndexedAt:   start,
					},
				})
				texts = append(texts, w.Text)
			}
		}
	}

	if len(pending) > 0 {
		vectors, err := c.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed corpus %s: %w", corpus.Name, err)
		}
		for i, vector := range vectors {
			pending[i].Vector = vector
		}

		if err := c.col.Upsert(ctx, pending); err != nil {
			return nil, fmt.Errorf("store corpus %s: %w", corpus.Name, err)
		}
	}

	result.Chunks = len(pending)
	result.Duration = c.now().Sub(start)
	c.logger.Info("ingested corpus",
		"corpus", corpus.Name,
		"files", result.Files,
		"chunks", result.Chunks,
		"skipped", len(result.Skipped),
		"duration", result.Duration,
	)
	return result, nil
}

// Invalidate clears the check throttle so the next EnsureFresh scans
// immediately. Called by the filesystem watcher.
func (c *Coordinator) Invalidate() {
	c.mu.Lock()
	c.lastChecked = time.Time{}
	c.mu.Unlock()
}

// Freshness returns a snapshot of the change-detection state.
func (c *Coordinator) Freshness() FreshnessState {
	c.mu.Lock()
	defer c.mu.Unlock()

	marks := make(map[string]time.Time, len(c.watermarks))
	for name, mark := range c.watermarks {
		marks[name] = mark
	}
	return FreshnessState{LastChecked: c.lastChecked, Watermarks: marks}
}

// latestModTime returns the newest modification time among the supported
// files in a folder; the zero time when the folder has none.
func (c *Coordinator) latestModTime(folder string) (time.Time, error) {
	files, err := c.extractor.ListFiles(folder)
	if err != nil {
		return time.Time{}, err
	}

	var latest time.Time
	for _, file := range files {
		fi, err := os.Stat(file)
		if err != nil {
			return time.Time{}, err
		}
		if fi.ModTime().After(latest) {
			latest = fi.ModTime()
		}
	}
	return latest, nil
}
