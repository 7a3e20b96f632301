package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greyhelm/rulekeeper/internal/store"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "localhost", cfg.Qdrant.Host)
	assert.Equal(t, 6334, cfg.Qdrant.Port)
	assert.Equal(t, "rulebooks", cfg.Qdrant.Collection)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
	assert.Equal(t, 1536, cfg.Embedding.Dimension)
	assert.Equal(t, 1000, cfg.Chunking.Size)
	assert.Equal(t, 100, cfg.Chunking.Overlap)
	assert.Equal(t, 60*time.Second, cfg.CheckInterval())
	assert.Empty(t, cfg.Corpora)
}

func TestLoad_ParsesFullConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
qdrant:
  host: qdrant.internal
  port: 7000
  collection: grimoire
  distance: l2
embedding:
  model: text-embedding-3-large
  dimension: 3072
  batch_size: 100
llm:
  model: gpt-4o-mini
  top_k: 5
chunking:
  size: 800
  overlap: 50
check_interval_secs: 300
corpora:
  - name: Dragonbane
    path: /data/dragonbane
  - name: Kids on Bikes
    path: /data/kob
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "qdrant.internal", cfg.Qdrant.Host)
	assert.Equal(t, 7000, cfg.Qdrant.Port)
	assert.Equal(t, "grimoire", cfg.Qdrant.Collection)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, 5, cfg.LLM.TopK)
	assert.Equal(t, 5*time.Minute, cfg.CheckInterval())

	metric, err := cfg.Qdrant.DistanceMetric()
	require.NoError(t, err)
	assert.Equal(t, store.DistanceL2, metric)

	ic := cfg.IngestConfig()
	assert.Equal(t, 800, ic.ChunkSize)
	assert.Equal(t, 50, ic.ChunkOverlap)
	require.Len(t, ic.Corpora, 2)
	assert.Equal(t, "Dragonbane", ic.Corpora[0].Name)
	assert.Equal(t, "/data/kob", ic.Corpora[1].Path)
}

func TestLoad_PartialConfigGetsDefaults(t *testing.T) {
	path := writeConfig(t, `
qdrant:
  host: 10.0.0.5
corpora:
  - name: Dragonbane
    path: /data/dragonbane
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.5", cfg.Qdrant.Host)
	assert.Equal(t, 6334, cfg.Qdrant.Port)
	assert.Equal(t, 1000, cfg.Chunking.Size)
	assert.Equal(t, 15, cfg.LLM.TopK)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("QDRANT_HOST", "qdrant.prod")
	t.Setenv("QDRANT_PORT", "9334")
	t.Setenv("RULEKEEPER_ADDR", ":3000")

	path := writeConfig(t, `
qdrant:
  host: localhost
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "qdrant.prod", cfg.Qdrant.Host)
	assert.Equal(t, 9334, cfg.Qdrant.Port)
	assert.Equal(t, ":3000", cfg.Server.Addr)
}

func TestLoad_RejectsBadDistance(t *testing.T) {
	path := writeConfig(t, `
qdrant:
  distance: manhattan
`)

	_, err := Load(path)
	assert.ErrorIs(t, err, store.ErrBadDistance)
}

func TestLoad_RejectsOverlapNotSmallerThanSize(t *testing.T) {
	path := writeConfig(t, `
chunking:
  size: 100
  overlap: 100
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_RejectsIncompleteCorpus(t *testing.T) {
	path := writeConfig(t, `
corpora:
  - name: Dragonbane
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "corpora: [")

	_, err := Load(path)
	assert.Error(t, err)
}
