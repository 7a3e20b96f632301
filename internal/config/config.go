package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/greyhelm/rulekeeper/internal/chunk"
	"github.com/greyhelm/rulekeeper/internal/embedding"
	"github.com/greyhelm/rulekeeper/internal/ingest"
	"github.com/greyhelm/rulekeeper/internal/rag"
	"github.com/greyhelm/rulekeeper/internal/store"
)

// ServerConfig holds the HTTP listen address.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// QdrantConfig contains connection details for the Qdrant vector store.
type QdrantConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Collection string `yaml:"collection"`
	Distance   string `yaml:"distance"`
}

// EmbeddingConfig configures the OpenAI embedding model.
type EmbeddingConfig struct {
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension"`
	BatchSize int    `yaml:"batch_size"`
}

// LLMConfig configures the chat model used for answer synthesis.
type LLMConfig struct {
	Model string `yaml:"model"`
	TopK  int    `yaml:"top_k"`
}

// ChunkingConfig configures the sliding-window splitter.
type ChunkingConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// CorpusConfig names one folder of rulebook documents.
type CorpusConfig struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// Config is the root configuration structure.
type Config struct {
	Server            ServerConfig    `yaml:"server"`
	Qdrant            QdrantConfig    `yaml:"qdrant"`
	Embedding         EmbeddingConfig `yaml:"embedding"`
	LLM               LLMConfig       `yaml:"llm"`
	Chunking          ChunkingConfig  `yaml:"chunking"`
	CheckIntervalSecs int             `yaml:"check_interval_secs"`
	Corpora           []CorpusConfig  `yaml:"corpora"`
}

// Load reads a config from the given path. A missing file yields defaults
// so the server can start against a local Qdrant with env-only setup.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DistanceMetric maps the configured metric name onto a store distance.
func (q QdrantConfig) DistanceMetric() (store.Distance, error) {
	switch q.Distance {
	case "", "cosine":
		return store.DistanceCosine, nil
	case "l2", "euclid":
		return store.DistanceL2, nil
	default:
		return "", fmt.Errorf("%w: %q", store.ErrBadDistance, q.Distance)
	}
}

// CheckInterval returns the freshness throttle as a duration.
func (c *Config) CheckInterval() time.Duration {
	return time.Duration(c.CheckIntervalSecs) * time.Second
}

// IngestConfig converts the corpora and chunking sections into the
// coordinator's configuration.
func (c *Config) IngestConfig() ingest.Config {
	corpora := make([]ingest.Corpus, 0, len(c.Corpora))
	for _, corpus := range c.Corpora {
		corpora = append(corpora, ingest.Corpus{Name: corpus.Name, Path: corpus.Path})
	}
	return ingest.Config{
		Corpora:       corpora,
		ChunkSize:     c.Chunking.Size,
		ChunkOverlap:  c.Chunking.Overlap,
		CheckInterval: c.CheckInterval(),
	}
}

func defaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Qdrant.Host == "" {
		cfg.Qdrant.Host = "localhost"
	}
	if cfg.Qdrant.Port == 0 {
		cfg.Qdrant.Port = 6334
	}
	if cfg.Qdrant.Collection == "" {
		cfg.Qdrant.Collection = "rulebooks"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = embedding.DefaultModel
	}
	if cfg.Embedding.Dimension == 0 {
		cfg.Embedding.Dimension = embedding.DefaultDimension
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = embedding.DefaultBatchSize
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = rag.DefaultChatModel
	}
	if cfg.LLM.TopK == 0 {
		cfg.LLM.TopK = rag.DefaultTopK
	}
	if cfg.Chunking.Size == 0 {
		cfg.Chunking.Size = chunk.DefaultSize
	}
	if cfg.Chunking.Overlap == 0 {
		cfg.Chunking.Overlap = chunk.DefaultOverlap
	}
	if cfg.CheckIntervalSecs == 0 {
		cfg.CheckIntervalSecs = 60
	}
}

func applyEnvOverrides(cfg *Config) {
	cfg.Server.Addr = getEnv("RULEKEEPER_ADDR", cfg.Server.Addr)
	cfg.Qdrant.Host = getEnv("QDRANT_HOST", cfg.Qdrant.Host)
	cfg.Qdrant.Port = getEnvInt("QDRANT_PORT", cfg.Qdrant.Port)
	cfg.Qdrant.Collection = getEnv("QDRANT_COLLECTION", cfg.Qdrant.Collection)
}

func validate(cfg *Config) error {
	if cfg.Chunking.Overlap >= cfg.Chunking.Size {
		return fmt.Errorf("chunking overlap %d must be smaller than size %d",
			cfg.Chunking.Overlap, cfg.Chunking.Size)
	}
	for _, corpus := range cfg.Corpora {
		if corpus.Name == "" || corpus.Path == "" {
			return fmt.Errorf("corpus entries need both name and path, got name=%q path=%q",
				corpus.Name, corpus.Path)
		}
	}
	if _, err := cfg.Qdrant.DistanceMetric(); err != nil {
		return err
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		var i int
		if _, err := fmt.Sscanf(v, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}
