// Package main provides the rulekeeper CLI: HTTP/MCP serving, manual
// re-indexing, and index status.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/greyhelm/rulekeeper/internal/config"
	"github.com/greyhelm/rulekeeper/internal/embedding"
	"github.com/greyhelm/rulekeeper/internal/extract"
	"github.com/greyhelm/rulekeeper/internal/ingest"
	mcpserver "github.com/greyhelm/rulekeeper/internal/mcp"
	"github.com/greyhelm/rulekeeper/internal/rag"
	"github.com/greyhelm/rulekeeper/internal/server"
	"github.com/greyhelm/rulekeeper/internal/store"
	"github.com/greyhelm/rulekeeper/internal/watch"
)

var (
	configPath string
	watchMode  bool
	resetIndex bool
)

var rootCmd = &cobra.Command{
	Use:   "rulekeeper",
	Short: "Semantic Q&A over tabletop RPG rulebooks",
	Long:  "Indexes rulebook folders into Qdrant and answers rules questions over HTTP, MCP, or the command line.",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and MCP server",
	Long: `Serves question answering at POST /query, the MCP transport at /mcp,
and a health check at /health. The index is bootstrapped on the first
query and kept fresh by throttled change detection.

Environment variables:
  OPENAI_API_KEY      OpenAI API key (required)
  QDRANT_HOST         Qdrant hostname (default: localhost)
  QDRANT_PORT         Qdrant gRPC port (default: 6334)
  QDRANT_COLLECTION   Collection name (default: rulebooks)
  RULEKEEPER_ADDR     HTTP listen address (default: :8080)`,
	RunE: runServe,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Re-index all configured rulebook folders",
	Long: `Extracts, chunks, and embeds every document in the configured corpora
and upserts the results into Qdrant. Unchanged files overwrite their own
chunks in place; pass --reset to drop the collection first.`,
	RunE: runSync,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index counts and sources",
	RunE:  runStatus,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")
	serveCmd.Flags().BoolVar(&watchMode, "watch", false, "watch corpus folders and invalidate freshness on changes")
	syncCmd.Flags().BoolVar(&resetIndex, "reset", false, "drop the collection before re-indexing")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(statusCmd)
}

func main() {
	// Load .env if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app bundles the wired components shared by the subcommands.
type app struct {
	cfg    *config.Config
	col    *store.QdrantCollection
	coord  *ingest.Coordinator
	svc    *rag.Service
	logger *slog.Logger
}

func buildApp(ctx context.Context, needLLM bool) (*app, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if len(cfg.Corpora) == 0 {
		return nil, fmt.Errorf("no corpora configured in %s", configPath)
	}

	metric, err := cfg.Qdrant.DistanceMetric()
	if err != nil {
		return nil, err
	}

	col, err := store.NewQdrantCollection(cfg.Qdrant.Host, cfg.Qdrant.Port, cfg.Qdrant.Collection, cfg.Embedding.Dimension, metric)
	if err != nil {
		return nil, fmt.Errorf("connect to Qdrant at %s:%d: %w", cfg.Qdrant.Host, cfg.Qdrant.Port, err)
	}
	if err := col.EnsureCollection(ctx); err != nil {
		col.Close()
		return nil, err
	}

	client, err := embedding.NewClient()
	if err != nil {
		col.Close()
		return nil, err
	}
	embedder := embedding.NewEmbedder(client, cfg.Embedding.Model, cfg.Embedding.BatchSize)

	coord, err := ingest.NewCoordinator(extract.NewExtractor(logger), embedder, col, cfg.IngestConfig(), logger)
	if err != nil {
		col.Close()
		return nil, err
	}

	a := &app{cfg: cfg, col: col, coord: coord, logger: logger}

	if needLLM {
		generator := rag.NewOpenAIGenerator(client.Client(), cfg.LLM.Model)
		retriever := rag.NewRetriever(embedder, col)
		a.svc = rag.NewService(coord, retriever, rag.NewSynthesizer(generator))
	}
	return a, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	a, err := buildApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.col.Close()

	mcpSrv := mcpserver.NewServer(&mcpserver.Config{
		Service:     a.svc,
		Collection:  a.col,
		Coordinator: a.coord,
	})

	mux := server.NewMux(server.Deps{
		Service: a.svc,
		Health:  a.col,
		MCP:     mcpserver.NewHTTPHandler(mcpSrv, nil),
		Logger:  a.logger,
	})

	if watchMode {
		folders := make([]string, 0, len(a.cfg.Corpora))
		for _, corpus := range a.cfg.Corpora {
			folders = append(folders, corpus.Path)
		}
		watcher, err := watch.New(folders, a.coord, 0, a.logger)
		if err != nil {
			return err
		}
		go func() {
			if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error("watcher stopped", "error", err)
			}
		}()
	}

	srv := &http.Server{Addr: a.cfg.Server.Addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	a.logger.Info("starting server", "addr", a.cfg.Server.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()
	start := time.Now()

	a, err := buildApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.col.Close()

	if resetIndex {
		fmt.Println("Dropping existing collection...")
		// Drop recreates the collection empty.
		if err := a.col.Drop(ctx); err != nil {
			return fmt.Errorf("drop collection: %w", err)
		}
	}

	fmt.Println("Indexing rulebook folders...")
	results, err := a.coord.IngestAll(ctx)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	fmt.Println()
	fmt.Println("Sync complete!")
	for _, result := range results {
		fmt.Printf("  %s: %d files, %d chunks (%s)\n",
			result.Corpus, result.Files, result.Chunks, result.Duration.Round(time.Millisecond))
		for _, skipped := range result.Skipped {
			fmt.Printf("    skipped %s: %s\n", skipped.Path, skipped.Reason)
		}
	}
	fmt.Printf("Total time: %s\n", time.Since(start).Round(time.Second))
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	a, err := buildApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.col.Close()

	count, err := a.col.Count(ctx)
	if err != nil {
		return fmt.Errorf("count chunks: %w", err)
	}
	sources, err := a.col.ListSources(ctx)
	if err != nil {
		return fmt.Errorf("list sources: %w", err)
	}

	fmt.Printf("Collection: %s\n", a.cfg.Qdrant.Collection)
	fmt.Printf("Chunks: %d\n", count)
	fmt.Printf("Sources: %d\n", len(sources))
	for _, source := range sources {
		fmt.Printf("  %s\n", source)
	}
	return nil
}
