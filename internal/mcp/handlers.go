package mcp

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/greyhelm/rulekeeper/internal/ingest"
	"github.com/greyhelm/rulekeeper/internal/rag"
	"github.com/greyhelm/rulekeeper/internal/store"
)

// makeAskHandler creates the ask_rules tool handler. An empty retrieval is
// reported as a message rather than a tool error so the client can relay it.
func makeAskHandler(svc *rag.Service) func(
	context.Context, *mcp.CallToolRequest, AskRulesInput,
) (*mcp.CallToolResult, AskRulesOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input AskRulesInput) (
		*mcp.CallToolResult, AskRulesOutput, error,
	) {
		if input.Question == "" {
			return nil, AskRulesOutput{}, fmt.Errorf("question is required")
		}

		answer, err := svc.Ask(ctx, input.Question, input.TopK)
		if err != nil {
			if errors.Is(err, rag.ErrNoRelevantDocuments) {
				return nil, AskRulesOutput{
					Sources: []Source{},
					Message: "No relevant rulebook passages found. Try rephrasing the question.",
				}, nil
			}
			return nil, AskRulesOutput{}, fmt.Errorf("ask failed: %w", err)
		}

		return nil, AskRulesOutput{
			Answer:  answer.Text,
			Sources: toSources(answer.Sources),
		}, nil
	}
}

// makeSearchHandler creates the search_rules tool handler. Retrieval only,
// no generation call.
func makeSearchHandler(svc *rag.Service) func(
	context.Context, *mcp.CallToolRequest, SearchRulesInput,
) (*mcp.CallToolResult, SearchRulesOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchRulesInput) (
		*mcp.CallToolResult, SearchRulesOutput, error,
	) {
		if input.Query == "" {
			return nil, SearchRulesOutput{}, fmt.Errorf("query is required")
		}

		retrieval, err := svc.Search(ctx, input.Query, input.TopK)
		if err != nil {
			if errors.Is(err, rag.ErrNoRelevantDocuments) {
				return nil, SearchRulesOutput{
					Results: []Source{},
					Message: "No matching rulebook passages found. Try broader search terms.",
				}, nil
			}
			return nil, SearchRulesOutput{}, fmt.Errorf("search failed: %w", err)
		}

		return nil, SearchRulesOutput{Results: toSources(retrieval.Sources)}, nil
	}
}

// makeListHandler creates the list_sources tool handler.
func makeListHandler(col store.Collection) func(
	context.Context, *mcp.CallToolRequest, ListSourcesInput,
) (*mcp.CallToolResult, ListSourcesOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ListSourcesInput) (
		*mcp.CallToolResult, ListSourcesOutput, error,
	) {
		paths, err := col.ListSources(ctx)
		if err != nil {
			return nil, ListSourcesOutput{}, fmt.Errorf("failed to list sources: %w", err)
		}

		return nil, ListSourcesOutput{
			Paths: paths,
			Count: len(paths),
		}, nil
	}
}

// makeStatusHandler creates the index_status tool handler.
func makeStatusHandler(col store.Collection, coord *ingest.Coordinator) func(
	context.Context, *mcp.CallToolRequest, IndexStatusInput,
) (*mcp.CallToolResult, IndexStatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input IndexStatusInput) (
		*mcp.CallToolResult, IndexStatusOutput, error,
	) {
		count, err := col.Count(ctx)
		if err != nil {
			return nil, IndexStatusOutput{}, fmt.Errorf("failed to count chunks: %w", err)
		}

		paths, err := col.ListSources(ctx)
		if err != nil {
			return nil, IndexStatusOutput{}, fmt.Errorf("failed to list sources: %w", err)
		}

		state := coord.Freshness()
		corpora := make([]CorpusStatus, 0, len(state.Watermarks))
		for name, mark := range state.Watermarks {
			corpora = append(corpora, CorpusStatus{Name: name, Watermark: mark})
		}
		sort.Slice(corpora, func(i, j int) bool { return corpora[i].Name < corpora[j].Name })

		out := IndexStatusOutput{
			TotalChunks:  count,
			TotalSources: len(paths),
			Corpora:      corpora,
		}
		if !state.LastChecked.IsZero() {
			checked := state.LastChecked
			out.LastChecked = &checked
		}
		return nil, out, nil
	}
}

func toSources(chunks []*store.ScoredChunk) []Source {
	sources := make([]Source, 0, len(chunks))
	for _, sc := range chunks {
		sources = append(sources, Source{
			Text:       sc.Chunk.Text,
			Score:      sc.Score,
			SourcePath: sc.Chunk.Metadata.SourcePath,
			Title:      sc.Chunk.Metadata.Title,
			Corpus:     sc.Chunk.Metadata.Corpus,
			Edition:    sc.Chunk.Metadata.Edition,
			Section:    sc.Chunk.Metadata.Section,
			PageNumber: sc.Chunk.Metadata.PageNumber,
		})
	}
	return sources
}
