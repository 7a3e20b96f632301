package rag

import (
	"context"
	"fmt"

	"github.com/greyhelm/rulekeeper/internal/store"
)

// Freshener keeps the collection consistent with the source corpora before
// the query is served.
type Freshener interface {
	EnsureFresh(ctx context.Context) error
}

// Answer is the result of one question: the generated text plus the chunks
// it was grounded in.
type Answer struct {
	Text    string
	Sources []*store.ScoredChunk
}

// Service ties freshness, retrieval, and synthesis into the single entry
// point shared by the HTTP and MCP surfaces. Requests are stateless aside
// from shared reads of the collection; no ordering is guaranteed between
// concurrent queries.
type Service struct {
	fresh       Freshener
	retriever   *Retriever
	synthesizer *Synthesizer
}

func NewService(fresh Freshener, retriever *Retriever, synthesizer *Synthesizer) *Service {
	return &Service{
		fresh:       fresh,
		retriever:   retriever,
		synthesizer: synthesizer,
	}
}

// Ask answers a question grounded in the rulebook collection. An empty
// retrieval returns ErrNoRelevantDocuments without spending a generation
// call.
func (s *Service) Ask(ctx context.Context, question string, topK int) (*Answer, error) {
	if err := s.fresh.EnsureFresh(ctx); err != nil {
		return nil, fmt.Errorf("ensure fresh: %w", err)
	}

	retrieval, err := s.retriever.Retrieve(ctx, question, topK)
	if err != nil {
		return nil, err
	}

	text, err := s.synthesizer.Answer(ctx, question, retrieval.Context)
	if err != nil {
		return nil, err
	}

	return &Answer{Text: text, Sources: retrieval.Sources}, nil
}

// Search runs retrieval only, without a generation call. Used by the MCP
// search tool.
func (s *Service) Search(ctx context.Context, query string, topK int) (*Retrieval, error) {
	if err := s.fresh.EnsureFresh(ctx); err != nil {
		return nil, fmt.Errorf("ensure fresh: %w", err)
	}
	return s.retriever.Retrieve(ctx, query, topK)
}
