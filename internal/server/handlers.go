// Package server is the HTTP surface: the query endpoint, health check,
// landing page, and the mounted MCP transport.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/greyhelm/rulekeeper/internal/embedding"
	"github.com/greyhelm/rulekeeper/internal/rag"
)

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// QueryResponse is the successful answer payload.
type QueryResponse struct {
	Answer  string        `json:"answer"`
	Sources []QuerySource `json:"sources"`
}

// QuerySource is one grounding chunk's provenance in the response.
type QuerySource struct {
	SourcePath string  `json:"source_path"`
	Title      string  `json:"title"`
	Corpus     string  `json:"corpus"`
	Edition    string  `json:"edition"`
	Section    string  `json:"section,omitempty"`
	PageNumber int     `json:"page_number"`
	Score      float64 `json:"score"`
}

// ErrorResponse is the JSON error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewQueryHandler creates the POST /query handler. Retrieval misses map to
// 404, upstream model failures to 502, everything else to 500.
func NewQueryHandler(svc *rag.Service, logger *slog.Logger) http.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		var req QueryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.Query == "" {
			writeError(w, http.StatusBadRequest, "query is required")
			return
		}

		answer, err := svc.Ask(r.Context(), req.Query, req.TopK)
		if err != nil {
			status, msg := classifyError(err)
			logger.Error("query failed", "status", status, "error", err)
			writeError(w, status, msg)
			return
		}

		sources := make([]QuerySource, 0, len(answer.Sources))
		for _, sc := range answer.Sources {
			sources = append(sources, QuerySource{
				SourcePath: sc.Chunk.Metadata.SourcePath,
				Title:      sc.Chunk.Metadata.Title,
				Corpus:     sc.Chunk.Metadata.Corpus,
				Edition:    sc.Chunk.Metadata.Edition,
				Section:    sc.Chunk.Metadata.Section,
				PageNumber: sc.Chunk.Metadata.PageNumber,
				Score:      sc.Score,
			})
		}

		writeJSON(w, http.StatusOK, QueryResponse{
			Answer:  answer.Text,
			Sources: sources,
		})
	}
}

func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, rag.ErrNoRelevantDocuments):
		return http.StatusNotFound, "no relevant rulebook passages found"
	case errors.Is(err, embedding.ErrEmbedding):
		return http.StatusBadGateway, "embedding service failed"
	case errors.Is(err, rag.ErrGeneration):
		return http.StatusBadGateway, "answer generation failed"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
