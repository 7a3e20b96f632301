package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greyhelm/rulekeeper/internal/rag"
	"github.com/greyhelm/rulekeeper/internal/store"
)

// axisEmbedder maps known keywords onto fixed axes so similarity ordering is
// predictable without a remote model.
type axisEmbedder struct {
	err error
}

func (e *axisEmbedder) EmbedOne(_ context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	vec := []float32{0, 0, 0}
	lower := strings.ToLower(text)
	if strings.Contains(lower, "dragon") {
		vec[0] = 1
	}
	if strings.Contains(lower, "troll") {
		vec[1] = 1
	}
	if strings.Contains(lower, "goblin") {
		vec[2] = 1
	}
	return vec, nil
}

type stubGenerator struct {
	output string
	err    error
}

func (g *stubGenerator) Generate(context.Context, string) (string, error) {
	return g.output, g.err
}

type noopFreshener struct{}

func (noopFreshener) EnsureFresh(context.Context) error { return nil }

type stubHealth struct {
	err error
}

func (h *stubHealth) Health(context.Context) error { return h.err }

func newTestService(t *testing.T, chunks []*store.Chunk, gen rag.Generator) *rag.Service {
	t.Helper()
	col, err := store.NewMemoryCollection(3, store.DistanceCosine)
	require.NoError(t, err)
	if len(chunks) > 0 {
		require.NoError(t, col.Upsert(context.Background(), chunks))
	}
	retriever := rag.NewRetriever(&axisEmbedder{}, col)
	return rag.NewService(noopFreshener{}, retriever, rag.NewSynthesizer(gen))
}

func trollChunk() *store.Chunk {
	return &store.Chunk{
		ID:     "troll-1",
		Text:   "Trolls regenerate unless burned.",
		Vector: []float32{0, 1, 0},
		Metadata: store.Metadata{
			SourcePath: "/data/Monsters/Monsters - Trolls.md",
			Title:      "Trolls",
			Corpus:     "Monsters",
			Edition:    "1e",
			PageNumber: 1,
			Section:    "Trolls",
		},
	}
}

func postQuery(t *testing.T, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/query", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestQueryHandler_AnswersWithSources(t *testing.T) {
	svc := newTestService(t, []*store.Chunk{trollChunk()},
		&stubGenerator{output: "Trolls regenerate unless burned."})
	handler := NewQueryHandler(svc, nil)

	rec := postQuery(t, handler, `{"query": "How do trolls regenerate?"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp QueryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Trolls regenerate unless burned.", resp.Answer)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "/data/Monsters/Monsters - Trolls.md", resp.Sources[0].SourcePath)
	assert.Equal(t, "Trolls", resp.Sources[0].Title)
	assert.Equal(t, "Monsters", resp.Sources[0].Corpus)
	assert.Equal(t, 1, resp.Sources[0].PageNumber)
}

func TestQueryHandler_MissingQueryIs400(t *testing.T) {
	svc := newTestService(t, []*store.Chunk{trollChunk()}, &stubGenerator{output: "x"})
	handler := NewQueryHandler(svc, nil)

	rec := postQuery(t, handler, `{}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueryHandler_InvalidJSONIs400(t *testing.T) {
	svc := newTestService(t, []*store.Chunk{trollChunk()}, &stubGenerator{output: "x"})
	handler := NewQueryHandler(svc, nil)

	rec := postQuery(t, handler, `{"query": `)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueryHandler_EmptyCollectionIs404(t *testing.T) {
	svc := newTestService(t, nil, &stubGenerator{output: "x"})
	handler := NewQueryHandler(svc, nil)

	rec := postQuery(t, handler, `{"query": "Anything about trolls?"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "no relevant")
}

func TestQueryHandler_GenerationFailureIs502(t *testing.T) {
	svc := newTestService(t, []*store.Chunk{trollChunk()},
		&stubGenerator{err: fmt.Errorf("model overloaded")})
	handler := NewQueryHandler(svc, nil)

	rec := postQuery(t, handler, `{"query": "How do trolls regenerate?"}`)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestQueryHandler_GetIs405(t *testing.T) {
	svc := newTestService(t, nil, &stubGenerator{output: "x"})
	handler := NewQueryHandler(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/query", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealthHandler_Healthy(t *testing.T) {
	handler := NewHealthHandler(&stubHealth{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "connected", resp.Qdrant)
	assert.NotEmpty(t, resp.Timestamp)
}

func TestHealthHandler_Unhealthy(t *testing.T) {
	handler := NewHealthHandler(&stubHealth{err: fmt.Errorf("connection refused")})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "unhealthy", resp.Status)
	assert.Equal(t, "disconnected", resp.Qdrant)
}

func TestMux_Routes(t *testing.T) {
	svc := newTestService(t, []*store.Chunk{trollChunk()}, &stubGenerator{output: "answer"})
	mux := NewMux(Deps{Service: svc, Health: &stubHealth{}})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	resp, err = http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/query", "application/json",
		strings.NewReader(`{"query": "troll"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
