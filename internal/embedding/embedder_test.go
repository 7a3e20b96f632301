package embedding

import (
	"context"
	"testing"
)

// An empty batch must not reach the remote API at all: the embedder here
// has no client, so any attempted call would panic.
func TestEmbedBatch_EmptyInputSkipsRemoteCall(t *testing.T) {
	e := NewEmbedder(nil, "", 0)

	vectors, err := e.EmbedBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("EmbedBatch failed: %v", err)
	}
	if len(vectors) != 0 {
		t.Errorf("Expected no vectors, got %d", len(vectors))
	}

	vectors, err = e.EmbedBatch(context.Background(), []string{})
	if err != nil {
		t.Fatalf("EmbedBatch failed: %v", err)
	}
	if len(vectors) != 0 {
		t.Errorf("Expected no vectors, got %d", len(vectors))
	}
}

func TestNewEmbedder_Defaults(t *testing.T) {
	e := NewEmbedder(nil, "", 0)
	if e.model != DefaultModel {
		t.Errorf("Expected model %q, got %q", DefaultModel, e.model)
	}
	if e.batchSize != DefaultBatchSize {
		t.Errorf("Expected batch size %d, got %d", DefaultBatchSize, e.batchSize)
	}

	e = NewEmbedder(nil, "text-embedding-3-large", 64)
	if e.model != "text-embedding-3-large" {
		t.Errorf("Custom model not kept, got %q", e.model)
	}
	if e.batchSize != 64 {
		t.Errorf("Custom batch size not kept, got %d", e.batchSize)
	}
}

func TestToFloat32(t *testing.T) {
	in := []float64{0.25, -1.5, 3}
	out := toFloat32(in)

	if len(out) != len(in) {
		t.Fatalf("Expected %d values, got %d", len(in), len(out))
	}
	for i := range in {
		if float64(out[i]) != in[i] {
			t.Errorf("Value %d: expected %v, got %v", i, in[i], out[i])
		}
	}
}
