package chunk

import (
	"strings"
	"testing"
)

func TestSplit_WindowArithmetic(t *testing.T) {
	text := strings.Repeat("a", 2500)

	windows, err := Split(text, 1000, 100)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}

	if len(windows) != 3 {
		t.Fatalf("Expected 3 windows, got %d", len(windows))
	}

	wantStarts := []int{0, 900, 1800}
	wantLens := []int{1000, 1000, 700}
	for i, w := range windows {
		if w.Start != wantStarts[i] {
			t.Errorf("Window %d start: expected %d, got %d", i, wantStarts[i], w.Start)
		}
		if len(w.Text) != wantLens[i] {
			t.Errorf("Window %d length: expected %d, got %d", i, wantLens[i], len(w.Text))
		}
	}
}

func TestSplit_EmptyInput(t *testing.T) {
	windows, err := Split("", 1000, 100)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(windows) != 0 {
		t.Errorf("Expected no windows for empty input, got %d", len(windows))
	}
}

func TestSplit_ShortInput(t *testing.T) {
	windows, err := Split("short text", 1000, 100)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(windows) != 1 {
		t.Fatalf("Expected 1 window, got %d", len(windows))
	}
	if windows[0].Start != 0 || windows[0].Text != "short text" {
		t.Errorf("Window mismatch: %+v", windows[0])
	}
}

func TestSplit_RejectsDegenerateStep(t *testing.T) {
	if _, err := Split("text", 100, 100); err == nil {
		t.Error("Expected error when overlap == size")
	}
	if _, err := Split("text", 100, 150); err == nil {
		t.Error("Expected error when overlap > size")
	}
	if _, err := Split("text", 0, 0); err == nil {
		t.Error("Expected error when size == 0")
	}
}

func TestSplit_NegativeOverlapClamped(t *testing.T) {
	text := strings.Repeat("b", 250)
	windows, err := Split(text, 100, -10)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(windows) != 3 {
		t.Fatalf("Expected 3 windows, got %d", len(windows))
	}
	for i, w := range windows {
		if w.Start != i*100 {
			t.Errorf("Window %d start: expected %d, got %d", i, i*100, w.Start)
		}
	}
}

func TestSplit_Deterministic(t *testing.T) {
	text := strings.Repeat("grapple rules ", 200)

	first, err := Split(text, 300, 50)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	second, err := Split(text, 300, 50)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("Window counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("Window %d differs between runs", i)
		}
	}
}
