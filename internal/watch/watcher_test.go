package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingInvalidator struct {
	calls atomic.Int64
}

func (c *countingInvalidator) Invalidate() {
	c.calls.Add(1)
}

func waitForCalls(t *testing.T, inv *countingInvalidator, want int64) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if inv.calls.Load() >= want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("invalidator called %d times, want at least %d", inv.calls.Load(), want)
}

func TestWatcher_InvalidatesOnWrite(t *testing.T) {
	dir := t.TempDir()
	inv := &countingInvalidator{}

	w, err := New([]string{dir}, inv, 50*time.Millisecond, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "Dragonbane - Core Rules.md"), []byte("# Combat\n"), 0o644))

	waitForCalls(t, inv, 1)
	cancel()
	<-done
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	inv := &countingInvalidator{}

	w, err := New([]string{dir}, inv, 200*time.Millisecond, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()

	// A burst of writes inside the debounce window collapses into one
	// invalidation.
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	waitForCalls(t, inv, 1)
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int64(1), inv.calls.Load())

	cancel()
	<-done
}

func TestWatcher_MissingFolderErrors(t *testing.T) {
	_, err := New([]string{filepath.Join(t.TempDir(), "missing")}, &countingInvalidator{}, 0, nil)
	assert.Error(t, err)
}

func TestWatcher_RunStopsOnCancel(t *testing.T) {
	w, err := New([]string{t.TempDir()}, &countingInvalidator{}, 0, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = w.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
