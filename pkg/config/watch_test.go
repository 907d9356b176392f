package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherReportsChanges(t *testing.T) {
	dir := t.TempDir()
	problem := writeFile(t, dir, "problem.yaml", "a: 1\n")
	other := writeFile(t, dir, "other.yaml", "b: 1\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan []string, 8)
	w := NewWatcher(zerolog.Nop(), 50*time.Millisecond)
	require.NoError(t, w.Watch(ctx, []string{problem}, func(changed []string) {
		changes <- changed
	}))

	require.NoError(t, os.WriteFile(other, []byte("b: 2\n"), 0o644))
	require.NoError(t, os.WriteFile(problem, []byte("a: 2\n"), 0o644))

	want, err := filepath.Abs(problem)
	require.NoError(t, err)

	select {
	case got := <-changes:
		assert.Equal(t, []string{want}, got)
	case <-time.After(5 * time.Second):
		t.Fatal("change was not reported")
	}
}

func TestWatcherStopsOnCancel(t *testing.T) {
	problem := writeFile(t, t.TempDir(), "problem.yaml", "a: 1\n")

	ctx, cancel := context.WithCancel(context.Background())

	changes := make(chan []string, 8)
	w := NewWatcher(zerolog.Nop(), 20*time.Millisecond)
	require.NoError(t, w.Watch(ctx, []string{problem}, func(changed []string) {
		changes <- changed
	}))
	cancel()

	// Give the event loop time to observe the cancellation.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(problem, []byte("a: 2\n"), 0o644))

	select {
	case got := <-changes:
		t.Fatalf("unexpected change after cancel: %v", got)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherMissingDirectory(t *testing.T) {
	w := NewWatcher(zerolog.Nop(), 0)
	err := w.Watch(context.Background(), []string{filepath.Join(t.TempDir(), "missing", "p.yaml")}, func([]string) {})
	assert.Error(t, err)
	assert.NoError(t, w.Close())
}
