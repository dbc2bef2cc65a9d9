package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semgraph/rdf"
)

// writeAtomic writes through a temp file and a rename so the watcher never
// sees a half written document.
func writeAtomic(t *testing.T, path string, data []byte) {
	t.Helper()
	tmp := path + ".tmp"
	require.NoError(t, os.WriteFile(tmp, data, 0644))
	require.NoError(t, os.Rename(tmp, path))
}

func nextEvent(t *testing.T, w *Watcher) WatchEvent {
	t.Helper()
	select {
	case ev, ok := <-w.Events():
		require.True(t, ok, "events channel closed")
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for watch event")
		return WatchEvent{}
	}
}

func TestWatcher_IndexDirectory(t *testing.T) {
	dir := t.TempDir()
	writePackage(t, dir, "alpha.json", "Alpha", "1.0.0")
	writePackage(t, dir, "sub/beta.json", "Beta", "1.0.0")
	writePackage(t, dir, ".hidden/skip.txt", "Skip", "1.0.0")

	w, err := NewWatcher(WatcherConfig{Root: dir}, newPipeline(t, nil))
	require.NoError(t, err)
	defer w.Stop()

	report, err := w.IndexDirectory(context.Background())
	require.NoError(t, err)
	assert.Len(t, report.Outputs, 2)

	_, ok := w.GetHash("alpha.json")
	assert.True(t, ok)
	_, ok = w.GetHash(filepath.Join("sub", "beta.json"))
	assert.True(t, ok)
}

func TestWatcher_IndexEmptyDirectory(t *testing.T) {
	w, err := NewWatcher(WatcherConfig{Root: t.TempDir()}, newPipeline(t, nil))
	require.NoError(t, err)
	defer w.Stop()

	report, err := w.IndexDirectory(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Outputs)
	assert.Zero(t, report.Graph.Len())
}

func TestWatcher_Events(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, err := NewWatcher(WatcherConfig{Root: dir, DebounceDelay: 20 * time.Millisecond}, newPipeline(t, nil))
	require.NoError(t, err)
	require.NoError(t, w.Start(ctx))

	src, err := os.ReadFile(samplePath)
	require.NoError(t, err)
	path := filepath.Join(dir, "package.json")
	writeAtomic(t, path, src)

	ev := nextEvent(t, w)
	require.NoError(t, ev.Error)
	assert.Equal(t, "package.json", ev.Path)
	assert.Equal(t, OpCreate, ev.Operation)
	require.NotNil(t, ev.Output)
	assert.NotEmpty(t, ev.Output.Graph.TriplesWithSubject(rdf.NamedNode(pkgIRI)))

	// Rewriting identical content is not reported.
	writeAtomic(t, path, src)

	other := filepath.Join(dir, "other.json")
	writeAtomic(t, other, []byte(`{"$type": "Transformation.Package, Transformation", "Id": "Other", "Version": "3.0.0"}`))
	ev = nextEvent(t, w)
	assert.Equal(t, "other.json", ev.Path)
	assert.Equal(t, OpCreate, ev.Operation)

	require.NoError(t, os.Remove(path))
	ev = nextEvent(t, w)
	assert.Equal(t, "package.json", ev.Path)
	assert.Equal(t, OpDelete, ev.Operation)
	assert.Nil(t, ev.Output)

	require.NoError(t, w.Stop())
	_, ok := <-w.Events()
	assert.False(t, ok, "Stop closes the events channel")
}

func TestWatcher_StopTwice(t *testing.T) {
	t.Run("started", func(t *testing.T) {
		w, err := NewWatcher(WatcherConfig{Root: t.TempDir(), DebounceDelay: 10 * time.Millisecond}, newPipeline(t, nil))
		require.NoError(t, err)
		require.NoError(t, w.Start(context.Background()))

		require.NoError(t, w.Stop())
		assert.NotPanics(t, func() { _ = w.Stop() })
		_, ok := <-w.Events()
		assert.False(t, ok)
	})

	t.Run("never started", func(t *testing.T) {
		w, err := NewWatcher(WatcherConfig{Root: t.TempDir()}, newPipeline(t, nil))
		require.NoError(t, err)

		require.NoError(t, w.Stop())
		assert.NotPanics(t, func() { _ = w.Stop() })
	})
}
