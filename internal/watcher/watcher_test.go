package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func write(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestWatcher_PollStability(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, zap.NewNop())
	ctx := context.Background()

	write(t, dir, "fax1.pdf", "content")

	// First sighting: size not yet confirmed stable.
	ready, err := w.Poll(ctx)
	require.NoError(t, err)
	assert.Empty(t, ready)

	// Second sighting with unchanged size: ready.
	ready, err = w.Poll(ctx)
	require.NoError(t, err)
	require.Len(t, ready, 1)
	assert.Equal(t, "fax1.pdf", ready[0].Name())
	assert.Equal(t, filepath.Join(dir, "fax1.pdf"), ready[0].Path)
	assert.Equal(t, int64(len("content")), ready[0].Size)
}

func TestWatcher_PollDefersGrowingFile(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, zap.NewNop())
	ctx := context.Background()

	write(t, dir, "fax1.pdf", "partial")

	_, err := w.Poll(ctx)
	require.NoError(t, err)

	// File grew between polls: deferred again.
	write(t, dir, "fax1.pdf", "partial plus more")

	ready, err := w.Poll(ctx)
	require.NoError(t, err)
	assert.Empty(t, ready)

	// Now stable for two polls in a row.
	ready, err = w.Poll(ctx)
	require.NoError(t, err)
	require.Len(t, ready, 1)
	assert.Equal(t, int64(len("partial plus more")), ready[0].Size)
}

func TestWatcher_PollIgnoresNonPDF(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, zap.NewNop())
	ctx := context.Background()

	write(t, dir, "notes.txt", "text")
	write(t, dir, "image.tif", "tiff")
	write(t, dir, "fax1.pdf", "pdf")
	write(t, dir, "FAX2.PDF", "pdf upper")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir.pdf"), 0755))

	_, err := w.Poll(ctx)
	require.NoError(t, err)

	ready, err := w.Poll(ctx)
	require.NoError(t, err)
	require.Len(t, ready, 2)

	seen := map[string]bool{}
	for _, f := range ready {
		seen[f.Name()] = true
	}
	assert.True(t, seen["fax1.pdf"])
	assert.True(t, seen["FAX2.PDF"])
}

func TestWatcher_PollAfterFileRemoved(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, zap.NewNop())
	ctx := context.Background()

	write(t, dir, "fax1.pdf", "content")

	_, err := w.Poll(ctx)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(dir, "fax1.pdf")))

	// An emptied inbox yields nothing; re-scanning is idempotent.
	ready, err := w.Poll(ctx)
	require.NoError(t, err)
	assert.Empty(t, ready)

	// The stability record was pruned, so a new same-named file starts over.
	write(t, dir, "fax1.pdf", "content")
	ready, err = w.Poll(ctx)
	require.NoError(t, err)
	assert.Empty(t, ready)
}

func TestWatcher_Forget(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, zap.NewNop())
	ctx := context.Background()

	write(t, dir, "fax1.pdf", "content")

	_, err := w.Poll(ctx)
	require.NoError(t, err)

	w.Forget("fax1.pdf")

	// Forgotten: back to first-sighting semantics.
	ready, err := w.Poll(ctx)
	require.NoError(t, err)
	assert.Empty(t, ready)
}

func TestWatcher_PollCancelledContext(t *testing.T) {
	w := New(t.TempDir(), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := w.Poll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWatcher_PollMissingDir(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "gone"), zap.NewNop())

	_, err := w.Poll(context.Background())
	assert.Error(t, err)
}
