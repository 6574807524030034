package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/faxfinity/faxsort/internal/fax"
	"github.com/faxfinity/faxsort/internal/watcher"
)

func newWorker(t *testing.T, fx *pipelineFixture, interval time.Duration) *ScanWorker {
	t.Helper()
	return NewScanWorker(
		ScanWorkerConfig{PollInterval: interval, Workers: 2},
		watcher.New(fx.folders.Inbox, zap.NewNop()),
		fx.pipeline,
		zap.NewNop(),
	)
}

func TestScanWorker_ProcessesInbox(t *testing.T) {
	fx := newFixture(t, func(_ context.Context, _ string) (fax.Classification, error) {
		return fax.Classification{
			Category: "Befund",
			Sender:   "Radiologie Nord",
			Date:     time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		}, nil
	})
	fx.dropFile(t, "fax_0042.pdf", "content")

	w := newWorker(t, fx, 20*time.Millisecond)
	require.NoError(t, w.Start(context.Background()))

	// Two polls are needed before the file counts as stable, plus the move.
	require.Eventually(t, func() bool {
		return w.Snapshot().Placed == 1
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, w.Stop())

	stats := w.Snapshot()
	assert.Equal(t, 1, stats.Placed)
	assert.Equal(t, 0, stats.Quarantined)
	assert.False(t, stats.LastScan.IsZero())
	assert.Empty(t, listDir(t, fx.folders.Inbox))
}

func TestScanWorker_StartTwice(t *testing.T) {
	fx := newFixture(t, func(_ context.Context, _ string) (fax.Classification, error) {
		return fax.Classification{Category: "Befund"}, nil
	})

	w := newWorker(t, fx, time.Minute)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	assert.Error(t, w.Start(context.Background()))
}

func TestScanWorker_StopWithoutStart(t *testing.T) {
	fx := newFixture(t, func(_ context.Context, _ string) (fax.Classification, error) {
		return fax.Classification{Category: "Befund"}, nil
	})

	w := newWorker(t, fx, time.Minute)
	assert.NoError(t, w.Stop())
}

func TestScanWorker_StopDrainsInFlight(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})

	fx := newFixture(t, func(ctx context.Context, _ string) (fax.Classification, error) {
		close(started)
		<-release
		return fax.Classification{Category: "Befund"}, nil
	})
	fx.dropFile(t, "fax_0042.pdf", "content")

	w := newWorker(t, fx, 20*time.Millisecond)
	require.NoError(t, w.Start(context.Background()))

	<-started

	stopped := make(chan struct{})
	go func() {
		w.Stop()
		close(stopped)
	}()

	// Stop must wait for the in-flight file.
	select {
	case <-stopped:
		t.Fatal("Stop returned while a file was still being classified")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return after the batch drained")
	}

	assert.Equal(t, 1, w.Snapshot().Placed)
}

func TestScanWorker_Name(t *testing.T) {
	fx := newFixture(t, func(_ context.Context, _ string) (fax.Classification, error) {
		return fax.Classification{}, nil
	})
	assert.Equal(t, "ScanWorker", newWorker(t, fx, time.Minute).Name())
}
