package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/faxfinity/faxsort/internal/fax"
	"go.uber.org/zap"
)

// Watcher enumerates the inbox root on every poll and yields the PDFs that
// are ready for processing. A file is ready once its size has been stable
// across two consecutive polls; anything still growing (a fax mid-transfer)
// is deferred to the next cycle.
//
// The watcher keeps no record of processed files. The pipeline moves every
// processed file out of the inbox, so re-scanning an already-processed inbox
// yields nothing.
type Watcher struct {
	dir    string
	logger *zap.Logger

	mu        sync.Mutex
	lastSizes map[string]int64
}

// New creates a watcher over the given inbox directory.
func New(dir string, logger *zap.Logger) *Watcher {
	return &Watcher{
		dir:       dir,
		logger:    logger,
		lastSizes: make(map[string]int64),
	}
}

// Poll lists the inbox root (non-recursive) and returns every size-stable PDF.
func (w *Watcher) Poll(ctx context.Context) ([]fax.InboundFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list inbox %s: %w", w.dir, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	seen := make(map[string]struct{}, len(entries))
	var ready []fax.InboundFile

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.EqualFold(filepath.Ext(name), ".pdf") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			// Vanished between list and stat; it will reappear or not.
			continue
		}

		seen[name] = struct{}{}

		prev, known := w.lastSizes[name]
		w.lastSizes[name] = info.Size()

		if !known || prev != info.Size() {
			w.logger.Debug("Deferring unstable file",
				zap.String("file", name),
				zap.Int64("size", info.Size()))
			continue
		}

		ready = append(ready, fax.InboundFile{
			Path:    filepath.Join(w.dir, name),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	// Forget files that left the inbox so the map does not grow forever.
	for name := range w.lastSizes {
		if _, ok := seen[name]; !ok {
			delete(w.lastSizes, name)
		}
	}

	return ready, nil
}

// Forget drops the stability record for a single file. The pipeline calls
// this after moving a file out so a later same-named fax starts fresh.
func (w *Watcher) Forget(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.lastSizes, name)
}
