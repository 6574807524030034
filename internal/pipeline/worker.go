package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/faxfinity/faxsort/internal/fax"
	"github.com/faxfinity/faxsort/internal/watcher"
)

// ScanWorkerConfig holds the polling cadence and batch parallelism.
type ScanWorkerConfig struct {
	PollInterval time.Duration
	Workers      int
}

// Stats is a snapshot of the worker's counters.
type Stats struct {
	Placed           int       `json:"placed"`
	Quarantined      int       `json:"quarantined"`
	BackupFailed     int       `json:"backup_failed"`
	QuarantineFailed int       `json:"quarantine_failed"`
	LastScan         time.Time `json:"last_scan"`
}

// ScanWorker drives the processing loop: poll the inbox on a fixed interval
// and fan the batch out over a small bounded worker pool. Classification is
// the bottleneck and the service rate-limits, so the pool stays small.
type ScanWorker struct {
	config   ScanWorkerConfig
	watcher  *watcher.Watcher
	pipeline *Pipeline
	logger   *zap.Logger

	mu        sync.RWMutex
	isRunning bool
	cancel    context.CancelFunc
	done      chan struct{}
	stats     Stats
}

// NewScanWorker creates a scan worker.
func NewScanWorker(config ScanWorkerConfig, w *watcher.Watcher, p *Pipeline, logger *zap.Logger) *ScanWorker {
	return &ScanWorker{
		config:   config,
		watcher:  w,
		pipeline: p,
		logger:   logger,
	}
}

// Start begins the polling loop in a background goroutine.
func (w *ScanWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return fmt.Errorf("scan worker already running")
	}
	loopCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.isRunning = true
	w.mu.Unlock()

	w.logger.Info("ScanWorker started",
		zap.Duration("poll_interval", w.config.PollInterval),
		zap.Int("workers", w.config.Workers))

	go w.pollLoop(loopCtx)
	return nil
}

// Stop cancels the polling loop and blocks until the in-flight batch has
// drained to terminal states. Cancellation aborts the sleep between cycles
// promptly but never interrupts a file mid-sequence.
func (w *ScanWorker) Stop() error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	cancel()
	<-done

	w.mu.RLock()
	defer w.mu.RUnlock()
	w.logger.Info("ScanWorker stopped",
		zap.Int("placed", w.stats.Placed),
		zap.Int("quarantined", w.stats.Quarantined))
	return nil
}

// Name identifies the worker in logs.
func (w *ScanWorker) Name() string {
	return "ScanWorker"
}

// Snapshot returns a copy of the current counters.
func (w *ScanWorker) Snapshot() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

func (w *ScanWorker) pollLoop(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	// First scan immediately; waiting a full interval on startup would
	// leave an already-full inbox sitting.
	w.runBatch(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("Poll loop cancelled")
			return
		case <-ticker.C:
			w.runBatch(ctx)
		}
	}
}

// runBatch polls once and processes every ready file. The batch runs on a
// context that survives Stop so in-flight files drain to a terminal state;
// the per-call classification timeout still bounds each file.
func (w *ScanWorker) runBatch(ctx context.Context) {
	files, err := w.watcher.Poll(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Error("Inbox scan failed", zap.Error(err))
		}
		return
	}
	if len(files) == 0 {
		return
	}

	w.logger.Info("Scan found files", zap.Int("count", len(files)))

	batchCtx := context.WithoutCancel(ctx)
	g, _ := errgroup.WithContext(batchCtx)
	g.SetLimit(w.config.Workers)

	for _, f := range files {
		g.Go(func() error {
			outcome := w.pipeline.ProcessFile(batchCtx, f)
			if outcome.State == fax.StatePlaced || outcome.State == fax.StateQuarantined {
				// The file left the inbox; a later same-named fax must not
				// inherit its stability record.
				w.watcher.Forget(f.Name())
			}
			w.count(outcome.State)
			return nil
		})
	}
	_ = g.Wait()

	w.mu.Lock()
	w.stats.LastScan = time.Now()
	w.mu.Unlock()
}

func (w *ScanWorker) count(state fax.State) {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch state {
	case fax.StatePlaced:
		w.stats.Placed++
	case fax.StateQuarantined:
		w.stats.Quarantined++
	case fax.StateBackupFailed:
		w.stats.BackupFailed++
	case fax.StateQuarantineFailed:
		w.stats.QuarantineFailed++
	}
}
