package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/faxfinity/faxsort/internal/archive"
	"github.com/faxfinity/faxsort/internal/fax"
	"github.com/faxfinity/faxsort/internal/journal"
	"github.com/faxfinity/faxsort/internal/naming"
)

// Classifier is the external classification service seen by the pipeline.
type Classifier interface {
	Classify(ctx context.Context, backupPath string) (fax.Classification, error)
}

// Recorder receives the audit record of every outcome.
type Recorder interface {
	Record(ctx context.Context, e journal.Entry) error
}

// Pipeline runs one inbound file through backup, classification, naming and
// placement. Failures after backup route to quarantine instead of
// propagating, so one bad fax never blocks the batch. A file only leaves the
// inbox when a move succeeded; when even the quarantine move fails, the file
// stays behind for the next cycle.
type Pipeline struct {
	folders    fax.Folders
	archiver   *archive.Archiver
	classifier Classifier
	builder    *naming.Builder
	recorder   Recorder
	logger     *zap.Logger

	// Collision resolution and the following move form one critical
	// section per destination folder.
	renamedMu    sync.Mutex
	quarantineMu sync.Mutex
}

// New creates a pipeline. recorder may be nil.
func New(folders fax.Folders, archiver *archive.Archiver, classifier Classifier,
	builder *naming.Builder, recorder Recorder, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		folders:    folders,
		archiver:   archiver,
		classifier: classifier,
		builder:    builder,
		recorder:   recorder,
		logger:     logger,
	}
}

// ProcessFile takes a discovered inbox file to a terminal state and returns
// its outcome. It never returns an error: per-file failures are encoded in
// the outcome.
func (p *Pipeline) ProcessFile(ctx context.Context, f fax.InboundFile) fax.Outcome {
	p.logger.Info("Processing file", zap.String("file", f.Name()), zap.Int64("size", f.Size))

	// Backup first. A failure here means no safety copy exists, so the
	// file must stay untouched in the inbox for a later cycle.
	rec, err := p.archiver.Backup(f)
	if err != nil {
		p.logger.Error("Backup failed, leaving file in inbox",
			zap.String("file", f.Name()),
			zap.Error(err))
		outcome := fax.Outcome{State: fax.StateBackupFailed, Reason: err.Error()}
		p.record(ctx, f, fax.Classification{}, outcome)
		return outcome
	}

	cls, err := p.classifier.Classify(ctx, rec.BackupPath)
	if err != nil {
		return p.quarantine(ctx, f, rec, fax.Classification{},
			fmt.Sprintf("classification failed: %v", err))
	}

	candidate := p.builder.BuildName(cls, rec)

	p.renamedMu.Lock()
	destPath, err := naming.ResolvePath(p.folders.Renamed, candidate)
	if err == nil {
		err = os.Rename(f.Path, destPath)
	}
	p.renamedMu.Unlock()

	if err != nil {
		return p.quarantine(ctx, f, rec, cls, fmt.Sprintf("placement failed: %v", err))
	}

	p.logger.Info("File placed",
		zap.String("original", f.Name()),
		zap.String("final", filepath.Base(destPath)),
		zap.String("category", cls.Category))

	outcome := fax.Outcome{State: fax.StatePlaced, FinalPath: destPath}
	p.record(ctx, f, cls, outcome)
	return outcome
}

// quarantine moves the inbox file into the error folder under a diagnostic
// "ANALYSE_<timestamp>_<original>" name. Quarantining is a terminal, valid
// outcome for the pipeline run; it never raises.
func (p *Pipeline) quarantine(ctx context.Context, f fax.InboundFile,
	rec fax.BackupRecord, cls fax.Classification, reason string) fax.Outcome {

	diagnostic := fmt.Sprintf("%s%s_%s",
		fax.QuarantinePrefix, rec.CreatedAt.Format("20060102_150405"), rec.OriginalName)

	p.quarantineMu.Lock()
	destPath, err := naming.ResolvePath(p.folders.Quarantine, diagnostic)
	if err == nil {
		err = os.Rename(f.Path, destPath)
	}
	p.quarantineMu.Unlock()

	if err != nil {
		// The move itself failed; the original is still in the inbox and
		// the backup still exists, so nothing is lost. The next scan
		// picks the file up again.
		p.logger.Error("Quarantine move failed, file remains in inbox",
			zap.String("file", f.Name()),
			zap.Error(err))
		outcome := fax.Outcome{
			State:  fax.StateQuarantineFailed,
			Reason: fmt.Sprintf("%s; quarantine move failed: %v", reason, err),
		}
		p.record(ctx, f, cls, outcome)
		return outcome
	}

	outcome := fax.Outcome{State: fax.StateQuarantined, FinalPath: destPath, Reason: reason}
	p.logger.Warn("File quarantined",
		zap.String("original", f.Name()),
		zap.String("diagnostic", filepath.Base(destPath)),
		zap.String("reason", reason))

	p.record(ctx, f, cls, outcome)
	return outcome
}

func (p *Pipeline) record(ctx context.Context, f fax.InboundFile,
	cls fax.Classification, outcome fax.Outcome) {
	if p.recorder == nil {
		return
	}

	finalName := ""
	if outcome.FinalPath != "" {
		finalName = filepath.Base(outcome.FinalPath)
	}

	entry := journal.Entry{
		Original:  f.Name(),
		FinalName: finalName,
		State:     string(outcome.State),
		Category:  cls.Category,
		Sender:    cls.Sender,
		Patient:   cls.Patient,
		Detail:    outcome.Reason,
	}
	if err := p.recorder.Record(ctx, entry); err != nil {
		p.logger.Warn("Failed to record outcome", zap.Error(err))
	}
}
