package fax

import (
	"path/filepath"
	"time"
)

// InboundFile is a file sitting in the inbox root, not yet moved anywhere.
type InboundFile struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Name returns the base file name of the inbound file.
func (f InboundFile) Name() string {
	return filepath.Base(f.Path)
}

// BackupRecord describes the durable copy made before any processing.
// A record exists for every file that ever entered classification.
type BackupRecord struct {
	OriginalName string
	BackupPath   string
	CreatedAt    time.Time
}

// Classification is the parsed result of one vision analysis.
// Sender and Patient may be empty when the service reported nothing usable.
// Date is the document date; the zero value means the service gave none.
type Classification struct {
	Category string
	Sender   string
	Patient  string
	Date     time.Time
}

// State tracks a file through the processing state machine.
// Placed and Quarantined are terminal and mutually exclusive. BackupFailed
// and QuarantineFailed both leave the file in the inbox for a later cycle:
// the former because no safety copy could be made, the latter because the
// move into the error folder itself failed.
type State string

const (
	StateDiscovered       State = "DISCOVERED"
	StateBackedUp         State = "BACKED_UP"
	StatePlaced           State = "PLACED"
	StateQuarantined      State = "QUARANTINED"
	StateBackupFailed     State = "BACKUP_FAILED"
	StateQuarantineFailed State = "QUARANTINE_FAILED"
)

// Outcome is the single terminal result produced for each inbound file.
type Outcome struct {
	State     State
	FinalPath string
	Reason    string
}
