package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/faxfinity/faxsort/internal/fax"
	"github.com/faxfinity/faxsort/internal/naming"
)

// diagnosticPrefix matches the "ANALYSE_<YYYYMMDD>_<HHMMSS>_" prefix that
// quarantined files carry.
var diagnosticPrefix = regexp.MustCompile(`^ANALYSE_\d{8}_\d{6}_`)

// RequeueQuarantined moves every quarantined file back into the inbox with
// the diagnostic prefix stripped, so the next scan cycle retries it. Returns
// the number of files moved.
func RequeueQuarantined(folders fax.Folders, logger *zap.Logger) (int, error) {
	entries, err := os.ReadDir(folders.Quarantine)
	if err != nil {
		return 0, fmt.Errorf("failed to list quarantine folder: %w", err)
	}

	moved := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.EqualFold(filepath.Ext(name), ".pdf") {
			continue
		}

		original := diagnosticPrefix.ReplaceAllString(name, "")
		destPath, err := naming.ResolvePath(folders.Inbox, original)
		if err != nil {
			logger.Warn("Skipping requeue", zap.String("file", name), zap.Error(err))
			continue
		}

		if err := os.Rename(filepath.Join(folders.Quarantine, name), destPath); err != nil {
			logger.Warn("Failed to requeue file", zap.String("file", name), zap.Error(err))
			continue
		}

		logger.Info("Requeued quarantined file",
			zap.String("from", name),
			zap.String("to", filepath.Base(destPath)))
		moved++
	}

	return moved, nil
}
