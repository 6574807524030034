package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/faxfinity/faxsort/internal/fax"
	"go.uber.org/zap"
)

const timestampLayout = "20060102_150405"

// Archiver copies every newly seen inbox file into the archive folder before
// any further processing touches it. The copy is fsynced before Backup
// returns, so a crash during classification can never lose the only copy.
type Archiver struct {
	dir    string
	logger *zap.Logger
	now    func() time.Time
}

// New creates an archiver writing into dir.
func New(dir string, logger *zap.Logger) *Archiver {
	return &Archiver{dir: dir, logger: logger, now: time.Now}
}

// Backup copies the inbound file to "<YYYYMMDD_HHMMSS>_<originalName>" inside
// the archive folder. When two files land in the same second the name gets a
// numeric suffix before the extension. The original stays in the inbox.
func (a *Archiver) Backup(f fax.InboundFile) (fax.BackupRecord, error) {
	ts := a.now()
	base := fmt.Sprintf("%s_%s", ts.Format(timestampLayout), f.Name())

	backupPath, err := a.copyExclusive(f.Path, base)
	if err != nil {
		return fax.BackupRecord{}, err
	}

	a.logger.Info("Backup created",
		zap.String("original", f.Name()),
		zap.String("backup", filepath.Base(backupPath)))

	return fax.BackupRecord{
		OriginalName: f.Name(),
		BackupPath:   backupPath,
		CreatedAt:    ts,
	}, nil
}

// copyExclusive writes src into the archive under base, trying _2, _3, ...
// suffixes on name collisions. O_EXCL makes the claim on a name atomic even
// against a concurrent worker archiving an identically named file.
func (a *Archiver) copyExclusive(src, base string) (string, error) {
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	for n := 1; ; n++ {
		name := base
		if n > 1 {
			name = fmt.Sprintf("%s_%d%s", stem, n, ext)
		}
		dstPath := filepath.Join(a.dir, name)

		dst, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create backup %s: %w", dstPath, err)
		}

		if err := copyInto(dst, src); err != nil {
			dst.Close()
			os.Remove(dstPath)
			return "", fmt.Errorf("failed to write backup %s: %w", dstPath, err)
		}
		if err := dst.Close(); err != nil {
			return "", fmt.Errorf("failed to close backup %s: %w", dstPath, err)
		}
		return dstPath, nil
	}
}

func copyInto(dst *os.File, srcPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return err
	}
	// Durable before classification is attempted.
	return dst.Sync()
}
