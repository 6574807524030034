package archive

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/faxfinity/faxsort/internal/fax"
)

func writeInbox(t *testing.T, dir, name, content string) fax.InboundFile {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return fax.InboundFile{Path: path, Size: int64(len(content))}
}

func TestArchiver_Backup(t *testing.T) {
	inbox := t.TempDir()
	archiveDir := t.TempDir()
	fixed := time.Date(2024, 1, 7, 10, 15, 0, 0, time.UTC)

	archiver := New(archiveDir, zap.NewNop())
	archiver.now = func() time.Time { return fixed }

	f := writeInbox(t, inbox, "fax_0042.pdf", "%PDF-1.4 content")

	rec, err := archiver.Backup(f)
	require.NoError(t, err)

	assert.Equal(t, "fax_0042.pdf", rec.OriginalName)
	assert.Equal(t, fixed, rec.CreatedAt)
	assert.Equal(t, filepath.Join(archiveDir, "20240107_101500_fax_0042.pdf"), rec.BackupPath)

	copied, err := os.ReadFile(rec.BackupPath)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 content", string(copied))

	// The inbox file is untouched; Backup copies, it never moves.
	original, err := os.ReadFile(f.Path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 content", string(original))
}

func TestArchiver_BackupSameSecondCollision(t *testing.T) {
	inbox := t.TempDir()
	archiveDir := t.TempDir()
	fixed := time.Date(2024, 1, 7, 10, 15, 0, 0, time.UTC)

	archiver := New(archiveDir, zap.NewNop())
	archiver.now = func() time.Time { return fixed }

	first := writeInbox(t, inbox, "scan.pdf", "first")
	second := writeInbox(t, t.TempDir(), "scan.pdf", "second")

	rec1, err := archiver.Backup(first)
	require.NoError(t, err)
	assert.Equal(t, "20240107_101500_scan.pdf", filepath.Base(rec1.BackupPath))

	rec2, err := archiver.Backup(second)
	require.NoError(t, err)
	assert.Equal(t, "20240107_101500_scan_2.pdf", filepath.Base(rec2.BackupPath))

	copied, err := os.ReadFile(rec2.BackupPath)
	require.NoError(t, err)
	assert.Equal(t, "second", string(copied))
}

func TestArchiver_BackupMissingSource(t *testing.T) {
	archiver := New(t.TempDir(), zap.NewNop())

	_, err := archiver.Backup(fax.InboundFile{Path: filepath.Join(t.TempDir(), "gone.pdf")})
	require.Error(t, err)
}

func TestArchiver_BackupUnwritableArchive(t *testing.T) {
	inbox := t.TempDir()
	missing := filepath.Join(t.TempDir(), "does", "not", "exist")

	archiver := New(missing, zap.NewNop())
	f := writeInbox(t, inbox, "scan.pdf", "content")

	_, err := archiver.Backup(f)
	require.Error(t, err)

	// The inbox file survives a failed backup.
	_, statErr := os.Stat(f.Path)
	assert.NoError(t, statErr)
}
