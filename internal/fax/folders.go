package fax

import (
	"fmt"
	"os"
	"path/filepath"
)

// Subfolder names inside the inbox root.
const (
	SubdirArchive    = "Archiv"
	SubdirRenamed    = "Umbenannt"
	SubdirQuarantine = "Fehler"
)

// QuarantinePrefix marks files that failed processing after backup.
const QuarantinePrefix = "ANALYSE_"

// Folders holds the absolute paths of the working directories.
type Folders struct {
	Inbox      string
	Archive    string
	Renamed    string
	Quarantine string
}

// NewFolders derives the working directories from the inbox root.
func NewFolders(root string) Folders {
	return Folders{
		Inbox:      root,
		Archive:    filepath.Join(root, SubdirArchive),
		Renamed:    filepath.Join(root, SubdirRenamed),
		Quarantine: filepath.Join(root, SubdirQuarantine),
	}
}

// Ensure creates the subfolders and verifies the root is a writable
// directory. An error here is a configuration problem and aborts startup.
func (f Folders) Ensure() error {
	info, err := os.Stat(f.Inbox)
	if err != nil {
		return fmt.Errorf("inbox root %s: %w", f.Inbox, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("inbox root %s is not a directory", f.Inbox)
	}

	for _, dir := range []string{f.Archive, f.Renamed, f.Quarantine} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create folder %s: %w", dir, err)
		}
	}

	// Probe writability so permission problems surface at startup
	// instead of on the first backup.
	probe, err := os.CreateTemp(f.Archive, ".write-probe-*")
	if err != nil {
		return fmt.Errorf("archive folder %s is not writable: %w", f.Archive, err)
	}
	probe.Close()
	if err := os.Remove(probe.Name()); err != nil {
		return fmt.Errorf("failed to remove write probe: %w", err)
	}

	return nil
}
