package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Dir is the directory next to an export that receives replaced files
const Dir = "archive"

// ArchiveExisting moves the file at path into an archive directory next
// to it, with a timestamp added to its name. It returns the new path, or
// an empty string when there was nothing to archive.
func ArchiveExisting(path string) (string, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to inspect %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("export path is a directory: %s", path)
	}

	archiveDir := filepath.Join(filepath.Dir(path), Dir)
	if err := os.MkdirAll(archiveDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	now := time.Now()
	archivePath := filepath.Join(archiveDir, archiveName(path, now.Format("20060102-150405")))

	// Check if archive already exists (unlikely but possible)
	if _, err := os.Stat(archivePath); err == nil {
		archivePath = filepath.Join(archiveDir, archiveName(path, now.Format("20060102-150405.000000")))
	}

	if err := os.Rename(path, archivePath); err != nil {
		return "", fmt.Errorf("failed to archive %s: %w", path, err)
	}
	return archivePath, nil
}

// archiveName inserts the timestamp between the base name and the extension
func archiveName(path, timestamp string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	return fmt.Sprintf("%s-%s%s", strings.TrimSuffix(base, ext), timestamp, ext)
}
