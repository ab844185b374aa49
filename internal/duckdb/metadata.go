package duckdb

import (
	"os"
	"time"
)

// FileFingerprint holds stat-based identity for a report file. ModTime is
// truncated to the microsecond resolution of a DuckDB TIMESTAMP.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime().UTC().Truncate(time.Microsecond),
	}, nil
}

// FileRecord is a classified report file.
type FileRecord struct {
	FileFingerprint
	Peaks        int
	ClassifiedAt time.Time
}
