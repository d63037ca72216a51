package scanner

import (
	"context"

	"github.com/devops-csmake/debpack/internal/models"
)

// EntryType represents the type of a staged filesystem entry
type EntryType int

const (
	TypeUnknown EntryType = iota
	TypeFile
	TypeDir
	TypeSymlink
)

// String returns the string representation of EntryType
func (t EntryType) String() string {
	switch t {
	case TypeFile:
		return "file"
	case TypeDir:
		return "dir"
	case TypeSymlink:
		return "symlink"
	default:
		return "unknown"
	}
}

// ScannedEntry represents a staged entry found during scanning
type ScannedEntry struct {
	Path        string
	ArchivePath string
	Type        EntryType
	Size        int64
}

// Scanner interface for walking a staging tree
type Scanner interface {
	// Scan walks root and returns its entries in lexical order
	Scan(ctx context.Context, root string) ([]ScannedEntry, error)
}

// TotalSize sums the sizes of the regular files among entries
func TotalSize(entries []ScannedEntry) int64 {
	var total int64
	for _, e := range entries {
		total += e.Size
	}
	return total
}

// InstallEntries converts scanned entries into install entries, keeping order
func InstallEntries(entries []ScannedEntry) []models.InstallEntry {
	out := make([]models.InstallEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, models.InstallEntry{
			SourcePath:  e.Path,
			ArchivePath: e.ArchivePath,
		})
	}
	return out
}
