package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

var _ Scanner = (*FileSystemScanner)(nil)

// FileSystemScanner implements Scanner interface for staging directories
type FileSystemScanner struct {
	// Exclude holds glob patterns matched against the slash separated
	// path relative to the root and against the base name
	Exclude []string
}

// NewFileSystemScanner creates a new filesystem scanner
func NewFileSystemScanner(exclude ...string) *FileSystemScanner {
	return &FileSystemScanner{Exclude: exclude}
}

// Scan walks root and returns every entry below it. Directories come
// before their contents; the root itself is not returned.
func (s *FileSystemScanner) Scan(ctx context.Context, root string) ([]ScannedEntry, error) {
	var entries []ScannedEntry

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// Check context cancellation
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if s.excluded(rel) {
			logrus.Debugf("Excluding %s", rel)
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		entryType := typeFromMode(d.Type())
		if entryType == TypeUnknown {
			logrus.Warnf("Skipping %s: unsupported file type", p)
			return nil
		}

		var size int64
		if entryType == TypeFile {
			info, err := d.Info()
			if err != nil {
				return err
			}
			size = info.Size()
		}

		entries = append(entries, ScannedEntry{
			Path:        p,
			ArchivePath: rel,
			Type:        entryType,
			Size:        size,
		})
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to scan directory: %w", err)
	}

	logrus.Infof("Found %d entries in %s", len(entries), root)
	return entries, nil
}

func (s *FileSystemScanner) excluded(rel string) bool {
	for _, pattern := range s.Exclude {
		if ok, _ := path.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := path.Match(pattern, path.Base(rel)); ok {
			return true
		}
	}
	return false
}
