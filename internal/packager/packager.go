package packager

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/devops-csmake/debpack/internal/models"
	"github.com/sirupsen/logrus"
)

// Packager interface for package format builders
type Packager interface {
	// Format returns the package format name, e.g. "debian"
	Format() string

	// ResolveMetadata derives the package identity and returns the
	// filename of the final package
	ResolveMetadata(ctx context.Context) (string, error)

	// Setup opens the archives that install entries are written into
	Setup(ctx context.Context) error

	// EnsureDirectory makes sure dir and its parents exist in the package
	EnsureDirectory(dir string) error

	// ComputeFileDigest returns the format's digest of r
	ComputeFileDigest(r io.Reader) (string, error)

	// RecordPlacedFile places one install entry into the package
	RecordPlacedFile(ctx context.Context, entry models.InstallEntry) error

	// Finish completes the package and returns the path of the result
	Finish(ctx context.Context) (string, error)

	// Abort releases resources held by a build that will not finish
	Abort()
}

// Run drives p through a complete build of entries and returns the path
// of the built package
func Run(ctx context.Context, p Packager, entries []models.InstallEntry) (string, error) {
	filename, err := p.ResolveMetadata(ctx)
	if err != nil {
		return "", err
	}
	logrus.Infof("Building %s package %s", p.Format(), filename)

	if err := p.Setup(ctx); err != nil {
		p.Abort()
		return "", err
	}

	for _, entry := range entries {
		if dir := parentDir(entry.ArchivePath); dir != "" {
			if err := p.EnsureDirectory(dir); err != nil {
				p.Abort()
				return "", err
			}
		}
		if err := p.RecordPlacedFile(ctx, entry); err != nil {
			p.Abort()
			return "", err
		}
	}
	logrus.Debugf("Placed %d install entries", len(entries))

	out, err := p.Finish(ctx)
	if err != nil {
		p.Abort()
		return "", err
	}

	digest, err := fileDigest(p, out)
	if err != nil {
		return "", err
	}
	logrus.Infof("Built %s (md5 %s)", out, digest)

	return out, nil
}

// parentDir returns the directory part of an archive path, or "" for
// entries at the package root
func parentDir(archivePath string) string {
	p := strings.TrimLeft(path.Clean("/"+archivePath), "/")
	dir := path.Dir(p)
	if dir == "." || dir == "/" {
		return ""
	}
	return dir
}

func fileDigest(p Packager, file string) (string, error) {
	f, err := os.Open(file)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", file, err)
	}
	defer f.Close()
	return p.ComputeFileDigest(f)
}
