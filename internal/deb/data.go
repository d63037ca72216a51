package deb

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/devops-csmake/debpack/internal/models"
	"github.com/sirupsen/logrus"
)

// Md5Record is one line of the md5sums control member
type Md5Record struct {
	Digest string
	Path   string
}

// DataWriter places install entries into the data archive and records
// the digest of every regular file it writes
type DataWriter struct {
	archive *tarArchive
	mtime   time.Time
	bctx    *BuildContext
	dirs    map[string]bool
}

// newDataWriter starts the data archive with its root directory member
func newDataWriter(archive *tarArchive, mtime time.Time, bctx *BuildContext) (*DataWriter, error) {
	w := &DataWriter{
		archive: archive,
		mtime:   mtime,
		bctx:    bctx,
		dirs:    make(map[string]bool),
	}
	if err := archive.writeHeader(BuildDirEntry("./", mtime)); err != nil {
		return nil, err
	}
	return w, nil
}

// cleanArchivePath turns an install path into a relative, slash separated
// path without a leading "./" or "/"
func cleanArchivePath(p string) (string, error) {
	p = strings.TrimLeft(path.Clean("/"+strings.ReplaceAll(p, "\\", "/")), "/")
	if p == "" || p == "." {
		return "", fmt.Errorf("empty archive path")
	}
	return p, nil
}

// memberName returns the tar member name for a cleaned path
func memberName(p string) string {
	return "./" + p
}

// EnsureDirectory emits directory members for dir and every missing parent
func (w *DataWriter) EnsureDirectory(dir string) error {
	dir, err := cleanArchivePath(dir)
	if err != nil {
		return err
	}

	var current string
	for _, part := range strings.Split(dir, "/") {
		if current == "" {
			current = part
		} else {
			current = current + "/" + part
		}
		if w.dirs[current] {
			continue
		}
		if err := w.archive.writeHeader(BuildDirEntry(memberName(current), w.mtime)); err != nil {
			return err
		}
		w.dirs[current] = true
	}
	return nil
}

// ensureParent emits the parent directories of p
func (w *DataWriter) ensureParent(p string) error {
	if dir := path.Dir(p); dir != "." {
		return w.EnsureDirectory(dir)
	}
	return nil
}

// AddFile places one install entry. Directories and symlinks are written
// without a digest. Regular files and inline content are streamed and
// hashed. An entry with neither a usable source nor content is skipped.
func (w *DataWriter) AddFile(entry models.InstallEntry) error {
	p, err := cleanArchivePath(entry.ArchivePath)
	if err != nil {
		return fmt.Errorf("invalid archive path %q: %w", entry.ArchivePath, err)
	}

	if entry.SourcePath != "" {
		return w.addSource(p, entry.SourcePath)
	}

	if entry.HasContent || len(entry.Content) > 0 {
		return w.addContent(p, entry.Content, entry.Executable)
	}

	logrus.Warnf("Skipping %s: neither source path nor content given", p)
	return nil
}

func (w *DataWriter) addSource(p, source string) error {
	info, err := os.Lstat(source)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", source, err)
	}

	switch mode := info.Mode(); {
	case mode.IsDir():
		return w.EnsureDirectory(p)

	case mode&os.ModeSymlink != 0:
		target, err := os.Readlink(source)
		if err != nil {
			return fmt.Errorf("failed to read link %s: %w", source, err)
		}
		if err := w.ensureParent(p); err != nil {
			return err
		}
		return w.archive.writeHeader(BuildSymlinkEntry(memberName(p), target, w.mtime))

	case mode.IsRegular():
		if err := w.ensureParent(p); err != nil {
			return err
		}
		f, err := os.Open(source)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", source, err)
		}
		defer f.Close()

		e := BuildEntry(memberName(p), mode&0111 != 0, w.mtime)
		digest, err := w.archive.writeHashed(e, f, info.Size())
		if err != nil {
			return err
		}
		w.record(digest, p)
		return nil

	default:
		logrus.Warnf("Skipping %s: unsupported file type %s", source, mode.Type())
		return nil
	}
}

func (w *DataWriter) addContent(p string, content []byte, executable bool) error {
	if err := w.ensureParent(p); err != nil {
		return err
	}
	e := BuildEntry(memberName(p), executable, w.mtime)
	digest, err := w.archive.writeHashed(e, bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return err
	}
	w.record(digest, p)
	return nil
}

func (w *DataWriter) record(digest, p string) {
	w.bctx.Md5sums = append(w.bctx.Md5sums, Md5Record{Digest: digest, Path: p})
	logrus.Debugf("Placed %s (%s)", p, digest)
}
