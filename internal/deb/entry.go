package deb

import (
	"archive/tar"
	"strings"
	"time"
)

const (
	modeFile       int64 = 0644
	modeExecutable int64 = 0755
	modeDir        int64 = 0755
	modeSymlink    int64 = 0777
	rootName             = "root"
)

// ArchiveEntry describes the attributes of one tar member. The size is
// filled in by the writer right before the header is written.
type ArchiveEntry struct {
	Name     string
	Mode     int64
	Type     byte
	Linkname string
	ModTime  time.Time
}

// BuildEntry returns the attributes for a regular file owned by root.
// Executable files get mode 0755, everything else 0644.
func BuildEntry(name string, executable bool, mtime time.Time) ArchiveEntry {
	mode := modeFile
	if executable {
		mode = modeExecutable
	}
	return ArchiveEntry{
		Name:    name,
		Mode:    mode,
		Type:    tar.TypeReg,
		ModTime: mtime,
	}
}

// BuildDirEntry returns the attributes for a directory owned by root
func BuildDirEntry(name string, mtime time.Time) ArchiveEntry {
	if !strings.HasSuffix(name, "/") {
		name += "/"
	}
	return ArchiveEntry{
		Name:    name,
		Mode:    modeDir,
		Type:    tar.TypeDir,
		ModTime: mtime,
	}
}

// BuildSymlinkEntry returns the attributes for a symlink owned by root
func BuildSymlinkEntry(name, target string, mtime time.Time) ArchiveEntry {
	return ArchiveEntry{
		Name:     name,
		Mode:     modeSymlink,
		Type:     tar.TypeSymlink,
		Linkname: target,
		ModTime:  mtime,
	}
}

// Header converts the entry into a tar header of the given size
func (e ArchiveEntry) Header(size int64) *tar.Header {
	hdr := &tar.Header{
		Typeflag: e.Type,
		Name:     e.Name,
		Linkname: e.Linkname,
		Mode:     e.Mode,
		Uid:      0,
		Gid:      0,
		Uname:    rootName,
		Gname:    rootName,
		ModTime:  e.ModTime.Truncate(time.Second),
	}
	if e.Type == tar.TypeReg {
		hdr.Size = size
	}
	return hdr
}
