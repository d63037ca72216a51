package deb

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/devops-csmake/debpack/internal/utils"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Compression is the compression applied to the control and data tars
type Compression string

const (
	CompressionXZ   Compression = "xz"
	CompressionGzip Compression = "gz"
	CompressionZstd Compression = "zst"
)

// ParseCompression validates a compression name. An empty name selects xz.
func ParseCompression(name string) (Compression, error) {
	switch Compression(name) {
	case "", CompressionXZ:
		return CompressionXZ, nil
	case CompressionGzip, "gzip":
		return CompressionGzip, nil
	case CompressionZstd, "zstd":
		return CompressionZstd, nil
	default:
		return "", fmt.Errorf("unsupported compression: %s", name)
	}
}

// TarName returns the member name of a compressed tar, e.g. data.tar.xz
func (c Compression) TarName(base string) string {
	return base + ".tar." + string(c)
}

// newWriter wraps w in a compressor
func (c Compression) newWriter(w io.Writer) (io.WriteCloser, error) {
	switch c {
	case CompressionGzip:
		gw, err := gzip.NewWriterLevel(w, gzip.BestCompression)
		if err != nil {
			return nil, err
		}
		return gw, nil
	case CompressionZstd:
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	default:
		return xz.NewWriter(w)
	}
}

// tarArchive is a compressed tar file on disk. The assembler owns it;
// writers only append members.
type tarArchive struct {
	path   string
	file   *os.File
	comp   io.WriteCloser
	tw     *tar.Writer
	closed bool
}

// createTarArchive creates path and opens a compressed tar stream on it
func createTarArchive(path string, c Compression) (*tarArchive, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}

	cw, err := c.newWriter(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to start %s compression: %w", c, err)
	}

	return &tarArchive{
		path: path,
		file: f,
		comp: cw,
		tw:   tar.NewWriter(cw),
	}, nil
}

// writeHeader writes a member header without a body
func (a *tarArchive) writeHeader(e ArchiveEntry) error {
	if err := a.tw.WriteHeader(e.Header(0)); err != nil {
		return fmt.Errorf("failed to write header for %s: %w", e.Name, err)
	}
	return nil
}

// writeReader writes a regular member of the given size from r and
// returns what was streamed through
func (a *tarArchive) writeReader(e ArchiveEntry, r io.Reader, size int64) (int64, error) {
	if err := a.tw.WriteHeader(e.Header(size)); err != nil {
		return 0, fmt.Errorf("failed to write header for %s: %w", e.Name, err)
	}
	n, err := io.Copy(a.tw, r)
	if err != nil {
		return n, fmt.Errorf("failed to write %s: %w", e.Name, err)
	}
	if n != size {
		return n, fmt.Errorf("short write for %s: wrote %d of %d bytes", e.Name, n, size)
	}
	return n, nil
}

// writeBytes writes a regular member holding data
func (a *tarArchive) writeBytes(e ArchiveEntry, data []byte) error {
	_, err := a.writeReader(e, bytes.NewReader(data), int64(len(data)))
	return err
}

// Close flushes the tar and compression streams and closes the file.
// Calling Close twice is a no-op.
func (a *tarArchive) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true

	if err := a.tw.Close(); err != nil {
		a.comp.Close()
		a.file.Close()
		return fmt.Errorf("failed to finish tar %s: %w", a.path, err)
	}
	if err := a.comp.Close(); err != nil {
		a.file.Close()
		return fmt.Errorf("failed to finish compression of %s: %w", a.path, err)
	}
	if err := a.file.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", a.path, err)
	}
	return nil
}

// writeHashed writes a regular member from r while hashing it, so the
// content is read only once
func (a *tarArchive) writeHashed(e ArchiveEntry, r io.Reader, size int64) (string, error) {
	if err := a.tw.WriteHeader(e.Header(size)); err != nil {
		return "", fmt.Errorf("failed to write header for %s: %w", e.Name, err)
	}
	digest, n, err := utils.MD5Reader(io.TeeReader(r, a.tw))
	if err != nil {
		return "", fmt.Errorf("failed to write %s: %w", e.Name, err)
	}
	if n != size {
		return "", fmt.Errorf("short write for %s: wrote %d of %d bytes", e.Name, n, size)
	}
	return digest, nil
}
