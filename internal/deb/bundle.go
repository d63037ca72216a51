package deb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/blakesmith/ar"
	"github.com/sirupsen/logrus"
)

// Archiver combines the package members into the final ar container
type Archiver interface {
	// Bundle writes output into dir from members, which are relative to dir
	Bundle(ctx context.Context, dir, output string, members []string) error
}

// ArchiverKind selects an Archiver implementation
type ArchiverKind string

const (
	ArchiverExec    ArchiverKind = "ar"
	ArchiverBuiltin ArchiverKind = "builtin"
)

// NewArchiver returns the archiver for kind. arPath overrides the ar
// binary used by the exec archiver.
func NewArchiver(kind, arPath string, mtime time.Time) (Archiver, error) {
	switch ArchiverKind(kind) {
	case "", ArchiverExec:
		if arPath == "" {
			arPath = "ar"
		}
		return &ExecArchiver{Path: arPath}, nil
	case ArchiverBuiltin:
		return &BuiltinArchiver{ModTime: mtime}, nil
	default:
		return nil, fmt.Errorf("unsupported archiver: %s", kind)
	}
}

// ExitError reports a bundling command that exited with a non-zero status
type ExitError struct {
	Command string
	Status  int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%q exited with status %d", e.Command, e.Status)
}

// ExecArchiver runs "ar rcv" in the result directory
type ExecArchiver struct {
	Path string
}

// Bundle implements Archiver
func (a *ExecArchiver) Bundle(ctx context.Context, dir, output string, members []string) error {
	args := append([]string{"rcv", output}, members...)
	cmd := exec.CommandContext(ctx, a.Path, args...)
	cmd.Dir = dir

	out := logrus.StandardLogger().WriterLevel(logrus.DebugLevel)
	defer out.Close()
	cmd.Stdout = out
	cmd.Stderr = out

	command := a.Path + " " + strings.Join(args, " ")
	logrus.Debugf("Running %s in %s", command, dir)

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &ExitError{Command: command, Status: exitErr.ExitCode()}
		}
		return fmt.Errorf("failed to run %s: %w", command, err)
	}
	return nil
}

// BuiltinArchiver writes the ar container in process
type BuiltinArchiver struct {
	ModTime time.Time
}

// arChunkSize is even so that only the final chunk of a member can be
// odd sized, which is where the ar padding belongs
const arChunkSize = 64 * 1024

// Bundle implements Archiver
func (a *BuiltinArchiver) Bundle(_ context.Context, dir, output string, members []string) error {
	outPath := filepath.Join(dir, output)
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", outPath, err)
	}

	w := ar.NewWriter(f)
	if err := w.WriteGlobalHeader(); err != nil {
		f.Close()
		return fmt.Errorf("failed to write ar header: %w", err)
	}

	for _, member := range members {
		if err := a.addMember(w, filepath.Join(dir, member), member); err != nil {
			f.Close()
			return err
		}
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", outPath, err)
	}
	return nil
}

func (a *BuiltinArchiver) addMember(w *ar.Writer, path, name string) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	hdr := &ar.Header{
		Name:    name,
		ModTime: a.ModTime,
		Mode:    0644,
		Size:    info.Size(),
	}
	if err := w.WriteHeader(hdr); err != nil {
		return fmt.Errorf("failed to write ar header for %s: %w", name, err)
	}

	buf := make([]byte, arChunkSize)
	for {
		n, err := io.ReadFull(src, buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return fmt.Errorf("failed to write %s: %w", name, werr)
			}
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
	}
}
