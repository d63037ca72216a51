package deb

import (
	"archive/tar"
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/blakesmith/ar"
	"github.com/devops-csmake/debpack/internal/models"
	"github.com/devops-csmake/debpack/internal/signer"
	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz"
)

var testModTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
var testBuildTime = time.Date(2024, 3, 2, 8, 30, 0, 0, time.UTC)

// arMember is one member of a package read back from disk
type arMember struct {
	Name string
	Data []byte
}

// readPackage returns the ar members of the package at path
func readPackage(t *testing.T, path string) []arMember {
	t.Helper()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open package: %v", err)
	}
	defer f.Close()

	var members []arMember
	r := ar.NewReader(f)
	for {
		hdr, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Failed to read ar header: %v", err)
		}
		data, err := io.ReadAll(r)
		if err != nil {
			t.Fatalf("Failed to read ar member %s: %v", hdr.Name, err)
		}
		// GNU ar terminates names with a slash
		name := strings.TrimRight(strings.TrimSpace(hdr.Name), "/")
		members = append(members, arMember{Name: name, Data: data})
	}
	return members
}

func memberNames(members []arMember) []string {
	names := make([]string, len(members))
	for i, m := range members {
		names[i] = m.Name
	}
	return names
}

func findMember(t *testing.T, members []arMember, name string) []byte {
	t.Helper()
	for _, m := range members {
		if m.Name == name {
			return m.Data
		}
	}
	t.Fatalf("Member %s not found in %v", name, memberNames(members))
	return nil
}

// tarMember is one entry of a decompressed tar
type tarMember struct {
	Header *tar.Header
	Data   []byte
}

// readTarXZ decompresses and reads every entry of an xz compressed tar
func readTarXZ(t *testing.T, data []byte) []tarMember {
	t.Helper()

	xr, err := xz.NewReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Failed to open xz stream: %v", err)
	}
	return readTar(t, xr)
}

func readTar(t *testing.T, r io.Reader) []tarMember {
	t.Helper()

	var entries []tarMember
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Failed to read tar header: %v", err)
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			t.Fatalf("Failed to read tar entry %s: %v", hdr.Name, err)
		}
		entries = append(entries, tarMember{Header: hdr, Data: data})
	}
	return entries
}

func findTarMember(entries []tarMember, name string) (tarMember, bool) {
	for _, e := range entries {
		if e.Header.Name == name {
			return e, true
		}
	}
	return tarMember{}, false
}

// fakeSigner records everything written to it
type fakeSigner struct {
	buf    bytes.Buffer
	writes []int
	sig    []byte
	err    error
}

func (s *fakeSigner) Begin(_ context.Context) (signer.Session, error) {
	return s, nil
}

func (s *fakeSigner) Write(p []byte) (int, error) {
	s.writes = append(s.writes, len(p))
	return s.buf.Write(p)
}

func (s *fakeSigner) Digest() ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.sig, nil
}

// countingArchiver counts calls and delegates to next when set
type countingArchiver struct {
	calls   int
	members []string
	err     error
	next    Archiver
}

func (a *countingArchiver) Bundle(ctx context.Context, dir, output string, members []string) error {
	a.calls++
	a.members = append([]string(nil), members...)
	if a.err != nil {
		return a.err
	}
	if a.next != nil {
		return a.next.Bundle(ctx, dir, output, members)
	}
	return nil
}

// demoSpec returns a small package with a staged file, an inline script
// and a directory
func demoSpec(t *testing.T) *models.PackageSpec {
	t.Helper()

	stage := t.TempDir()
	readme := stage + "/README"
	if err := os.WriteFile(readme, []byte("demo readme\n"), 0644); err != nil {
		t.Fatalf("Failed to write staged file: %v", err)
	}
	if err := os.MkdirAll(stage+"/etc/demo", 0755); err != nil {
		t.Fatalf("Failed to create staged dir: %v", err)
	}

	return &models.PackageSpec{
		Product: models.ProductMetadata{
			Name:        "demo",
			Packager:    "Demo Maintainer <demo@example.com>",
			Description: "demo package",
			About:       "A longer text.\n\nSecond paragraph.",
			Primary:     "1.0",
			Classifiers: []string{"Topic :: Utilities"},
			Relations:   map[string][]string{"depends": {"Python_Six (>= 1.0)", "libc6"}},
		},
		Entries: []models.InstallEntry{
			{SourcePath: readme, ArchivePath: "usr/share/doc/demo/README"},
			{ArchivePath: "usr/bin/demo", Content: []byte("#!/bin/sh\necho demo\n"), HasContent: true, Executable: true},
			{SourcePath: stage + "/etc/demo", ArchivePath: "etc/demo"},
		},
		Copyright: []models.CopyrightBlock{
			{Rights: []models.CopyrightRight{{Years: "2024", Holder: "Demo Corp", License: "LGPL-2.1"}}},
		},
		Scripts: map[string][]string{"postinst": {"#!/bin/sh", "exit 0"}},
	}
}

func demoConfig(dir string) *models.BuildConfig {
	return &models.BuildConfig{
		ResultDir:      dir,
		PackageVersion: "1",
		Archiver:       string(ArchiverBuiltin),
		ModTime:        testModTime,
		BuildTime:      testBuildTime,
	}
}

// gunzip decompresses a gzip member read from an archive
func gunzip(t *testing.T, data []byte) []byte {
	t.Helper()
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Failed to open gzip stream: %v", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("Failed to decompress: %v", err)
	}
	return out
}
