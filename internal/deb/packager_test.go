package deb

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/devops-csmake/debpack/internal/models"
	"github.com/devops-csmake/debpack/internal/packager"
	"github.com/devops-csmake/debpack/internal/signer"
	"github.com/devops-csmake/debpack/internal/utils"
	"github.com/google/go-cmp/cmp"
)

func buildDemo(t *testing.T, dir string, s *fakeSigner, a Archiver) (string, error) {
	t.Helper()

	spec := demoSpec(t)
	p, err := NewPackager(demoConfig(dir), spec, nilSafe(s), a)
	if err != nil {
		t.Fatalf("NewPackager failed: %v", err)
	}
	return packager.Run(context.Background(), p, spec.Entries)
}

// nilSafe avoids handing a typed nil to the Signer interface
func nilSafe(s *fakeSigner) signer.Signer {
	if s == nil {
		return nil
	}
	return s
}

func TestBuildUnsignedPackage(t *testing.T) {
	dir := t.TempDir()

	out, err := buildDemo(t, dir, nil, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if filepath.Base(out) != "demo_1.0-1_all.deb" {
		t.Errorf("Expected demo_1.0-1_all.deb, got %s", filepath.Base(out))
	}
	if _, err := os.Stat(filepath.Join(dir, "_gpgorigin")); !os.IsNotExist(err) {
		t.Errorf("_gpgorigin should not exist for an unsigned package")
	}

	members := readPackage(t, out)
	want := []string{"debian-binary", "control.tar.xz", "data.tar.xz"}
	if diff := cmp.Diff(want, memberNames(members)); diff != "" {
		t.Errorf("Member order mismatch (-want +got):\n%s", diff)
	}
	if got := string(findMember(t, members, "debian-binary")); got != "2.0\n" {
		t.Errorf("debian-binary = %q", got)
	}

	control := readTarXZ(t, findMember(t, members, "control.tar.xz"))
	cf, ok := findTarMember(control, "./control")
	if !ok {
		t.Fatalf("control missing from control archive")
	}
	wantControl := `Package: demo
Maintainer: Demo Maintainer <demo@example.com>
Description: demo package
 A longer text.
 .
 Second paragraph.
Depends: python-six (>= 1.0), libc6
Section: utils
Version: 1.0-1
Architecture: all
Priority: extra
Urgency: low
`
	if diff := cmp.Diff(wantControl, string(cf.Data)); diff != "" {
		t.Errorf("control mismatch (-want +got):\n%s", diff)
	}

	postinst, ok := findTarMember(control, "./postinst")
	if !ok {
		t.Fatalf("postinst missing from control archive")
	}
	if postinst.Header.Mode != 0755 {
		t.Errorf("postinst mode = %o, want 755", postinst.Header.Mode)
	}
	if !postinst.Header.ModTime.Equal(testBuildTime) {
		t.Errorf("postinst mtime = %v, want build time", postinst.Header.ModTime)
	}

	// md5sums comes last
	if last := control[len(control)-1].Header.Name; last != "./md5sums" {
		t.Errorf("Last control member = %s, want ./md5sums", last)
	}
}

func TestDataArchiveEntries(t *testing.T) {
	dir := t.TempDir()

	out, err := buildDemo(t, dir, nil, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	members := readPackage(t, out)
	data := readTarXZ(t, findMember(t, members, "data.tar.xz"))

	for _, e := range data {
		if e.Header.Uid != 0 || e.Header.Gid != 0 || e.Header.Uname != "root" || e.Header.Gname != "root" {
			t.Errorf("%s is not owned by root: %d/%d %s/%s", e.Header.Name,
				e.Header.Uid, e.Header.Gid, e.Header.Uname, e.Header.Gname)
		}
		if !e.Header.ModTime.Equal(testModTime) {
			t.Errorf("%s mtime = %v, want %v", e.Header.Name, e.Header.ModTime, testModTime)
		}
	}

	bin, ok := findTarMember(data, "./usr/bin/demo")
	if !ok {
		t.Fatalf("usr/bin/demo missing from data archive")
	}
	if bin.Header.Mode != 0755 {
		t.Errorf("usr/bin/demo mode = %o, want 755", bin.Header.Mode)
	}
	readme, ok := findTarMember(data, "./usr/share/doc/demo/README")
	if !ok {
		t.Fatalf("README missing from data archive")
	}
	if readme.Header.Mode != 0644 {
		t.Errorf("README mode = %o, want 644", readme.Header.Mode)
	}

	// parents are emitted once, before their children
	seen := make(map[string]int)
	for i, e := range data {
		seen[e.Header.Name]++
		if seen[e.Header.Name] > 1 {
			t.Errorf("%s written twice", e.Header.Name)
		}
		if i == 0 && e.Header.Name != "./" {
			t.Errorf("First data member = %s, want ./", e.Header.Name)
		}
	}
	for _, d := range []string{"./usr/", "./usr/bin/", "./usr/share/doc/demo/", "./etc/", "./etc/demo/"} {
		if seen[d] != 1 {
			t.Errorf("Directory %s missing from data archive", d)
		}
	}

	changelog, ok := findTarMember(data, "./usr/share/doc/demo/changelog.Debian.gz")
	if !ok {
		t.Fatalf("changelog missing from data archive")
	}
	if len(changelog.Data) < 8 {
		t.Fatalf("changelog too short: %d bytes", len(changelog.Data))
	}
	// MTIME lives in bytes 4..8 of the gzip header
	if mtime := binary.LittleEndian.Uint32(changelog.Data[4:8]); mtime != 0 {
		t.Errorf("changelog gzip mtime = %d, want 0", mtime)
	}
	plain := gunzip(t, changelog.Data)
	wantChangelog := "demo (1.0-1) experimental; urgency=low\n\n  * Initial release\n\n" +
		" -- Demo Maintainer <demo@example.com>  Fri, 01 Mar 2024 12:00:00 +0000\n\n"
	if diff := cmp.Diff(wantChangelog, string(plain)); diff != "" {
		t.Errorf("changelog mismatch (-want +got):\n%s", diff)
	}
}

func TestMd5sumsMatchDataMembers(t *testing.T) {
	dir := t.TempDir()

	out, err := buildDemo(t, dir, nil, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	members := readPackage(t, out)
	control := readTarXZ(t, findMember(t, members, "control.tar.xz"))
	data := readTarXZ(t, findMember(t, members, "data.tar.xz"))

	sums, ok := findTarMember(control, "./md5sums")
	if !ok {
		t.Fatalf("md5sums missing from control archive")
	}
	if !bytes.HasSuffix(sums.Data, []byte("\n")) {
		t.Errorf("md5sums must end with a newline")
	}

	var paths []string
	for _, line := range strings.Split(strings.TrimSuffix(string(sums.Data), "\n"), "\n") {
		digest, path, ok := strings.Cut(line, "  ")
		if !ok {
			t.Fatalf("Malformed md5sums line %q", line)
		}
		paths = append(paths, path)

		entry, found := findTarMember(data, "./"+path)
		if !found {
			t.Errorf("md5sums lists %s which is not in the data archive", path)
			continue
		}
		if entry.Header.Typeflag == '5' {
			t.Errorf("md5sums lists directory %s", path)
		}
		if got := utils.MD5Bytes(entry.Data); got != digest {
			t.Errorf("%s: md5sums has %s, content hashes to %s", path, digest, got)
		}
	}

	want := []string{
		"usr/share/doc/demo/README",
		"usr/bin/demo",
		"usr/share/doc/demo/copyright",
		"usr/share/doc/demo/changelog.Debian.gz",
	}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Errorf("md5sums paths mismatch (-want +got):\n%s", diff)
	}
}

func TestControlIsDeterministic(t *testing.T) {
	first, err := buildDemo(t, t.TempDir(), nil, nil)
	if err != nil {
		t.Fatalf("First build failed: %v", err)
	}
	second, err := buildDemo(t, t.TempDir(), nil, nil)
	if err != nil {
		t.Fatalf("Second build failed: %v", err)
	}

	a := readTarXZ(t, findMember(t, readPackage(t, first), "control.tar.xz"))
	b := readTarXZ(t, findMember(t, readPackage(t, second), "control.tar.xz"))

	ca, _ := findTarMember(a, "./control")
	cb, _ := findTarMember(b, "./control")
	if !bytes.Equal(ca.Data, cb.Data) {
		t.Errorf("control differs between identical builds:\n%s\n---\n%s", ca.Data, cb.Data)
	}
}

func TestSignedPackage(t *testing.T) {
	dir := t.TempDir()
	s := &fakeSigner{sig: []byte("signature")}

	out, err := buildDemo(t, dir, s, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	members := readPackage(t, out)
	want := []string{"debian-binary", "control.tar.xz", "data.tar.xz", "_gpgorigin"}
	if diff := cmp.Diff(want, memberNames(members)); diff != "" {
		t.Errorf("Member order mismatch (-want +got):\n%s", diff)
	}
	if got := string(findMember(t, members, "_gpgorigin")); got != "signature" {
		t.Errorf("_gpgorigin = %q, want the signer output", got)
	}

	// the signer saw the three members concatenated, in order
	var signed bytes.Buffer
	for _, m := range members[:3] {
		signed.Write(m.Data)
	}
	if !bytes.Equal(signed.Bytes(), s.buf.Bytes()) {
		t.Errorf("Signed content does not match debian-binary + control + data")
	}
	for _, n := range s.writes {
		if n > signChunkSize {
			t.Errorf("Signer received a %d byte write, larger than %d", n, signChunkSize)
		}
	}
}

func TestFailingSignerPreventsBundling(t *testing.T) {
	dir := t.TempDir()
	s := &fakeSigner{err: errors.New("no key")}
	a := &countingArchiver{}

	_, err := buildDemo(t, dir, s, a)
	if err == nil {
		t.Fatalf("Expected signing failure")
	}
	if !models.IsType(err, models.ErrSigning) {
		t.Errorf("Expected a signing error, got %v", err)
	}
	if a.calls != 0 {
		t.Errorf("Archiver called %d times after a signing failure", a.calls)
	}
	if _, err := os.Stat(filepath.Join(dir, "_gpgorigin")); !os.IsNotExist(err) {
		t.Errorf("_gpgorigin must not exist after a signing failure")
	}
}

func TestEmptySignatureIsFailure(t *testing.T) {
	dir := t.TempDir()
	a := &countingArchiver{}

	_, err := buildDemo(t, dir, &fakeSigner{}, a)
	if !models.IsType(err, models.ErrSigning) {
		t.Fatalf("Expected a signing error, got %v", err)
	}
	if a.calls != 0 {
		t.Errorf("Archiver called after an empty signature")
	}
}

func TestBundlingFailureKeepsMembers(t *testing.T) {
	dir := t.TempDir()
	a := &countingArchiver{err: &ExitError{Command: "ar rcv demo_1.0-1_all.deb", Status: 1}}

	_, err := buildDemo(t, dir, nil, a)
	if !models.IsType(err, models.ErrBundling) {
		t.Fatalf("Expected a bundling error, got %v", err)
	}
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Status != 1 {
		t.Errorf("Expected the exit status to be reported, got %v", err)
	}

	for _, name := range []string{"debian-binary", "control.tar.xz", "data.tar.xz"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s should remain after a bundling failure: %v", name, err)
		}
	}
	if diff := cmp.Diff([]string{"debian-binary", "control.tar.xz", "data.tar.xz"}, a.members); diff != "" {
		t.Errorf("Archiver members mismatch (-want +got):\n%s", diff)
	}
}

func TestExecArchiver(t *testing.T) {
	if _, err := exec.LookPath("ar"); err != nil {
		t.Skip("ar not available")
	}
	dir := t.TempDir()

	out, err := buildDemo(t, dir, nil, &ExecArchiver{Path: "ar"})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	members := readPackage(t, out)
	want := []string{"debian-binary", "control.tar.xz", "data.tar.xz"}
	if diff := cmp.Diff(want, memberNames(members)); diff != "" {
		t.Errorf("Member order mismatch (-want +got):\n%s", diff)
	}
}

func TestExecArchiverFailure(t *testing.T) {
	if _, err := exec.LookPath("false"); err != nil {
		t.Skip("false not available")
	}

	a := &ExecArchiver{Path: "false"}
	err := a.Bundle(context.Background(), t.TempDir(), "out.deb", []string{"debian-binary"})

	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("Expected ExitError, got %v", err)
	}
	if exitErr.Status == 0 || !strings.HasPrefix(exitErr.Command, "false rcv out.deb") {
		t.Errorf("Unexpected exit error: %+v", exitErr)
	}
}

func TestInvalidVersions(t *testing.T) {
	tests := []struct {
		name    string
		primary string
		pkgver  string
	}{
		{"double suffix", "1.0-1", "1"},
		{"hyphen in package version", "1.0", "1-2"},
		{"empty package version", "1.0", ""},
		{"empty primary", "", "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := demoSpec(t)
			spec.Product.Primary = tt.primary
			cfg := demoConfig(t.TempDir())
			cfg.PackageVersion = tt.pkgver

			p, err := NewPackager(cfg, spec, nil, nil)
			if err != nil {
				t.Fatalf("NewPackager failed: %v", err)
			}
			_, err = p.ResolveMetadata(context.Background())
			if !models.IsType(err, models.ErrInvalidConfig) {
				t.Errorf("Expected a configuration error, got %v", err)
			}
		})
	}
}

func TestEpochInVersionNotFilename(t *testing.T) {
	spec := demoSpec(t)
	spec.Product.Epoch = "2"
	cfg := demoConfig(t.TempDir())
	cfg.Arch = "amd64"

	p, err := NewPackager(cfg, spec, nil, nil)
	if err != nil {
		t.Fatalf("NewPackager failed: %v", err)
	}
	filename, err := p.ResolveMetadata(context.Background())
	if err != nil {
		t.Fatalf("ResolveMetadata failed: %v", err)
	}
	if filename != "demo_1.0-1_amd64.deb" {
		t.Errorf("filename = %s", filename)
	}
	if v, _ := p.Context().Metadata.Get("Version"); v != "2:1.0-1" {
		t.Errorf("Version = %s, want 2:1.0-1", v)
	}
}

func TestMissingResultDir(t *testing.T) {
	cfg := demoConfig("")
	_, err := NewPackager(cfg, demoSpec(t), nil, nil)
	if !models.IsType(err, models.ErrInvalidConfig) {
		t.Errorf("Expected a configuration error, got %v", err)
	}
}

func TestOutOfOrderPhases(t *testing.T) {
	p, err := NewPackager(demoConfig(t.TempDir()), demoSpec(t), nil, nil)
	if err != nil {
		t.Fatalf("NewPackager failed: %v", err)
	}

	if err := p.Setup(context.Background()); err == nil {
		t.Errorf("Setup before ResolveMetadata should fail")
	}
	if _, err := p.Finish(context.Background()); err == nil {
		t.Errorf("Finish before Setup should fail")
	}
	if p.Context().State != StateInit {
		t.Errorf("State = %s, want INIT", p.Context().State)
	}
}

func TestCompressionVariants(t *testing.T) {
	for _, comp := range []Compression{CompressionGzip, CompressionZstd} {
		t.Run(string(comp), func(t *testing.T) {
			dir := t.TempDir()
			spec := demoSpec(t)
			cfg := demoConfig(dir)
			cfg.Compression = string(comp)

			p, err := NewPackager(cfg, spec, nil, nil)
			if err != nil {
				t.Fatalf("NewPackager failed: %v", err)
			}
			out, err := packager.Run(context.Background(), p, spec.Entries)
			if err != nil {
				t.Fatalf("Build failed: %v", err)
			}

			want := []string{"debian-binary", "control.tar." + string(comp), "data.tar." + string(comp)}
			if diff := cmp.Diff(want, memberNames(readPackage(t, out))); diff != "" {
				t.Errorf("Member order mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestClean(t *testing.T) {
	dir := t.TempDir()
	if _, err := buildDemo(t, dir, &fakeSigner{sig: []byte("sig")}, nil); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	p, err := NewPackager(demoConfig(dir), demoSpec(t), nil, nil)
	if err != nil {
		t.Fatalf("NewPackager failed: %v", err)
	}
	if _, err := p.ResolveMetadata(context.Background()); err != nil {
		t.Fatalf("ResolveMetadata failed: %v", err)
	}
	if err := p.Clean(); err != nil {
		t.Fatalf("Clean failed: %v", err)
	}

	left, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to read result dir: %v", err)
	}
	if len(left) != 0 {
		t.Errorf("Clean left %d files behind", len(left))
	}
}

// TestDpkgDebAcceptsPackage checks the package with the real Debian tooling
func TestDpkgDebAcceptsPackage(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping dpkg-deb check in short mode")
	}
	if _, err := exec.LookPath("dpkg-deb"); err != nil {
		t.Skip("dpkg-deb not available")
	}

	out, err := buildDemo(t, t.TempDir(), nil, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	info, err := exec.Command("dpkg-deb", "--field", out, "Package", "Version").CombinedOutput()
	if err != nil {
		t.Fatalf("dpkg-deb --field failed: %v\n%s", err, info)
	}
	if want := "Package: demo\nVersion: 1.0-1\n"; string(info) != want {
		t.Errorf("dpkg-deb fields = %q, want %q", info, want)
	}

	contents, err := exec.Command("dpkg-deb", "--contents", out).CombinedOutput()
	if err != nil {
		t.Fatalf("dpkg-deb --contents failed: %v\n%s", err, contents)
	}
	if !strings.Contains(string(contents), "./usr/bin/demo") {
		t.Errorf("dpkg-deb does not list usr/bin/demo:\n%s", contents)
	}
}

func TestChangelogUrgencyKeepsControlLow(t *testing.T) {
	dir := t.TempDir()

	spec := demoSpec(t)
	spec.Changelog.Urgency = "high"
	p, err := NewPackager(demoConfig(dir), spec, nil, nil)
	if err != nil {
		t.Fatalf("NewPackager failed: %v", err)
	}
	out, err := packager.Run(context.Background(), p, spec.Entries)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	members := readPackage(t, out)
	control := readTarXZ(t, findMember(t, members, "control.tar.xz"))
	cf, ok := findTarMember(control, "./control")
	if !ok {
		t.Fatalf("control missing from control archive")
	}
	if !strings.Contains(string(cf.Data), "\nUrgency: low\n") {
		t.Errorf("control urgency is not low:\n%s", cf.Data)
	}

	data := readTarXZ(t, findMember(t, members, "data.tar.xz"))
	changelog, ok := findTarMember(data, "./usr/share/doc/demo/changelog.Debian.gz")
	if !ok {
		t.Fatalf("changelog missing from data archive")
	}
	if plain := string(gunzip(t, changelog.Data)); !strings.Contains(plain, "; urgency=high\n") {
		t.Errorf("changelog urgency not kept:\n%s", plain)
	}
}
