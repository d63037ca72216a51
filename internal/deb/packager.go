package deb

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/devops-csmake/debpack/internal/models"
	"github.com/devops-csmake/debpack/internal/packager"
	"github.com/devops-csmake/debpack/internal/signer"
	"github.com/devops-csmake/debpack/internal/utils"
	"github.com/sirupsen/logrus"
)

var _ packager.Packager = (*Packager)(nil)

// Packager assembles a Debian binary package
type Packager struct {
	config      *models.BuildConfig
	spec        *models.PackageSpec
	signer      signer.Signer
	archiver    Archiver
	compression Compression
	mtime       time.Time

	bctx    *BuildContext
	data    *tarArchive
	control *tarArchive
	writer  *DataWriter
}

// NewPackager creates a Debian packager. A nil signer builds an unsigned
// package; a nil archiver is chosen from the configuration.
func NewPackager(config *models.BuildConfig, spec *models.PackageSpec, s signer.Signer, a Archiver) (*Packager, error) {
	name := spec.Product.Name

	if config.ResultDir == "" {
		return nil, models.NewBuildError(models.ErrInvalidConfig, name, fmt.Errorf("result directory is required"))
	}

	comp, err := ParseCompression(config.Compression)
	if err != nil {
		return nil, models.NewBuildError(models.ErrInvalidConfig, name, err)
	}

	now := config.BuildTime
	if now.IsZero() {
		now = time.Now()
	}
	mtime := config.ModTime
	if mtime.IsZero() {
		mtime = now
	}

	if a == nil {
		a, err = NewArchiver(config.Archiver, config.ArPath, mtime)
		if err != nil {
			return nil, models.NewBuildError(models.ErrInvalidConfig, name, err)
		}
	}

	return &Packager{
		config:      config,
		spec:        spec,
		signer:      s,
		archiver:    a,
		compression: comp,
		mtime:       mtime,
		bctx:        NewBuildContext(now),
	}, nil
}

// Format implements packager.Packager
func (p *Packager) Format() string {
	return "debian"
}

// Context returns the build context
func (p *Packager) Context() *BuildContext {
	return p.bctx
}

func (p *Packager) fail(t models.ErrorType, err error) error {
	return models.NewBuildError(t, p.bctx.Name, err)
}

// ResolveMetadata maps the product metadata onto control fields and
// computes the version and filename
func (p *Packager) ResolveMetadata(_ context.Context) (string, error) {
	if err := p.bctx.expect(StateInit); err != nil {
		return "", p.fail(models.ErrMetadata, err)
	}
	product := &p.spec.Product

	meta, err := MapProduct(product)
	if err != nil {
		return "", models.NewBuildError(models.ErrMetadata, product.Name, err)
	}
	name, _ := meta.Get(string(FieldPackage))
	p.bctx.Name = name

	if _, ok := meta.Get(string(FieldMaintainer)); !ok {
		return "", p.fail(models.ErrMetadata, fmt.Errorf("maintainer is required"))
	}
	if desc, ok := meta.Get(string(FieldDescription)); ok {
		meta.Set(string(FieldDescription), appendAbout(desc, product.About))
	} else {
		logrus.Warnf("Package %s has no description", name)
	}

	version := Version{
		Epoch:          product.Epoch,
		Primary:        product.Primary,
		PackageVersion: p.config.PackageVersion,
	}
	if err := version.Validate(); err != nil {
		return "", p.fail(models.ErrInvalidConfig, err)
	}

	arch := p.config.Arch
	if arch == "" {
		arch = defaultArch
	}
	priority := p.config.Priority
	if priority == "" {
		if existing, ok := meta.Get(string(FieldPriority)); ok {
			priority = existing
		} else {
			priority = defaultPriority
		}
	}
	meta.Set(string(FieldVersion), version.Full())
	meta.Set(string(FieldArchitecture), arch)
	meta.Set(string(FieldPriority), priority)
	// the changelog may carry its own urgency; control is always low
	meta.Set(string(FieldUrgency), defaultUrgency)

	p.bctx.Metadata = meta
	p.bctx.Version = version
	p.bctx.Arch = arch
	p.bctx.Filename = StandardFilename(name, version, arch)

	if err := p.bctx.advance(StateMetadataResolved); err != nil {
		return "", p.fail(models.ErrMetadata, err)
	}
	logrus.Debugf("Resolved %s version %s for %s", name, version.Full(), arch)

	return p.bctx.Filename, nil
}

func (p *Packager) resultPath(name string) string {
	return filepath.Join(p.config.ResultDir, name)
}

func (p *Packager) controlName() string {
	return p.compression.TarName("control")
}

func (p *Packager) dataName() string {
	return p.compression.TarName("data")
}

// Setup creates the result directory and opens the data archive
func (p *Packager) Setup(_ context.Context) error {
	if err := p.bctx.expect(StateMetadataResolved); err != nil {
		return p.fail(models.ErrFileOp, err)
	}
	if p.data != nil {
		return p.fail(models.ErrFileOp, fmt.Errorf("data archive already open"))
	}

	if err := utils.EnsureDir(p.config.ResultDir); err != nil {
		return p.fail(models.ErrFileOp, fmt.Errorf("failed to create result directory: %w", err))
	}

	data, err := createTarArchive(p.resultPath(p.dataName()), p.compression)
	if err != nil {
		return p.fail(models.ErrFileOp, err)
	}
	p.data = data

	p.bctx.Md5sums = []Md5Record{}
	p.writer, err = newDataWriter(data, p.mtime, p.bctx)
	if err != nil {
		return p.fail(models.ErrFileOp, err)
	}
	return nil
}

func (p *Packager) ready() error {
	if p.writer == nil || p.bctx.State != StateMetadataResolved {
		return fmt.Errorf("data archive is not open (state %s)", p.bctx.State)
	}
	return nil
}

// EnsureDirectory implements packager.Packager
func (p *Packager) EnsureDirectory(dir string) error {
	if err := p.ready(); err != nil {
		return p.fail(models.ErrFileOp, err)
	}
	if err := p.writer.EnsureDirectory(dir); err != nil {
		return p.fail(models.ErrFileOp, err)
	}
	return nil
}

// ComputeFileDigest implements packager.Packager
func (p *Packager) ComputeFileDigest(r io.Reader) (string, error) {
	digest, _, err := utils.MD5Reader(r)
	if err != nil {
		return "", p.fail(models.ErrFileOp, err)
	}
	return digest, nil
}

// RecordPlacedFile implements packager.Packager
func (p *Packager) RecordPlacedFile(_ context.Context, entry models.InstallEntry) error {
	if err := p.ready(); err != nil {
		return p.fail(models.ErrFileOp, err)
	}
	if err := p.writer.AddFile(entry); err != nil {
		return p.fail(models.ErrFileOp, err)
	}
	return nil
}

// Finish writes the documentation into the data archive, writes the
// control archive and debian-binary, signs when a signer is configured
// and bundles the members into the final package
func (p *Packager) Finish(ctx context.Context) (string, error) {
	if err := p.ready(); err != nil {
		return "", p.fail(models.ErrFileOp, err)
	}

	if err := p.writeDocs(); err != nil {
		return "", p.fail(models.ErrFileOp, err)
	}
	if err := p.data.Close(); err != nil {
		return "", p.fail(models.ErrFileOp, err)
	}
	if err := p.bctx.advance(StateDataWritten); err != nil {
		return "", p.fail(models.ErrFileOp, err)
	}

	if err := p.writeControl(); err != nil {
		return "", p.fail(models.ErrFileOp, err)
	}
	if err := p.bctx.advance(StateControlWritten); err != nil {
		return "", p.fail(models.ErrFileOp, err)
	}

	if err := utils.WriteFile(p.resultPath(string(PkgDebianBinary)), []byte(debianBinaryContent), 0644); err != nil {
		return "", p.fail(models.ErrFileOp, err)
	}
	p.bctx.Members = []string{string(PkgDebianBinary), p.controlName(), p.dataName()}

	if p.signer != nil {
		if err := p.sign(ctx); err != nil {
			return "", err
		}
	}

	if err := p.bundle(ctx); err != nil {
		return "", err
	}
	if err := p.bctx.advance(StateDone); err != nil {
		return "", p.fail(models.ErrBundling, err)
	}

	return p.resultPath(p.bctx.Filename), nil
}

// writeDocs places the copyright and changelog into the data archive
func (p *Packager) writeDocs() error {
	name := p.bctx.Name
	maintainer, _ := p.bctx.Metadata.Get(string(FieldMaintainer))

	header := []models.Field{
		{Key: "Format-Specification", Value: copyrightFormat},
		{Key: "Name", Value: name},
		{Key: "Maintainer", Value: maintainer},
	}

	var defaults []models.CopyrightRight
	var perPath []models.CopyrightBlock
	for _, block := range p.spec.Copyright {
		if block.Path == "" {
			defaults = append(defaults, block.Rights...)
		} else {
			perPath = append(perPath, block)
		}
	}
	if len(p.spec.DebianCopyright) > 0 {
		perPath = append(perPath, models.CopyrightBlock{Path: "debian/*", Rights: p.spec.DebianCopyright})
	}

	copyright := RenderCopyright(defaults, perPath, header)
	if err := p.writer.addContent(copyrightPath(name), copyright, false); err != nil {
		return fmt.Errorf("failed to write copyright: %w", err)
	}

	return WriteChangelog(p.writer, ChangelogEntry{
		Package:      name,
		Version:      p.bctx.Version.Full(),
		Distribution: p.spec.Changelog.Distribution,
		Urgency:      p.spec.Changelog.Urgency,
		Maintainer:   maintainer,
		Body:         p.spec.Changelog.Body,
		Date:         p.mtime,
	})
}

// writeControl writes control, maintainer scripts, shlibs and md5sums
func (p *Packager) writeControl() error {
	control, err := createTarArchive(p.resultPath(p.controlName()), p.compression)
	if err != nil {
		return err
	}
	p.control = control

	w := newControlWriter(control, p.bctx.Now, p.bctx)
	if err := w.WriteControl(p.bctx.Metadata); err != nil {
		return err
	}
	for _, script := range maintainerScripts {
		if lines, ok := p.spec.Scripts[string(script)]; ok {
			if err := w.WriteScript(script, lines); err != nil {
				return err
			}
		}
	}
	if len(p.spec.Shlibs) > 0 {
		if err := w.WriteShlibs(p.spec.Shlibs); err != nil {
			return err
		}
	}
	if err := w.WriteMd5sums(); err != nil {
		return err
	}

	return control.Close()
}

// sign streams debian-binary, the control archive and the data archive
// into the signer and stores the signature as _gpgorigin
func (p *Packager) sign(ctx context.Context) error {
	sigPath := p.resultPath(string(PkgSignature))
	if err := utils.RemoveIfExists(sigPath); err != nil {
		return p.fail(models.ErrFileOp, err)
	}

	sess, err := p.signer.Begin(ctx)
	if err != nil {
		return p.fail(models.ErrSigning, fmt.Errorf("failed to start signer: %w", err))
	}

	for _, member := range p.bctx.Members {
		if _, err := utils.StreamFile(sess, p.resultPath(member), signChunkSize); err != nil {
			_, _ = sess.Digest()
			return p.fail(models.ErrSigning, fmt.Errorf("failed to sign %s: %w", member, err))
		}
	}

	sig, err := sess.Digest()
	if err != nil {
		return p.fail(models.ErrSigning, err)
	}
	if len(sig) == 0 {
		return p.fail(models.ErrSigning, fmt.Errorf("signer returned no signature"))
	}

	if err := utils.WriteFile(sigPath, sig, 0644); err != nil {
		return p.fail(models.ErrFileOp, err)
	}
	p.bctx.Members = append(p.bctx.Members, string(PkgSignature))

	if err := p.bctx.advance(StateSigned); err != nil {
		return p.fail(models.ErrSigning, err)
	}
	logrus.Debugf("Signed %s", p.bctx.Filename)
	return nil
}

// bundle combines the members into the final package
func (p *Packager) bundle(ctx context.Context) error {
	// ar appends to an existing archive
	if err := utils.RemoveIfExists(p.resultPath(p.bctx.Filename)); err != nil {
		return p.fail(models.ErrFileOp, err)
	}

	if err := p.archiver.Bundle(ctx, p.config.ResultDir, p.bctx.Filename, p.bctx.Members); err != nil {
		return p.fail(models.ErrBundling, err)
	}
	if err := p.bctx.advance(StateBundled); err != nil {
		return p.fail(models.ErrBundling, err)
	}
	logrus.Debugf("Bundled %s", strings.Join(p.bctx.Members, ", "))
	return nil
}

// Abort closes any archive left open by a failed build. Files already
// written stay in the result directory.
func (p *Packager) Abort() {
	for _, a := range []*tarArchive{p.data, p.control} {
		if a == nil {
			continue
		}
		if err := a.Close(); err != nil {
			logrus.Debugf("Closing %s: %v", a.path, err)
		}
	}
}

// Clean removes the members and the final package from the result
// directory. Metadata must have been resolved.
func (p *Packager) Clean() error {
	if p.bctx.State < StateMetadataResolved {
		return p.fail(models.ErrMetadata, fmt.Errorf("metadata not resolved"))
	}

	files := []string{
		string(PkgDebianBinary),
		string(PkgSignature),
		p.bctx.Filename,
	}
	for _, c := range []Compression{CompressionXZ, CompressionGzip, CompressionZstd} {
		files = append(files, c.TarName("control"), c.TarName("data"))
	}

	for _, f := range files {
		path := p.resultPath(f)
		if _, err := os.Lstat(path); err != nil {
			continue
		}
		if err := utils.RemoveIfExists(path); err != nil {
			return p.fail(models.ErrFileOp, err)
		}
		logrus.Infof("Removed %s", path)
	}
	return nil
}
