package deb

import (
	"fmt"
	"strings"
	"time"

	"github.com/devops-csmake/debpack/internal/utils"
)

// ControlWriter renders control members into the control archive
type ControlWriter struct {
	archive *tarArchive
	now     time.Time
	bctx    *BuildContext
}

// newControlWriter returns a writer stamping members with the build time
func newControlWriter(archive *tarArchive, now time.Time, bctx *BuildContext) *ControlWriter {
	return &ControlWriter{archive: archive, now: now, bctx: bctx}
}

// RenderControl renders the control file in field insertion order.
// Internal fields are skipped.
func RenderControl(meta *Metadata) []byte {
	var b strings.Builder
	for _, key := range meta.Keys() {
		if strings.HasPrefix(key, internalFieldPrefix) {
			continue
		}
		value, _ := meta.Get(key)
		fmt.Fprintf(&b, "%s: %s\n", key, value)
	}
	return []byte(b.String())
}

// RenderMd5sums renders md5sums lines in record order
func RenderMd5sums(records []Md5Record) []byte {
	if len(records) == 0 {
		return nil
	}
	lines := make([]string, len(records))
	for i, r := range records {
		lines[i] = fmt.Sprintf("%s  %s", r.Digest, r.Path)
	}
	return []byte(strings.Join(lines, "\n") + "\n")
}

func (w *ControlWriter) write(name ControlFile, data []byte, executable bool) error {
	e := BuildEntry(memberName(string(name)), executable, w.now)
	return w.archive.writeBytes(e, data)
}

// WriteControl writes the control member
func (w *ControlWriter) WriteControl(meta *Metadata) error {
	for _, required := range []ControlField{FieldPackage, FieldVersion, FieldArchitecture} {
		if _, ok := meta.Get(string(required)); !ok {
			return fmt.Errorf("control is missing %s", required)
		}
	}
	return w.write(FileControl, RenderControl(meta), false)
}

// WriteScript writes a maintainer script with mode 0755
func (w *ControlWriter) WriteScript(name ControlFile, lines []string) error {
	if !isMaintainerScript(name) {
		return fmt.Errorf("unknown maintainer script: %s", name)
	}
	return w.write(name, []byte(strings.Join(lines, "\n")), true)
}

// WriteShlibs writes the shlibs member
func (w *ControlWriter) WriteShlibs(lines []string) error {
	return w.write(FileShlibs, []byte(strings.Join(lines, "\n")), false)
}

// WriteMd5sums writes the md5sums member. It must come after every data
// member has been placed and may only be written once.
func (w *ControlWriter) WriteMd5sums() error {
	if w.bctx.md5sumsWritten {
		return fmt.Errorf("md5sums already written")
	}
	if w.bctx.State < StateDataWritten {
		return fmt.Errorf("md5sums requested before the data archive was closed")
	}
	if err := w.write(FileMd5sums, RenderMd5sums(w.bctx.Md5sums), false); err != nil {
		return err
	}
	w.bctx.md5sumsWritten = true
	return nil
}

func isMaintainerScript(name ControlFile) bool {
	for _, s := range maintainerScripts {
		if s == name {
			return true
		}
	}
	return false
}

// ChangelogEntry is one changelog.Debian stanza
type ChangelogEntry struct {
	Package      string
	Version      string
	Distribution string
	Urgency      string
	Maintainer   string
	Body         []string
	Date         time.Time
}

// RenderChangelog renders a changelog stanza
func RenderChangelog(e ChangelogEntry) []byte {
	distribution := e.Distribution
	if distribution == "" {
		distribution = defaultDistribution
	}
	urgency := e.Urgency
	if urgency == "" {
		urgency = defaultUrgency
	}
	body := strings.Join(e.Body, "\n")
	if len(e.Body) == 0 {
		body = defaultChangeBody
	}

	return []byte(fmt.Sprintf("%s (%s) %s; urgency=%s\n\n%s\n\n -- %s  %s\n\n",
		e.Package, e.Version, distribution, urgency,
		body, e.Maintainer, e.Date.Format(time.RFC1123Z)))
}

// changelogPath returns where the changelog lives in the data archive
func changelogPath(pkg string) string {
	return "usr/share/doc/" + pkg + "/changelog.Debian.gz"
}

// copyrightPath returns where the copyright lives in the data archive
func copyrightPath(pkg string) string {
	return "usr/share/doc/" + pkg + "/copyright"
}

// WriteChangelog compresses the changelog with a zero gzip timestamp and
// places it in the data archive, where it is hashed like any other file
func WriteChangelog(data *DataWriter, e ChangelogEntry) error {
	compressed, err := utils.GzipCompress(RenderChangelog(e))
	if err != nil {
		return fmt.Errorf("failed to compress changelog: %w", err)
	}
	return data.addContent(changelogPath(e.Package), compressed, false)
}
