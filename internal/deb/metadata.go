package deb

import (
	"fmt"
	"regexp"
	"strings"
)

// Metadata is the ordered set of control fields of a package.
// Iteration follows insertion order; re-setting a key keeps its position.
type Metadata struct {
	keys   []string
	values map[string]string
}

// NewMetadata creates an empty Metadata
func NewMetadata() *Metadata {
	return &Metadata{values: make(map[string]string)}
}

// Set assigns value to key
func (m *Metadata) Set(key, value string) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value of key
func (m *Metadata) Get(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Keys returns the keys in insertion order
func (m *Metadata) Keys() []string {
	return append([]string(nil), m.keys...)
}

// Len returns the number of fields
func (m *Metadata) Len() int {
	return len(m.keys)
}

// Version holds the pieces that make up a Debian version
type Version struct {
	Epoch          string
	Primary        string
	PackageVersion string
}

var (
	epochPattern    = regexp.MustCompile(`^[0-9]+$`)
	upstreamPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9.+~-]*$`)
	revisionPattern = regexp.MustCompile(`^[A-Za-z0-9.+~]+$`)
)

// Validate checks the version pieces. The package version is appended
// with a hyphen, so a primary version that already ends in that suffix
// would produce a doubled revision and is rejected.
func (v Version) Validate() error {
	if v.Primary == "" {
		return fmt.Errorf("primary version is empty")
	}
	if v.PackageVersion == "" {
		return fmt.Errorf("package-version is empty")
	}
	if v.Epoch != "" && !epochPattern.MatchString(v.Epoch) {
		return fmt.Errorf("epoch %q is not numeric", v.Epoch)
	}
	if !upstreamPattern.MatchString(v.Primary) {
		return fmt.Errorf("primary version %q contains invalid characters", v.Primary)
	}
	if !revisionPattern.MatchString(v.PackageVersion) {
		return fmt.Errorf("package-version %q contains invalid characters", v.PackageVersion)
	}
	if strings.HasSuffix(v.Primary, "-"+v.PackageVersion) {
		return fmt.Errorf("primary version %q already carries package-version %q", v.Primary, v.PackageVersion)
	}
	return nil
}

// Upstream returns [epoch:]primary
func (v Version) Upstream() string {
	if v.Epoch == "" {
		return v.Primary
	}
	return v.Epoch + ":" + v.Primary
}

// Full returns the control file version, [epoch:]primary-packageversion
func (v Version) Full() string {
	return v.Upstream() + "-" + v.PackageVersion
}

// FilenameVersion returns the version used in file names, which never
// carries the epoch
func (v Version) FilenameVersion() string {
	return v.Primary + "-" + v.PackageVersion
}

// StandardFilename returns the canonical filename for the package.
// Format: {name}_{primary}-{package-version}_{arch}.deb
func StandardFilename(name string, v Version, arch string) string {
	return fmt.Sprintf("%s_%s_%s.deb", name, v.FilenameVersion(), arch)
}

// appendAbout extends a description with the product's about text as
// extended description lines. Blank lines become " ." as Debian requires.
func appendAbout(description, about string) string {
	about = strings.TrimRight(about, "\n")
	if about == "" {
		return description
	}
	lines := strings.Split(strings.ReplaceAll(about, "\n\n", "\n.\n"), "\n")
	return description + "\n " + strings.Join(lines, "\n ")
}
