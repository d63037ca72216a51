package models

// InstallEntry is one staged item to place into the data archive.
// Exactly one of SourcePath or Content is normally set; when both are
// empty the entry is skipped with a warning.
type InstallEntry struct {
	// SourcePath is a file, directory or symlink on the build host
	SourcePath string
	// ArchivePath is the path inside the package, relative to the root
	ArchivePath string
	// Content is inline file content used when SourcePath is empty
	Content []byte
	// HasContent marks Content as set, so empty inline files are kept
	HasContent bool
	// Executable forces mode 0755 for inline content
	Executable bool
}

// CopyrightRight is one copyright holder record
type CopyrightRight struct {
	Years      string
	Holder     string
	License    string
	Disclaimer string
}

// CopyrightBlock groups rights that apply to the files matched by Path.
// An empty Path marks the default block.
type CopyrightBlock struct {
	Path   string
	Rights []CopyrightRight
}

// ProductMetadata holds the format-neutral metadata of the product being
// packaged, before it is mapped onto Debian control fields
type ProductMetadata struct {
	Name        string
	Packager    string
	Description string
	About       string
	Epoch       string
	Primary     string
	Classifiers []string

	// Relations keyed by metadata name (depends, recommends, ...)
	Relations map[string][]string

	// Fields are extra control fields written after the mapped ones,
	// in the given order
	Fields []Field
}

// Field is a single ordered key/value pair
type Field struct {
	Key   string
	Value string
}

// Changelog describes the changelog.Debian entry
type Changelog struct {
	Distribution string
	Urgency      string
	Body         []string
}

// PackageSpec is everything a build needs to know about one package,
// as loaded from a manifest
type PackageSpec struct {
	Product ProductMetadata

	// Entries are placed into the data archive in order
	Entries []InstallEntry

	// Copyright holds the default block (empty Path) and per-path blocks
	Copyright []CopyrightBlock

	// DebianCopyright covers the packaging itself (Files: debian/*)
	DebianCopyright []CopyrightRight

	// Scripts maps maintainer script names (preinst, postinst, prerm,
	// postrm) to their lines
	Scripts map[string][]string

	Shlibs    []string
	Changelog Changelog
}
