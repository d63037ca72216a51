package deb

// PackageFile is a member of the outer ar container
type PackageFile string

const (
	PkgDebianBinary PackageFile = "debian-binary"
	PkgSignature    PackageFile = "_gpgorigin"
)

// ControlFile is a member of the control archive
type ControlFile string

const (
	FileControl  ControlFile = "control"
	FileMd5sums  ControlFile = "md5sums"
	FilePreinst  ControlFile = "preinst"
	FilePostinst ControlFile = "postinst"
	FilePrerm    ControlFile = "prerm"
	FilePostrm   ControlFile = "postrm"
	FileShlibs   ControlFile = "shlibs"
)

// maintainerScripts lists the scripts in the order they are written
var maintainerScripts = []ControlFile{FilePreinst, FilePostinst, FilePrerm, FilePostrm}

// ControlField is a field of the control file
type ControlField string

const (
	FieldPackage      ControlField = "Package"
	FieldVersion      ControlField = "Version"
	FieldArchitecture ControlField = "Architecture"
	FieldMaintainer   ControlField = "Maintainer"
	FieldDescription  ControlField = "Description"
	FieldSection      ControlField = "Section"
	FieldPriority     ControlField = "Priority"
	FieldUrgency      ControlField = "Urgency"
	FieldDepends      ControlField = "Depends"
	FieldPreDepends   ControlField = "Pre-Depends"
	FieldRecommends   ControlField = "Recommends"
	FieldSuggests     ControlField = "Suggests"
	FieldEnhances     ControlField = "Enhances"
	FieldBreaks       ControlField = "Breaks"
	FieldConflicts    ControlField = "Conflicts"
	FieldProvides     ControlField = "Provides"
	FieldReplaces     ControlField = "Replaces"
	FieldPythonLib    ControlField = "**python-lib"
)

const (
	debianBinaryContent = "2.0\n"

	// internalFieldPrefix marks metadata that is never written to control
	internalFieldPrefix = "**"

	defaultArch         = "all"
	defaultPriority     = "extra"
	defaultUrgency      = "low"
	defaultDistribution = "experimental"
	defaultChangeBody   = "  * Initial release"

	copyrightFormat = "http://svn.debian.org/wsvn/dep/web/deps/dep5.mdwn?op=file&rev=135"

	// signChunkSize is the read size used when feeding the signer
	signChunkSize = 10240
)
