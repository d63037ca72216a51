package models

import "time"

// BuildConfig contains configuration for a single package build
type BuildConfig struct {
	// Output
	ResultDir string

	// Versioning
	PackageVersion string // Debian revision appended to the upstream version

	// Debian specifics
	Arch        string // defaults to "all"
	Priority    string // defaults to "extra"
	Compression string // xz (default), gz or zst
	Archiver    string // "ar" (external tool, default) or "builtin"
	ArPath      string // path to the ar binary

	// ModTime is stamped on every data archive entry and dates the
	// generated changelog. Zero means BuildTime.
	ModTime time.Time

	// BuildTime stamps control archive entries. Zero means now.
	BuildTime time.Time

	// Signing
	GPGKeyPath    string
	GPGPassphrase string
	GPGArmor      bool
	SignerCommand []string // external signer, reads data on stdin, signature on stdout
}

// HasSigner reports whether a signer is configured
func (c *BuildConfig) HasSigner() bool {
	return c.GPGKeyPath != "" || len(c.SignerCommand) > 0
}
