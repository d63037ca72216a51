package cli

import (
	"context"
	"fmt"

	"github.com/devops-csmake/debpack/internal/deb"
	"github.com/devops-csmake/debpack/internal/models"
	"github.com/devops-csmake/debpack/internal/packager"
	"github.com/devops-csmake/debpack/internal/scanner"
	"github.com/devops-csmake/debpack/internal/signer"
	"github.com/devops-csmake/debpack/internal/utils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewBuildCmd creates the build command
func NewBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a Debian package",
		Long: `Reads the package manifest, places the staged files and the manifest's
file entries into the data archive, writes the control archive and bundles
everything into <name>_<version>-<revision>_<arch>.deb in the result
directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(cmd)
			if err != nil {
				return err
			}

			logrus.Info("Starting package build...")
			logrus.Debugf("Configuration: %+v", settings.Build)

			_, err = runBuild(cmd.Context(), settings)
			return err
		},
	}

	addBuildFlags(cmd.Flags())

	return cmd
}

// loadManifest decodes the manifest and applies the stage settings
func loadManifest(settings *Settings) (*Manifest, error) {
	m, err := decodeManifest(settings.Manifest)
	if err != nil {
		return nil, &models.BuildError{
			Type: models.ErrInvalidConfig,
			Err:  fmt.Errorf("failed to load manifest: %w", err),
		}
	}
	if settings.Stage != "" {
		m.Stage = settings.Stage
	}
	m.Exclude = append(m.Exclude, settings.Exclude...)
	return m, nil
}

func newSigner(config *models.BuildConfig) (signer.Signer, error) {
	switch {
	case config.GPGKeyPath != "":
		s, err := signer.NewGPGSigner(config.GPGKeyPath, config.GPGPassphrase, config.GPGArmor)
		if err != nil {
			return nil, &models.BuildError{
				Type: models.ErrSigning,
				Err:  fmt.Errorf("failed to initialize GPG signer: %w", err),
			}
		}
		logrus.Info("GPG signer initialized")
		return s, nil

	case len(config.SignerCommand) > 0:
		s, err := signer.NewCommandSigner(config.SignerCommand)
		if err != nil {
			return nil, &models.BuildError{
				Type: models.ErrInvalidConfig,
				Err:  fmt.Errorf("failed to initialize signer command: %w", err),
			}
		}
		logrus.Infof("Signing with %s", config.SignerCommand[0])
		return s, nil
	}

	return nil, nil
}

func runBuild(ctx context.Context, settings *Settings) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	// Step 1: Load the manifest
	m, err := loadManifest(settings)
	if err != nil {
		return "", err
	}

	// Step 2: Scan the staging directory
	var entries []models.InstallEntry
	if m.Stage != "" {
		logrus.Infof("Scanning staging directory: %s", m.Stage)
		var sc scanner.Scanner = scanner.NewFileSystemScanner(m.Exclude...)
		scanned, err := sc.Scan(ctx, m.Stage)
		if err != nil {
			return "", &models.BuildError{
				Type:    models.ErrFileOp,
				Package: m.Spec.Product.Name,
				Err:     err,
			}
		}
		logrus.Infof("Staged %d bytes", scanner.TotalSize(scanned))
		entries = scanner.InstallEntries(scanned)
	}
	entries = append(entries, m.Spec.Entries...)

	if len(entries) == 0 {
		logrus.Warn("No files to package")
	}

	// Step 3: Initialize the signer
	s, err := newSigner(&settings.Build)
	if err != nil {
		return "", err
	}

	// Step 4: Build the package
	p, err := deb.NewPackager(&settings.Build, &m.Spec, s, nil)
	if err != nil {
		return "", err
	}

	out, err := packager.Run(ctx, p, entries)
	if err != nil {
		return "", err
	}

	checksums, err := utils.CalculateChecksums(out)
	if err != nil {
		return "", &models.BuildError{
			Type:    models.ErrFileOp,
			Package: m.Spec.Product.Name,
			Err:     fmt.Errorf("failed to checksum %s: %w", out, err),
		}
	}

	logrus.Info("Package build completed successfully!")
	logrus.Infof("Package: %s", out)
	logrus.Infof("Size: %d SHA256: %s", checksums.Size, checksums.SHA256)

	return out, nil
}
