package cli

import (
	"context"

	"github.com/devops-csmake/debpack/internal/deb"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewCleanCmd creates the clean command
func NewCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove a built package and its members",
		Long: `Removes debian-binary, the control and data archives, _gpgorigin and
the package file named by the manifest from the result directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			return runClean(cmd.Context(), settings)
		},
	}

	addBuildFlags(cmd.Flags())

	return cmd
}

func runClean(ctx context.Context, settings *Settings) error {
	m, err := loadManifest(settings)
	if err != nil {
		return err
	}

	p, err := deb.NewPackager(&settings.Build, &m.Spec, nil, nil)
	if err != nil {
		return err
	}
	if _, err := p.ResolveMetadata(ctx); err != nil {
		return err
	}
	if err := p.Clean(); err != nil {
		return err
	}

	logrus.Infof("Cleaned %s", settings.Build.ResultDir)
	return nil
}
