package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/devops-csmake/debpack/internal/models"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Settings is the resolved command configuration
type Settings struct {
	Manifest string
	Stage    string
	Exclude  []string
	Build    models.BuildConfig
}

// addBuildFlags registers the flags shared by build and clean
func addBuildFlags(flags *pflag.FlagSet) {
	// Input/Output flags
	flags.StringP("manifest", "m", "debpack.yaml", "Package manifest")
	flags.StringP("result-dir", "o", "./result", "Directory receiving the package and its members")
	flags.String("stage", "", "Staging directory to package (overrides the manifest)")
	flags.StringSlice("exclude", nil, "Glob patterns excluded from the staging directory")

	// Debian flags
	flags.StringP("package-version", "r", "1", "Debian revision appended to the upstream version")
	flags.StringP("arch", "a", "all", "Package architecture")
	flags.String("priority", "", "Package priority (default extra)")
	flags.String("compression", "xz", "Compression of the control and data archives (xz, gz, zst)")
	flags.String("archiver", "ar", "Archiver bundling the package (ar, builtin)")
	flags.String("ar-path", "ar", "Path to the ar binary")
	flags.String("mtime", "", "Unix time stamped on data entries (default $SOURCE_DATE_EPOCH or now)")

	// Signing flags
	flags.StringP("gpg-key", "k", "", "Path to GPG private key")
	flags.StringP("gpg-passphrase", "p", "", "GPG key passphrase")
	flags.Bool("gpg-armor", false, "Write an ASCII armored _gpgorigin")
	flags.String("signer-command", "", "Command reading the package members on stdin and writing a signature")
}

// loadSettings layers flags over DEBPACK_* environment variables over the
// config file
func loadSettings(cmd *cobra.Command) (*Settings, error) {
	v := viper.New()
	v.SetEnvPrefix("debpack")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}
	if err := v.BindEnv("mtime", "DEBPACK_MTIME", "SOURCE_DATE_EPOCH"); err != nil {
		return nil, err
	}

	if cfgFile := v.GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			var nf viper.ConfigFileNotFoundError
			if !errors.As(err, &nf) {
				return nil, &models.BuildError{
					Type: models.ErrInvalidConfig,
					Err:  fmt.Errorf("config read error: %w", err),
				}
			}
		}
	}

	s := &Settings{
		Manifest: v.GetString("manifest"),
		Stage:    v.GetString("stage"),
		Exclude:  v.GetStringSlice("exclude"),
		Build: models.BuildConfig{
			ResultDir:      v.GetString("result-dir"),
			PackageVersion: v.GetString("package-version"),
			Arch:           v.GetString("arch"),
			Priority:       v.GetString("priority"),
			Compression:    v.GetString("compression"),
			Archiver:       v.GetString("archiver"),
			ArPath:         v.GetString("ar-path"),
			GPGKeyPath:     v.GetString("gpg-key"),
			GPGPassphrase:  v.GetString("gpg-passphrase"),
			GPGArmor:       v.GetBool("gpg-armor"),
			SignerCommand:  strings.Fields(v.GetString("signer-command")),
		},
	}

	if raw := strings.TrimSpace(v.GetString("mtime")); raw != "" {
		secs, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, &models.BuildError{
				Type: models.ErrInvalidConfig,
				Err:  fmt.Errorf("invalid mtime %q: %w", raw, err),
			}
		}
		s.Build.ModTime = time.Unix(secs, 0).UTC()
	}

	if err := validateSettings(s); err != nil {
		return nil, err
	}
	return s, nil
}

func validateSettings(s *Settings) error {
	if s.Manifest == "" {
		return &models.BuildError{
			Type: models.ErrInvalidConfig,
			Err:  fmt.Errorf("manifest is required"),
		}
	}

	if s.Build.ResultDir == "" {
		return &models.BuildError{
			Type: models.ErrInvalidConfig,
			Err:  fmt.Errorf("result-dir is required"),
		}
	}

	if s.Build.GPGKeyPath != "" && len(s.Build.SignerCommand) > 0 {
		return &models.BuildError{
			Type: models.ErrInvalidConfig,
			Err:  fmt.Errorf("gpg-key and signer-command are mutually exclusive"),
		}
	}

	return nil
}
