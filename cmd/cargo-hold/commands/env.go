package commands

import (
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.trai.ch/cargo-hold/internal/adapters/config"
	"go.trai.ch/cargo-hold/internal/core/domain"
	"go.trai.ch/zerr"
)

// envPrefix is prepended to the upper-snake form of every long flag:
// --max-target-size becomes CARGO_HOLD_MAX_TARGET_SIZE.
const envPrefix = "CARGO_HOLD_"

// applyEnvironment fills flags not set on the command line from their
// environment variables. Precedence: flags > environment > config file.
func applyEnvironment(cmd *cobra.Command) error {
	var firstErr error

	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed || f.Name == "help" || f.Name == "version" {
			return
		}
		value, ok := os.LookupEnv(envPrefix + strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_")))
		if !ok {
			return
		}
		if err := f.Value.Set(value); err != nil {
			if firstErr == nil {
				firstErr = zerr.With(zerr.With(zerr.Wrap(domain.ErrInvalidArgument, err.Error()),
					"flag", f.Name), "value", value)
			}
			return
		}
		f.Changed = true
	})

	return firstErr
}

// applyConfigFile fills flags still at their defaults from the
// optional .cargo-hold.yaml.
func applyConfigFile(cmd *cobra.Command, cfg *config.File) error {
	if cfg == nil {
		return nil
	}

	values := map[string]string{}
	if cfg.TargetDir != "" {
		values["target-dir"] = cfg.TargetDir
	}
	if cfg.MetadataPath != "" {
		values["metadata-path"] = cfg.MetadataPath
	}
	if cfg.FollowSymlinks != nil {
		values["follow-symlinks"] = strconv.FormatBool(*cfg.FollowSymlinks)
	}
	if cfg.RecurseSubmodules != nil {
		values["recurse-submodules"] = strconv.FormatBool(*cfg.RecurseSubmodules)
	}
	if cfg.MaxTargetSize != "" {
		values["max-target-size"] = cfg.MaxTargetSize
	}
	if cfg.AgeThresholdDays != nil {
		values["age-threshold-days"] = strconv.FormatUint(uint64(*cfg.AgeThresholdDays), 10)
	}
	if len(cfg.PreserveCargoBinaries) > 0 {
		values["preserve-cargo-binaries"] = strings.Join(cfg.PreserveCargoBinaries, ",")
	}

	var firstErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			return
		}
		value, ok := values[f.Name]
		if !ok {
			return
		}
		if err := f.Value.Set(value); err != nil && firstErr == nil {
			firstErr = zerr.With(zerr.With(zerr.Wrap(domain.ErrInvalidArgument, err.Error()),
				"flag", f.Name), "value", value)
		}
	})

	return firstErr
}
