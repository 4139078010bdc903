// Package config loads optional repo-level defaults from .cargo-hold.yaml.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"go.trai.ch/cargo-hold/internal/core/domain"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// Filename is the optional per-repository configuration file, looked up
// in the working directory. Flags and CARGO_HOLD_* environment
// variables both override it.
const Filename = ".cargo-hold.yaml"

// File mirrors the yaml keys. Pointer fields distinguish "absent" from
// an explicit false/zero.
type File struct {
	TargetDir             string   `yaml:"target-dir"`
	MetadataPath          string   `yaml:"metadata-path"`
	FollowSymlinks        *bool    `yaml:"follow-symlinks"`
	RecurseSubmodules     *bool    `yaml:"recurse-submodules"`
	MaxTargetSize         string   `yaml:"max-target-size"`
	AgeThresholdDays      *uint32  `yaml:"age-threshold-days"`
	PreserveCargoBinaries []string `yaml:"preserve-cargo-binaries"`
}

// Load reads the config file from dir. A missing file yields an empty
// config; a malformed one is an invalid-argument error so a typo does
// not silently disable the file.
func Load(dir string) (*File, error) {
	path := filepath.Join(dir, Filename)
	data, err := os.ReadFile(path) //nolint:gosec // Fixed filename under the working directory
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &File{}, nil
		}
		return nil, zerr.With(zerr.Wrap(err, "failed to read config file"), "path", path)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrInvalidArgument, "failed to parse config file: "+err.Error()), "path", path)
	}

	if f.MaxTargetSize != "" {
		if _, err := domain.ParseSize(f.MaxTargetSize); err != nil {
			return nil, zerr.With(zerr.With(err, "path", path), "key", "max-target-size")
		}
	}

	return &f, nil
}
