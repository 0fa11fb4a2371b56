package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/quidome/sort-media/pkg/createdat"
)

// Settings holds every option a run can be configured with. The YAML
// keys mirror the command line flags.
type Settings struct {
	Move          bool            `yaml:"move"`
	DryRun        bool            `yaml:"dry_run"`
	Quiet         bool            `yaml:"quiet"`
	Shift         createdat.Shift `yaml:"shift"`
	Chmod         string          `yaml:"chmod"`
	Lowercase     bool            `yaml:"lowercase"`
	MediaOnly     bool            `yaml:"media_only"`
	FilenameDates bool            `yaml:"filename_dates"`
	SkipIdentical bool            `yaml:"skip_identical"`
	Verify        bool            `yaml:"verify"`
	KeepEmptyDirs bool            `yaml:"keep_empty_dirs"`
	Exiftool      bool            `yaml:"exiftool"`
	MaxDepth      int             `yaml:"max_depth"`
	Debug         bool            `yaml:"debug"`
}

func Defaults() Settings {
	return Settings{MaxDepth: -1}
}

// Load reads the YAML file at path over s. Keys missing from the file keep
// their current value; unknown keys are an error.
func Load(fsys afero.Fs, path string, s *Settings) error {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(s); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	return s.Validate()
}

// Validate checks values that the YAML decoder cannot.
func (s Settings) Validate() error {
	if s.MaxDepth < -1 {
		return fmt.Errorf("max_depth must be -1 or greater, got %d", s.MaxDepth)
	}
	if _, err := s.FileMode(); err != nil {
		return err
	}
	return nil
}

// FileMode parses Chmod as an octal permission. An empty Chmod returns 0,
// meaning created files keep the source permissions.
func (s Settings) FileMode() (os.FileMode, error) {
	if s.Chmod == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(s.Chmod, 8, 32)
	if err != nil || v == 0 || v > 0o777 {
		return 0, fmt.Errorf("invalid chmod %q: want an octal mode such as 644", s.Chmod)
	}
	return os.FileMode(v), nil
}
