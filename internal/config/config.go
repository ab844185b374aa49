// Package config is for run-wide settings that are unmarshalled from Viper:
// ~/.vibe-str.yaml, VIBESTR_* environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/viper"
)

// Setting keys
const (
	KeyProfiles     = "profiles"
	KeyMixtures     = "mixtures"
	KeySampleColumn = "sample-column"
	KeyWorkers      = "workers"
	KeyOutputDir    = "output-dir"
	KeyOutputSuffix = "output-suffix"
	KeyDB           = "db"
	KeySkipCurrent  = "skip-current"
	KeyVerbose      = "verbose"
)

// Keys lists every setting in the order `config` documents them.
var Keys = []string{
	KeyProfiles, KeyMixtures, KeySampleColumn, KeyWorkers,
	KeyOutputDir, KeyOutputSuffix, KeyDB, KeySkipCurrent, KeyVerbose,
}

// IsKey reports whether key names a setting.
func IsKey(key string) bool {
	return slices.Contains(Keys, key)
}

// DefaultOutputSuffix is appended to the report stem to name the output file.
const DefaultOutputSuffix = "_newoutput.tsv"

// Config is the root-level settings struct
type Config struct {
	// reference profile table
	Profiles string `mapstructure:"profiles"`

	// mixture definition table, optional
	Mixtures string `mapstructure:"mixtures"`

	// report column identifying the sample of each peak
	SampleColumn string `mapstructure:"sample-column"`

	// samples classified concurrently; 0 means one per CPU
	Workers int `mapstructure:"workers"`

	// where classified reports are written; empty means next to the input
	OutputDir string `mapstructure:"output-dir"`

	OutputSuffix string `mapstructure:"output-suffix"`

	// DuckDB database receiving the classified calls, optional
	DB string `mapstructure:"db"`

	// skip reports already stored in DB with the same size and mtime
	SkipCurrent bool `mapstructure:"skip-current"`

	Verbose bool `mapstructure:"verbose"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeySampleColumn, "Sample Name")
	v.SetDefault(KeyOutputSuffix, DefaultOutputSuffix)
	v.SetDefault(KeyWorkers, 0)
}

// Load decodes the settings held by v.
func Load(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if c.OutputSuffix == "" {
		c.OutputSuffix = DefaultOutputSuffix
	}
	return c, nil
}

// ErrNoProfiles is returned when no reference profile table is configured.
var ErrNoProfiles = errors.New("no reference profile table configured (--profiles or profiles in ~/.vibe-str.yaml)")

// Validate checks the settings needed for classification.
func (c Config) Validate() error {
	if c.Profiles == "" {
		return ErrNoProfiles
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	return nil
}

// OutputPath returns the classified report path for an input report:
// the input stem (without a .gz suffix and final extension) plus OutputSuffix.
func (c Config) OutputPath(input string) string {
	dir, base := filepath.Split(input)
	base = strings.TrimSuffix(base, ".gz")
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	if c.OutputDir != "" {
		dir = c.OutputDir
	}
	return filepath.Join(dir, base+c.OutputSuffix)
}

// IsOutput reports whether path looks like a report this configuration wrote.
func (c Config) IsOutput(path string) bool {
	return strings.HasSuffix(filepath.Base(path), c.OutputSuffix)
}
