package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// DirName is the per-project configuration directory.
const DirName = ".jargrep"

// Config represents jargrep configuration options
type Config struct {
	// Search switches
	SearchFilenames     bool `yaml:"search_filenames" toml:"search_filenames"`
	SearchContents      bool `yaml:"search_contents" toml:"search_contents"`
	SearchClasses       bool `yaml:"search_classes" toml:"search_classes"`
	FieldNames          bool `yaml:"field_names" toml:"field_names"`
	FieldValues         bool `yaml:"field_values" toml:"field_values"`
	MethodNames         bool `yaml:"method_names" toml:"method_names"`
	LDC                 bool `yaml:"ldc" toml:"ldc"`
	SearchInsideSpecial bool `yaml:"search_inside_special" toml:"search_inside_special"`

	// BinaryFiles is one of binary, without-match, text
	BinaryFiles string `yaml:"binary_files" toml:"binary_files"`

	// Include and Exclude are filename patterns for nested entries. At most
	// one may be set.
	Include string `yaml:"include" toml:"include"`
	Exclude string `yaml:"exclude" toml:"exclude"`

	// ContainerExtensions lists file name suffixes opened as zip containers
	ContainerExtensions []string `yaml:"container_extensions" toml:"container_extensions"`

	// ExcludeDirs names directories skipped when a target directory is
	// expanded; MaxDepth limits that expansion (0 = unlimited)
	ExcludeDirs []string `yaml:"exclude_dirs" toml:"exclude_dirs"`
	MaxDepth    int      `yaml:"max_depth" toml:"max_depth"`

	// Jobs is the number of top-level targets searched concurrently
	Jobs int `yaml:"jobs" toml:"jobs"`

	// Color is one of always, auto, never
	Color string `yaml:"color" toml:"color"`

	// LogLevel sets the diagnostics verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level" toml:"log_level"`

	// LogDir enables a run log in the given directory when non-empty
	LogDir string `yaml:"log_dir" toml:"log_dir"`
}

// Overrides holds values taken from the command line. Nil fields were not
// set and leave the configuration untouched.
type Overrides struct {
	SearchFilenames     *bool
	SearchContents      *bool
	SearchClasses       *bool
	FieldNames          *bool
	FieldValues         *bool
	MethodNames         *bool
	LDC                 *bool
	SearchInsideSpecial *bool
	BinaryFiles         *string
	Include             *string
	Exclude             *string
	ExcludeDirs         []string
	MaxDepth            *int
	Jobs                *int
	Color               *string
	LogLevel            *string
	LogDir              *string
}

// fileConfig mirrors Config with pointers so that keys absent from a file
// can be told apart from zero values.
type fileConfig struct {
	SearchFilenames     *bool    `yaml:"search_filenames" toml:"search_filenames"`
	SearchContents      *bool    `yaml:"search_contents" toml:"search_contents"`
	SearchClasses       *bool    `yaml:"search_classes" toml:"search_classes"`
	FieldNames          *bool    `yaml:"field_names" toml:"field_names"`
	FieldValues         *bool    `yaml:"field_values" toml:"field_values"`
	MethodNames         *bool    `yaml:"method_names" toml:"method_names"`
	LDC                 *bool    `yaml:"ldc" toml:"ldc"`
	SearchInsideSpecial *bool    `yaml:"search_inside_special" toml:"search_inside_special"`
	BinaryFiles         *string  `yaml:"binary_files" toml:"binary_files"`
	Include             *string  `yaml:"include" toml:"include"`
	Exclude             *string  `yaml:"exclude" toml:"exclude"`
	ContainerExtensions []string `yaml:"container_extensions" toml:"container_extensions"`
	ExcludeDirs         []string `yaml:"exclude_dirs" toml:"exclude_dirs"`
	MaxDepth            *int     `yaml:"max_depth" toml:"max_depth"`
	Jobs                *int     `yaml:"jobs" toml:"jobs"`
	Color               *string  `yaml:"color" toml:"color"`
	LogLevel            *string  `yaml:"log_level" toml:"log_level"`
	LogDir              *string  `yaml:"log_dir" toml:"log_dir"`
}

// DefaultConfig returns a Config with every search enabled
func DefaultConfig() *Config {
	return &Config{
		SearchFilenames:     true,
		SearchContents:      true,
		SearchClasses:       true,
		FieldNames:          true,
		FieldValues:         true,
		MethodNames:         true,
		LDC:                 true,
		SearchInsideSpecial: false,
		BinaryFiles:         "binary",
		ContainerExtensions: []string{".jar", ".zip"},
		Jobs:                1,
		Color:               "auto",
		LogLevel:            "warn",
	}
}

// LoadConfig loads configuration from the specified file path.
// The format follows the extension: .toml is TOML, anything else YAML.
// If the file doesn't exist, returns default configuration without error.
// If the file exists but is malformed, returns an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, &fc)
	} else {
		err = yaml.Unmarshal(data, &fc)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.apply(&fc)
	return cfg, nil
}

// LoadConfigFromDir loads .jargrep/config.yaml, or failing that
// .jargrep/config.toml, in the specified directory.
// If neither exists, returns default configuration without error.
func LoadConfigFromDir(dir string) (*Config, error) {
	for _, name := range []string{"config.yaml", "config.toml"} {
		path := filepath.Join(dir, DirName, name)
		if _, err := os.Stat(path); err == nil {
			return LoadConfig(path)
		}
	}
	return DefaultConfig(), nil
}

func (c *Config) apply(fc *fileConfig) {
	setBool(&c.SearchFilenames, fc.SearchFilenames)
	setBool(&c.SearchContents, fc.SearchContents)
	setBool(&c.SearchClasses, fc.SearchClasses)
	setBool(&c.FieldNames, fc.FieldNames)
	setBool(&c.FieldValues, fc.FieldValues)
	setBool(&c.MethodNames, fc.MethodNames)
	setBool(&c.LDC, fc.LDC)
	setBool(&c.SearchInsideSpecial, fc.SearchInsideSpecial)
	setString(&c.BinaryFiles, fc.BinaryFiles)
	setString(&c.Include, fc.Include)
	setString(&c.Exclude, fc.Exclude)
	if fc.ContainerExtensions != nil {
		c.ContainerExtensions = fc.ContainerExtensions
	}
	if fc.ExcludeDirs != nil {
		c.ExcludeDirs = fc.ExcludeDirs
	}
	if fc.MaxDepth != nil {
		c.MaxDepth = *fc.MaxDepth
	}
	if fc.Jobs != nil {
		c.Jobs = *fc.Jobs
	}
	setString(&c.Color, fc.Color)
	setString(&c.LogLevel, fc.LogLevel)
	setString(&c.LogDir, fc.LogDir)
}

// MergeWithFlags merges CLI flags into the configuration.
// Non-nil flag values override configuration values.
// Setting one of include/exclude on the command line clears the other.
func (c *Config) MergeWithFlags(o Overrides) {
	setBool(&c.SearchFilenames, o.SearchFilenames)
	setBool(&c.SearchContents, o.SearchContents)
	setBool(&c.SearchClasses, o.SearchClasses)
	setBool(&c.FieldNames, o.FieldNames)
	setBool(&c.FieldValues, o.FieldValues)
	setBool(&c.MethodNames, o.MethodNames)
	setBool(&c.LDC, o.LDC)
	setBool(&c.SearchInsideSpecial, o.SearchInsideSpecial)
	setString(&c.BinaryFiles, o.BinaryFiles)
	if o.Include != nil {
		c.Include, c.Exclude = *o.Include, ""
	}
	if o.Exclude != nil {
		c.Exclude, c.Include = *o.Exclude, ""
	}
	// --exclude-dir adds to the configured names
	c.ExcludeDirs = append(c.ExcludeDirs, o.ExcludeDirs...)
	if o.MaxDepth != nil {
		c.MaxDepth = *o.MaxDepth
	}
	if o.Jobs != nil {
		c.Jobs = *o.Jobs
	}
	setString(&c.Color, o.Color)
	setString(&c.LogLevel, o.LogLevel)
	setString(&c.LogDir, o.LogDir)
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	switch c.BinaryFiles {
	case "binary", "without-match", "text":
	default:
		return fmt.Errorf("invalid binary_files %q, must be one of: binary, without-match, text", c.BinaryFiles)
	}

	switch c.Color {
	case "always", "auto", "never":
	default:
		return fmt.Errorf("invalid color %q, must be one of: always, auto, never", c.Color)
	}

	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	if c.Jobs < 1 {
		return fmt.Errorf("jobs must be >= 1, got %d", c.Jobs)
	}

	if c.Include != "" && c.Exclude != "" {
		return fmt.Errorf("include and exclude cannot both be set")
	}

	if c.MaxDepth < 0 {
		return fmt.Errorf("max_depth must be >= 0, got %d", c.MaxDepth)
	}

	for _, name := range c.ExcludeDirs {
		if name == "" || strings.ContainsAny(name, `/\`) {
			return fmt.Errorf("exclude dir %q must be a plain directory name", name)
		}
	}

	for _, ext := range c.ContainerExtensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return fmt.Errorf("container extension %q must start with '.'", ext)
		}
	}

	return nil
}
