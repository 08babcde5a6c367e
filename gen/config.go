package gen

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ConfigFile is the file name LoadConfig and FindConfig look for.
const ConfigFile = "hostffi.toml"

// DefaultOutput is the generated file name used when none is configured.
const DefaultOutput = "hostffi_exports.go"

// Config controls wrapper generation.
type Config struct {
	// Package is the import path or pattern of the native package.
	Package string `toml:"package"`
	// Output is the generated file path, relative to Dir.
	Output string `toml:"output"`
	// Prefix is prepended to derived external names.
	Prefix string `toml:"prefix"`
	// Include restricts generation to these Go function names. Functions
	// listed here must be eligible.
	Include []string `toml:"include"`
	// EmitLastError adds a <prefix>last_error export returning the message
	// of the most recent fault.
	EmitLastError bool `toml:"emit_last_error"`
	// NoMain omits the empty main function, for packages that declare
	// their own.
	NoMain bool `toml:"no_main"`
	// Names maps Go function names to external names.
	Names map[string]string `toml:"names"`

	// Dir is the directory holding the config file (set at load time).
	Dir string `toml:"-"`
}

// LoadConfig reads a hostffi.toml file.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		Logger().Sugar().Warnf("%s: unknown keys %v", path, undecoded)
	}

	cfg.Dir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// FindConfig walks up from startDir looking for hostffi.toml. It returns
// nil, nil when there is none.
func FindConfig(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, ConfigFile)
		if _, err := os.Stat(path); err == nil {
			return LoadConfig(path)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// DefaultConfig returns a config for the native package at pkg.
func DefaultConfig(pkg string) *Config {
	cfg := &Config{Package: pkg}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Output == "" {
		c.Output = DefaultOutput
	}
	if c.Names == nil {
		c.Names = map[string]string{}
	}
}

// OutputPath returns Output resolved against Dir.
func (c *Config) OutputPath() string {
	if filepath.IsAbs(c.Output) || c.Dir == "" {
		return c.Output
	}
	return filepath.Join(c.Dir, c.Output)
}

func (c *Config) included(name string) bool {
	if len(c.Include) == 0 {
		return true
	}
	for _, n := range c.Include {
		if n == name {
			return true
		}
	}
	return false
}

func (c *Config) requested(name string) bool {
	if _, ok := c.Names[name]; ok {
		return true
	}
	for _, n := range c.Include {
		if n == name {
			return true
		}
	}
	return false
}
