package conf

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

type (
	// Config is the runtime configuration of a State. It can be decoded from a
	// luacore.toml file or created with Default.
	Config struct {
		Runtime RuntimeConfig `toml:"runtime"`
		Modules ModuleConfig  `toml:"modules"`
		Log     LogConfig     `toml:"log"`
	}
	// RuntimeConfig sizes the thread stacks and toggles warnings.
	RuntimeConfig struct {
		InitialStackSize int  `toml:"initial_stack_size"`
		MaxStackSize     int  `toml:"max_stack_size"`
		MaxCallDepth     int  `toml:"max_call_depth"`
		Warnings         bool `toml:"warnings"`
	}
	// ModuleConfig configures where require looks for compiled chunks. Every
	// path is a template where ? is replaced by the module name.
	ModuleConfig struct {
		Path []string `toml:"path"`
	}
	// LogConfig configures the logger used by the runtime and cli.
	LogConfig struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
		File   string `toml:"file"`
	}
)

// Default returns the configuration used when no file is provided.
func Default() Config {
	return Config{
		Runtime: RuntimeConfig{
			InitialStackSize: INITIALSTACKSIZE,
			MaxStackSize:     MAXSTACKSIZE,
			MaxCallDepth:     MAXCALLDEPTH,
		},
		Modules: ModuleConfig{
			Path: []string{"./?.luac", "./?/init.luac"},
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// WithDefaults returns cfg with every unset field taken from Default. Sizes
// that are not positive count as unset, as does a nil module path. An empty
// non nil path keeps require from searching any file.
func (cfg Config) WithDefaults() Config {
	def := Default()
	if cfg.Runtime.InitialStackSize <= 0 {
		cfg.Runtime.InitialStackSize = def.Runtime.InitialStackSize
	}
	if cfg.Runtime.MaxStackSize <= 0 {
		cfg.Runtime.MaxStackSize = max(def.Runtime.MaxStackSize, cfg.Runtime.InitialStackSize)
	}
	if cfg.Runtime.MaxCallDepth <= 0 {
		cfg.Runtime.MaxCallDepth = def.Runtime.MaxCallDepth
	}
	if cfg.Modules.Path == nil {
		cfg.Modules.Path = def.Modules.Path
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = def.Log.Format
	}
	return cfg
}

// Load reads a toml config file. Any value missing from the file keeps its
// default.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("cannot read %s: %w", path, err)
	}
	if err := Parse(string(data), &cfg); err != nil {
		return cfg, fmt.Errorf("parse error in %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes toml source over the values already in cfg and validates the result.
func Parse(src string, cfg *Config) error {
	if _, err := toml.Decode(src, cfg); err != nil {
		return err
	}
	return cfg.Validate()
}

// Validate checks that the sizes make sense together.
func (cfg Config) Validate() error {
	var errs []error
	if cfg.Runtime.InitialStackSize <= 0 {
		errs = append(errs, errors.New("runtime.initial_stack_size must be positive"))
	}
	if cfg.Runtime.MaxStackSize < cfg.Runtime.InitialStackSize {
		errs = append(errs, errors.New("runtime.max_stack_size must be at least runtime.initial_stack_size"))
	}
	if cfg.Runtime.MaxCallDepth <= 0 {
		errs = append(errs, errors.New("runtime.max_call_depth must be positive"))
	}
	for _, path := range cfg.Modules.Path {
		if !strings.Contains(path, "?") {
			errs = append(errs, fmt.Errorf("modules.path entry %q has no ? placeholder", path))
		}
	}
	switch cfg.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be text or json", cfg.Log.Format))
	}
	return errors.Join(errs...)
}
