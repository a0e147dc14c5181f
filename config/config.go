// Package config loads botlang configuration from YAML or TOML files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/everydev1618/botlang/dsl"
	"github.com/everydev1618/botlang/tools"
)

// Config is the runtime configuration.
type Config struct {
	LogLevel    string   `yaml:"log_level" toml:"log_level"`
	Home        string   `yaml:"home" toml:"home"`
	ToolTimeout Duration `yaml:"tool_timeout" toml:"tool_timeout"`
	MaxParallel int      `yaml:"max_parallel" toml:"max_parallel"`
	// ReturnExits makes `return` end its handler or bot instead of only
	// recording a value.
	ReturnExits bool `yaml:"return_exits" toml:"return_exits"`

	// Sandbox confines file tools to a directory.
	Sandbox   string `yaml:"sandbox" toml:"sandbox"`
	ToolsDir  string `yaml:"tools_dir" toml:"tools_dir"`
	AllowExec bool   `yaml:"allow_exec" toml:"allow_exec"`

	Memory    MemoryConfig           `yaml:"memory" toml:"memory"`
	Tracing   TracingConfig          `yaml:"tracing" toml:"tracing"`
	Schedules []dsl.ScheduledJob     `yaml:"schedules" toml:"schedules"`
	Tools     []tools.DynamicToolDef `yaml:"tools" toml:"tools"`
}

// MemoryConfig configures the bot memory store.
type MemoryConfig struct {
	// Path of the SQLite database. Empty means <home>/botlang.db.
	Path     string `yaml:"path" toml:"path"`
	Disabled bool   `yaml:"disabled" toml:"disabled"`
}

// TracingConfig configures OTLP trace export.
type TracingConfig struct {
	Enabled  bool   `yaml:"enabled" toml:"enabled"`
	Endpoint string `yaml:"endpoint" toml:"endpoint"` // host:port
	URLPath  string `yaml:"url_path" toml:"url_path"`
	APIKey   string `yaml:"api_key" toml:"api_key"`
	Insecure bool   `yaml:"insecure" toml:"insecure"`
}

// Duration is a time.Duration written as a string such as "30s".
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if s == "" {
		d.Duration = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q", s)
	}
	d.Duration = v
	return nil
}

// UnmarshalYAML parses a duration scalar.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a string", node.Line)
	}
	return d.UnmarshalText([]byte(node.Value))
}

// MarshalText renders the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LogLevel:    "info",
		ToolTimeout: Duration{30 * time.Second},
		MaxParallel: 8,
	}
}

// Load reads the file at path, choosing the format by extension
// (.yaml, .yml or .toml). An empty path returns Default. Environment
// overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		switch ext := strings.ToLower(filepath.Ext(path)); ext {
		case ".yaml", ".yml":
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case ".toml":
			if _, err := toml.Decode(string(data), cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		default:
			return nil, fmt.Errorf("unsupported config format %q (use .yaml, .yml or .toml)", ext)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("BOTLANG_HOME"); v != "" {
		c.Home = v
	}
}

// Validate checks field values.
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level: unknown level %q", c.LogLevel))
	}
	if c.ToolTimeout.Duration < 0 {
		errs = append(errs, errors.New("tool_timeout: must not be negative"))
	}
	if c.MaxParallel < 0 {
		errs = append(errs, errors.New("max_parallel: must not be negative"))
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		errs = append(errs, errors.New("tracing: endpoint is required when enabled"))
	}

	seen := make(map[string]bool)
	for i, s := range c.Schedules {
		switch {
		case s.Name == "":
			errs = append(errs, fmt.Errorf("schedules[%d]: name is required", i))
		case seen[s.Name]:
			errs = append(errs, fmt.Errorf("schedules[%d]: duplicate name %q", i, s.Name))
		}
		seen[s.Name] = true
		if s.Event == "" {
			errs = append(errs, fmt.Errorf("schedules[%d]: event is required", i))
		}
	}
	for i, t := range c.Tools {
		if t.Name == "" {
			errs = append(errs, fmt.Errorf("tools[%d]: name is required", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
