// Package config loads the server configuration from a YAML or TOML file
// with RESTPF_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/guxiaodai/restpf/i18n"
)

// Config is the root configuration.
type Config struct {
	Server    ServerConfig     `yaml:"server" toml:"server"`
	Logging   LoggingConfig    `yaml:"logging" toml:"logging"`
	Metrics   MetricsConfig    `yaml:"metrics" toml:"metrics"`
	Pipeline  PipelineConfig   `yaml:"pipeline" toml:"pipeline"`
	Tracing   TracingConfig    `yaml:"tracing" toml:"tracing"`
	Resources []ResourceConfig `yaml:"resources" toml:"resources"`
}

type ServerConfig struct {
	Addr         string   `yaml:"addr" toml:"addr"`
	BasePath     string   `yaml:"base_path" toml:"base_path"`
	ReadTimeout  Duration `yaml:"read_timeout" toml:"read_timeout"`
	WriteTimeout Duration `yaml:"write_timeout" toml:"write_timeout"`
	MaxBodyBytes int64    `yaml:"max_body_bytes" toml:"max_body_bytes"`
	// Language of issue messages in error documents.
	Language string `yaml:"language" toml:"language"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`   // "debug", "info", "warn", "error"
	Format string `yaml:"format" toml:"format"` // "json" or "console"
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Path    string `yaml:"path" toml:"path"`
}

type PipelineConfig struct {
	CallbackTimeout Duration `yaml:"callback_timeout" toml:"callback_timeout"`
	// MaxConcurrency bounds the callbacks running at once in a batch; 0 is unbounded.
	MaxConcurrency int `yaml:"max_concurrency" toml:"max_concurrency"`
}

type TracingConfig struct {
	Exporter    string `yaml:"exporter" toml:"exporter"` // "none" or "stdout"
	ServiceName string `yaml:"service_name" toml:"service_name"`
}

// ResourceConfig points at a resource definition file. Relative paths are
// resolved against the directory of the configuration file.
type ResourceConfig struct {
	Name   string `yaml:"name" toml:"name"`
	Schema string `yaml:"schema" toml:"schema"`
}

// Duration is a time.Duration written as "30s" in configuration files.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	return d.UnmarshalText([]byte(n.Value))
}

// Load reads the file at path. The format is chosen by extension: .toml is
// TOML, everything else YAML. ${VAR} references are expanded before parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data, formatOf(path))
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	for i, r := range cfg.Resources {
		if r.Schema != "" && !filepath.IsAbs(r.Schema) {
			cfg.Resources[i].Schema = filepath.Join(dir, r.Schema)
		}
	}
	return cfg, nil
}

// Format of a configuration document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

func formatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// Parse decodes a configuration document, then applies environment
// overrides, defaults and validation.
func Parse(data []byte, f Format) (*Config, error) {
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	switch f {
	case FormatTOML:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case FormatYAML, "":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	default:
		return nil, fmt.Errorf("parse config: unknown format %q", f)
	}
	return finish(&cfg)
}

// Default returns the configuration used when no file is given.
func Default() (*Config, error) { return finish(&Config{}) }

func finish(cfg *Config) (*Config, error) {
	applyEnvOverrides(cfg)
	setDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies RESTPF_* environment variables. They always win
// over the file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RESTPF_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("RESTPF_SERVER_BASE_PATH"); v != "" {
		cfg.Server.BasePath = v
	}
	if v := os.Getenv("RESTPF_SERVER_LANGUAGE"); v != "" {
		cfg.Server.Language = v
	}
	if v := os.Getenv("RESTPF_SERVER_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = Duration(d)
		}
	}
	if v := os.Getenv("RESTPF_SERVER_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = Duration(d)
		}
	}

	if v := os.Getenv("RESTPF_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("RESTPF_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("RESTPF_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("RESTPF_METRICS_PATH"); v != "" {
		cfg.Metrics.Path = v
	}

	if v := os.Getenv("RESTPF_PIPELINE_CALLBACK_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Pipeline.CallbackTimeout = Duration(d)
		}
	}
	if v := os.Getenv("RESTPF_TRACING_EXPORTER"); v != "" {
		cfg.Tracing.Exporter = v
	}

	if v := os.Getenv("RESTPF_PIPELINE_MAX_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Pipeline.MaxConcurrency = n
		}
	}
}

func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = Duration(30 * time.Second)
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = Duration(60 * time.Second)
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = 1 << 20
	}
	if cfg.Server.Language == "" {
		cfg.Server.Language = "en"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Tracing.Exporter == "" {
		cfg.Tracing.Exporter = "none"
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = "restpf"
	}
}

func validate(cfg *Config) error {
	var errs []error
	switch strings.ToLower(cfg.Logging.Level) {
	case "trace", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level: unknown level %q", cfg.Logging.Level))
	}
	switch cfg.Logging.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging.format: must be json or console, got %q", cfg.Logging.Format))
	}
	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, errors.New("metrics.path: must start with /"))
	}
	if cfg.Server.BasePath != "" && (!strings.HasPrefix(cfg.Server.BasePath, "/") || strings.HasSuffix(cfg.Server.BasePath, "/")) {
		errs = append(errs, errors.New("server.base_path: must start and not end with /"))
	}
	if !slices.Contains(i18n.Languages(), cfg.Server.Language) {
		errs = append(errs, fmt.Errorf("server.language: unsupported language %q", cfg.Server.Language))
	}
	switch cfg.Tracing.Exporter {
	case "none", "stdout":
	default:
		errs = append(errs, fmt.Errorf("tracing.exporter: must be none or stdout, got %q", cfg.Tracing.Exporter))
	}
	if cfg.Pipeline.CallbackTimeout < 0 {
		errs = append(errs, errors.New("pipeline.callback_timeout: must not be negative"))
	}
	if cfg.Pipeline.MaxConcurrency < 0 {
		errs = append(errs, errors.New("pipeline.max_concurrency: must not be negative"))
	}
	seen := map[string]bool{}
	for i, r := range cfg.Resources {
		if r.Schema == "" {
			errs = append(errs, fmt.Errorf("resources[%d]: schema is required", i))
		}
		if r.Name != "" {
			if seen[r.Name] {
				errs = append(errs, fmt.Errorf("resources[%d]: duplicate name %q", i, r.Name))
			}
			seen[r.Name] = true
		}
	}
	return errors.Join(errs...)
}
