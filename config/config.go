// Package config handles yulsp.toml / yulsp.yaml server configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/chazu/yulsp/lookup"
)

// FileNames are the configuration file names searched for, in order.
var FileNames = []string{"yulsp.toml", ".yulsp.toml", "yulsp.yaml", "yulsp.yml"}

// Config is the complete server configuration.
type Config struct {
	Server ServerConfig `toml:"server" yaml:"server" json:"server"`
	Lookup LookupConfig `toml:"lookup" yaml:"lookup" json:"lookup"`
	Cache  CacheConfig  `toml:"cache" yaml:"cache" json:"cache"`

	// Path is the file the configuration was loaded from (set at load time).
	Path string `toml:"-" yaml:"-" json:"-"`
}

// ServerConfig configures the language server process.
type ServerConfig struct {
	Transport string `toml:"transport" yaml:"transport" json:"transport"`
	Address   string `toml:"address" yaml:"address" json:"address"`
	Verbosity int    `toml:"verbosity" yaml:"verbosity" json:"verbosity"`
	LogFile   string `toml:"log_file" yaml:"log_file" json:"log_file"`
	Debug     bool   `toml:"debug" yaml:"debug" json:"debug"`
}

// LookupConfig configures the signature lookup service.
type LookupConfig struct {
	Enabled         bool     `toml:"enabled" yaml:"enabled" json:"enabled"`
	Endpoint        string   `toml:"endpoint" yaml:"endpoint" json:"endpoint"`
	APIKey          string   `toml:"api_key" yaml:"api_key" json:"api_key"`
	FunctionQueryID int      `toml:"function_query_id" yaml:"function_query_id" json:"function_query_id"`
	ContractQueryID int      `toml:"contract_query_id" yaml:"contract_query_id" json:"contract_query_id"`
	FunctionParam   string   `toml:"function_param" yaml:"function_param" json:"function_param"`
	ContractParam   string   `toml:"contract_param" yaml:"contract_param" json:"contract_param"`
	Timeout         Duration `toml:"timeout" yaml:"timeout" json:"timeout"`
	PollInterval    Duration `toml:"poll_interval" yaml:"poll_interval" json:"poll_interval"`
}

// CacheConfig configures the on-disk lookup result cache.
type CacheConfig struct {
	Enabled bool     `toml:"enabled" yaml:"enabled" json:"enabled"`
	Path    string   `toml:"path" yaml:"path" json:"path"`
	TTL     Duration `toml:"ttl" yaml:"ttl" json:"ttl"`
}

// Transports.
const (
	TransportStdio = "stdio"
	TransportTCP   = "tcp"
)

// Default returns the configuration used when no file is found.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Transport: TransportStdio,
			Address:   "127.0.0.1:7998",
		},
		Lookup: LookupConfig{
			Enabled:         true,
			Endpoint:        lookup.DefaultEndpoint,
			FunctionQueryID: lookup.DefaultFunctionQueryID,
			ContractQueryID: lookup.DefaultContractQueryID,
			FunctionParam:   lookup.DefaultFunctionParam,
			ContractParam:   lookup.DefaultContractParam,
			Timeout:         Duration{10 * time.Second},
			PollInterval:    Duration{lookup.DefaultPollInterval},
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     Duration{7 * 24 * time.Hour},
		},
	}
}

// Load builds the effective configuration. An explicit path must exist;
// otherwise the file is discovered by walking up from the working
// directory, and defaults are used when none is found. Environment
// overrides are applied and the result is validated.
func Load(path string) (*Config, error) {
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		if path, err = Find(wd); err != nil {
			return nil, err
		}
	}

	cfg := Default()
	if path != "" {
		if err := cfg.decodeFile(path); err != nil {
			return nil, err
		}
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.finish(); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Find walks up from startDir looking for a configuration file. It
// returns "" when there is none.
func Find(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		for _, name := range FileNames {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return "", nil
		}
		dir = parent
	}
}

// decodeFile overlays the file at path on cfg. Unknown keys are errors.
func (cfg *Config) decodeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("parse error in %s: %w", path, err)
		}
	default:
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return fmt.Errorf("parse error in %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return fmt.Errorf("parse error in %s: unknown keys: %s", path, strings.Join(keys, ", "))
		}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("cannot resolve path %s: %w", path, err)
	}
	cfg.Path = abs
	return nil
}

// finish fills values derived from other settings.
func (cfg *Config) finish() error {
	if cfg.Lookup.APIKey == "" {
		cfg.Lookup.APIKey = os.Getenv("DUNE_API_KEY")
	}
	if cfg.Cache.Enabled && cfg.Cache.Path == "" {
		path, err := lookup.DefaultCachePath()
		if err != nil {
			return err
		}
		cfg.Cache.Path = path
	}
	if cfg.Cache.Path != "" && cfg.Cache.Path != ":memory:" && cfg.Path != "" && !filepath.IsAbs(cfg.Cache.Path) {
		cfg.Cache.Path = filepath.Join(filepath.Dir(cfg.Path), cfg.Cache.Path)
	}
	return nil
}

// LookupReady reports whether network lookups can run.
func (cfg *Config) LookupReady() bool {
	return cfg.Lookup.Enabled && cfg.Lookup.APIKey != ""
}

// DuneConfig converts the lookup section for the Dune client.
func (cfg *Config) DuneConfig() lookup.DuneConfig {
	return lookup.DuneConfig{
		Endpoint:        cfg.Lookup.Endpoint,
		APIKey:          cfg.Lookup.APIKey,
		FunctionQueryID: cfg.Lookup.FunctionQueryID,
		ContractQueryID: cfg.Lookup.ContractQueryID,
		FunctionParam:   cfg.Lookup.FunctionParam,
		ContractParam:   cfg.Lookup.ContractParam,
		PollInterval:    cfg.Lookup.PollInterval.Duration,
	}
}

// Encode writes cfg as TOML with the API key redacted.
func (cfg *Config) Encode(w io.Writer) error {
	redacted := *cfg
	if redacted.Lookup.APIKey != "" {
		redacted.Lookup.APIKey = "<redacted>"
	}
	return toml.NewEncoder(w).Encode(redacted)
}

// Duration is a time.Duration written as a string such as "10s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	return d.UnmarshalText([]byte(value.Value))
}
