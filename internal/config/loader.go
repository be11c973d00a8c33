package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the daemon.
// Zero values mean "unspecified" and are replaced by defaults in main.
type Config struct {
	Addr          string  `json:"addr" yaml:"addr" toml:"addr"`
	ModelsDir     string  `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	ResourcesDir  string  `json:"resources_dir" yaml:"resources_dir" toml:"resources_dir"`
	DevBinDir     string  `json:"dev_bin_dir" yaml:"dev_bin_dir" toml:"dev_bin_dir"`
	PortRangeFrom int     `json:"port_range_from" yaml:"port_range_from" toml:"port_range_from"`
	PortRangeTo   int     `json:"port_range_to" yaml:"port_range_to" toml:"port_range_to"`
	CtxSize       int     `json:"ctx_size" yaml:"ctx_size" toml:"ctx_size"`
	Threads       int     `json:"threads" yaml:"threads" toml:"threads"`
	GPULayers     int     `json:"gpu_layers" yaml:"gpu_layers" toml:"gpu_layers"`
	Temperature   float64 `json:"temperature" yaml:"temperature" toml:"temperature"`
	MaxTokens     int     `json:"max_tokens" yaml:"max_tokens" toml:"max_tokens"`
	Embedded      bool    `json:"embedded" yaml:"embedded" toml:"embedded"`
	LogLevel      string  `json:"log_level" yaml:"log_level" toml:"log_level"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
