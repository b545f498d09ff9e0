package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr          string `json:"addr" yaml:"addr" toml:"addr"`
	ModelsDir     string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	OutputsDir    string `json:"outputs_dir" yaml:"outputs_dir" toml:"outputs_dir"`
	MemBudgetMB   int    `json:"mem_budget_mb" yaml:"mem_budget_mb" toml:"mem_budget_mb"`
	MemMarginMB   int    `json:"mem_margin_mb" yaml:"mem_margin_mb" toml:"mem_margin_mb"`
	DefaultModel  string `json:"default_model" yaml:"default_model" toml:"default_model"`
	FallbackModel string `json:"fallback_model" yaml:"fallback_model" toml:"fallback_model"`
	Colormap      string `json:"colormap" yaml:"colormap" toml:"colormap"`
	MaxUploadMB   int    `json:"max_upload_mb" yaml:"max_upload_mb" toml:"max_upload_mb"`
	ORTLibPath    string `json:"ort_lib_path" yaml:"ort_lib_path" toml:"ort_lib_path"`
	RemoteURL     string `json:"remote_url" yaml:"remote_url" toml:"remote_url"`
	// RetentionMaxAge is a Go duration string (e.g. "24h"); empty disables sweeping.
	RetentionMaxAge string `json:"retention_max_age" yaml:"retention_max_age" toml:"retention_max_age"`
	// RetentionSchedule is a cron expression for the sweep; empty selects hourly.
	RetentionSchedule string `json:"retention_schedule" yaml:"retention_schedule" toml:"retention_schedule"`
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
		if err := yaml.Unmarshal(b, &cfg); err != nil { return cfg, err }
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil { return cfg, err }
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil { return cfg, err }
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// LoadEnvFile loads KEY=VALUE pairs from a dotenv file into the process
// environment. Credentials (hub token, image-host key) live there rather
// than in the config file. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}
