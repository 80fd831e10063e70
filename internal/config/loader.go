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

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by ApplyEnv and WithDefaults.
type Config struct {
	Addr                string   `json:"addr" yaml:"addr" toml:"addr"`
	LogLevel            string   `json:"log_level" yaml:"log_level" toml:"log_level"`
	DB                  DBConfig `json:"db" yaml:"db" toml:"db"`
	AdapterCache        string   `json:"adapter_cache" yaml:"adapter_cache" toml:"adapter_cache"`
	ModelCache          string   `json:"model_cache" yaml:"model_cache" toml:"model_cache"`
	ModelsDir           string   `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	LlamaCtx            int      `json:"llama_ctx" yaml:"llama_ctx" toml:"llama_ctx"`
	LlamaThreads        int      `json:"llama_threads" yaml:"llama_threads" toml:"llama_threads"`
	GPULayers           int      `json:"gpu_layers" yaml:"gpu_layers" toml:"gpu_layers"`
	MaxBodyBytes        int64    `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	InferTimeoutSeconds int64    `json:"infer_timeout_seconds" yaml:"infer_timeout_seconds" toml:"infer_timeout_seconds"`
	CORS                CORS     `json:"cors" yaml:"cors" toml:"cors"`
	AuthSecret          string   `json:"auth_secret" yaml:"auth_secret" toml:"auth_secret"`
	RunPodAPIKey        string   `json:"runpod_api_key" yaml:"runpod_api_key" toml:"runpod_api_key"`
}

// DBConfig selects and addresses the relational store.
type DBConfig struct {
	Driver   string `json:"driver" yaml:"driver" toml:"driver"`
	DSN      string `json:"dsn" yaml:"dsn" toml:"dsn"`
	Path     string `json:"path" yaml:"path" toml:"path"`
	User     string `json:"user" yaml:"user" toml:"user"`
	Password string `json:"password" yaml:"password" toml:"password"`
	Host     string `json:"host" yaml:"host" toml:"host"`
	Name     string `json:"name" yaml:"name" toml:"name"`
}

// CORS is opt-in; when disabled no CORS middleware is installed.
type CORS struct {
	Enabled bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	Origins []string `json:"origins" yaml:"origins" toml:"origins"`
	Methods []string `json:"methods" yaml:"methods" toml:"methods"`
	Headers []string `json:"headers" yaml:"headers" toml:"headers"`
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
