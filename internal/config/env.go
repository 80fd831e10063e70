package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Defaults applied by WithDefaults when the corresponding field is unset.
const (
	DefaultAddr         = ":8000"
	DefaultLogLevel     = "info"
	DefaultDBDriver     = "sqlite"
	DefaultDBPath       = "./data/frequency.db"
	DefaultAdapterCache = "./.adapter"
	DefaultModelCache   = "~/.frequency/models"
	DefaultModelsDir    = "~/models/llm"
	DefaultLlamaCtx     = 2048
	DefaultLlamaThreads = 4
	DefaultGPULayers    = 99
	DefaultMaxBodyBytes = 1 << 20
)

// lookupEnv is swapped in tests.
var lookupEnv = os.LookupEnv

// ApplyEnv overlays environment variables onto cfg. Set variables win over
// values from the config file.
func ApplyEnv(cfg *Config) {
	str := func(key string, dst *string) {
		if v, ok := lookupEnv(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("FREQUENCY_ADDR", &cfg.Addr)
	str("FREQUENCY_LOG_LEVEL", &cfg.LogLevel)
	str("FREQUENCY_AUTH_SECRET", &cfg.AuthSecret)
	str("DB_DRIVER", &cfg.DB.Driver)
	str("DB_DSN", &cfg.DB.DSN)
	str("DB_USER", &cfg.DB.User)
	str("DB_PASS", &cfg.DB.Password)
	str("DB_HOST", &cfg.DB.Host)
	str("DB_NAME", &cfg.DB.Name)
	str("ADAPTER_CACHE", &cfg.AdapterCache)
	str("MODEL_CACHE", &cfg.ModelCache)
	str("MODELS_DIR", &cfg.ModelsDir)
	str("RUNPOD_API_KEY", &cfg.RunPodAPIKey)
	if v, ok := lookupEnv("FREQUENCY_GPU_LAYERS"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.GPULayers = n
		}
	}
}

// WithDefaults returns cfg with unset fields replaced by package defaults.
func (c Config) WithDefaults() Config {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.DB.Driver == "" {
		c.DB.Driver = DefaultDBDriver
	}
	if c.DB.Path == "" {
		c.DB.Path = DefaultDBPath
	}
	if c.AdapterCache == "" {
		c.AdapterCache = DefaultAdapterCache
	}
	if c.ModelCache == "" {
		c.ModelCache = DefaultModelCache
	}
	if c.ModelsDir == "" {
		c.ModelsDir = DefaultModelsDir
	}
	if c.LlamaCtx <= 0 {
		c.LlamaCtx = DefaultLlamaCtx
	}
	if c.LlamaThreads <= 0 {
		c.LlamaThreads = DefaultLlamaThreads
	}
	if c.GPULayers <= 0 {
		c.GPULayers = DefaultGPULayers
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return c
}

// PostgresDSN builds a postgres DSN from the individual DB parts.
// Every part is required, mirroring the DB_* environment contract.
func (d DBConfig) PostgresDSN() (string, error) {
	if d.DSN != "" {
		return d.DSN, nil
	}
	missing := []string{}
	if d.User == "" {
		missing = append(missing, "DB_USER")
	}
	if d.Password == "" {
		missing = append(missing, "DB_PASS")
	}
	if d.Host == "" {
		missing = append(missing, "DB_HOST")
	}
	if d.Name == "" {
		missing = append(missing, "DB_NAME")
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("postgres config incomplete: set %s", strings.Join(missing, ", "))
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s client_encoding=UTF8 sslmode=disable",
		d.Host, d.User, d.Password, d.Name), nil
}
