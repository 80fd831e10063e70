package manager

import (
	"time"

	"github.com/rs/zerolog"

	"frequency/internal/registry"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultAdapterCacheDir    = "./.adapter"
	defaultRestoreParallelism = 2
)

// LlamaConfig tunes the in-process llama runtime.
type LlamaConfig struct {
	CtxSize   int
	Threads   int
	GPULayers int
}

// Config encapsulates all tunables for Manager construction.
type Config struct {
	// Store persists model and adapter records. Defaults to a MemoryStore.
	Store Store
	// Runtime loads weights. Defaults to the llama runtime built from Llama.
	Runtime Runtime
	Llama   LlamaConfig
	// Resolver maps repo identifiers to local paths. Defaults to a
	// registry.Resolver over ModelsDir.
	Resolver  Resolver
	ModelsDir string
	// Fetcher copies gs:// adapter weights into AdapterCacheDir. When nil,
	// adapters with a remote URI are rejected as a missing dependency.
	Fetcher         Fetcher
	AdapterCacheDir string
	// RestoreParallelism bounds concurrent loads during Restore.
	RestoreParallelism int
	Publisher          EventPublisher
	Logger             *zerolog.Logger
}

// New constructs a Manager from cfg, applying defaults.
func New(cfg Config) *Manager {
	m := &Manager{
		state:        StateLoading,
		handles:      make(map[string]*Handle),
		store:        cfg.Store,
		runtime:      cfg.Runtime,
		resolver:     cfg.Resolver,
		fetcher:      cfg.Fetcher,
		modelsDir:    cfg.ModelsDir,
		adapterCache: cfg.AdapterCacheDir,
		restoreLimit: cfg.RestoreParallelism,
		publisher:    cfg.Publisher,
		startTime:    time.Now(),
	}
	if m.store == nil {
		m.store = NewMemoryStore()
	}
	if m.runtime == nil {
		m.runtime = NewLlamaRuntime(cfg.Llama)
	}
	if m.resolver == nil {
		m.resolver = &registry.Resolver{ModelsDir: cfg.ModelsDir}
	}
	if m.adapterCache == "" {
		m.adapterCache = defaultAdapterCacheDir
	}
	if m.restoreLimit <= 0 {
		m.restoreLimit = defaultRestoreParallelism
	}
	if m.publisher == nil {
		m.publisher = noopPublisher{}
	}
	if cfg.Logger != nil {
		m.log = *cfg.Logger
	} else {
		m.log = zerolog.Nop()
	}
	return m
}
