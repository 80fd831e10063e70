package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"frequency/internal/config"
	"frequency/internal/httpapi"
	"frequency/internal/manager"
	"frequency/internal/objstore"
	"frequency/internal/registry"
	"frequency/internal/store"
)

const shutdownTimeout = 10 * time.Second

// serveFlags mirror config keys; a flag only wins when set explicitly.
type serveFlags struct {
	addr         string
	dbDriver     string
	dbDSN        string
	dbPath       string
	adapterCache string
	modelCache   string
	modelsDir    string
	gpuLayers    int
	maxBodyBytes int64
	inferTimeout int64
	corsEnabled  bool
	corsOrigins  string
	corsMethods  string
	corsHeaders  string
	authSecret   string
}

func newServeCmd(opts *globalOptions) *cobra.Command {
	f := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Long:  "Run the frequency HTTP API. Persisted models and their adapters are restored in the background.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, opts.configPath, f)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, opts.log)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.addr, "addr", config.DefaultAddr, "HTTP listen address ($FREQUENCY_ADDR)")
	fl.StringVar(&f.dbDriver, "db-driver", config.DefaultDBDriver, "Database driver: sqlite|postgres ($DB_DRIVER)")
	fl.StringVar(&f.dbDSN, "db-dsn", "", "Database DSN; overrides the DB_* parts ($DB_DSN)")
	fl.StringVar(&f.dbPath, "db-path", config.DefaultDBPath, "SQLite database file")
	fl.StringVar(&f.adapterCache, "adapter-cache", config.DefaultAdapterCache, "Adapter weight cache directory ($ADAPTER_CACHE)")
	fl.StringVar(&f.modelCache, "model-cache", config.DefaultModelCache, "Download cache for hf:// repos ($MODEL_CACHE)")
	fl.StringVar(&f.modelsDir, "models-dir", config.DefaultModelsDir, "Directory used to resolve bare repo names ($MODELS_DIR)")
	fl.IntVar(&f.gpuLayers, "gpu-layers", config.DefaultGPULayers, "Layers offloaded to the GPU for cuda models")
	fl.Int64Var(&f.maxBodyBytes, "max-body-bytes", config.DefaultMaxBodyBytes, "Maximum JSON request body size")
	fl.Int64Var(&f.inferTimeout, "infer-timeout", 0, "Chat timeout in seconds (0 disables)")
	fl.BoolVar(&f.corsEnabled, "cors", false, "Enable CORS")
	fl.StringVar(&f.corsOrigins, "cors-origins", "", "Comma-separated allowed origins")
	fl.StringVar(&f.corsMethods, "cors-methods", "", "Comma-separated allowed methods")
	fl.StringVar(&f.corsHeaders, "cors-headers", "", "Comma-separated allowed headers")
	fl.StringVar(&f.authSecret, "auth-secret", "", "HS256 secret enabling bearer auth on /v1 ($FREQUENCY_AUTH_SECRET)")
	return cmd
}

// resolveConfig applies flag > environment > config file > default.
func resolveConfig(cmd *cobra.Command, path string, f *serveFlags) (config.Config, error) {
	var cfg config.Config
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cfg, fmt.Errorf("load config %s: %w", path, err)
		}
		cfg = loaded
	}
	config.ApplyEnv(&cfg)

	fl := cmd.Flags()
	set := func(name string, apply func()) {
		if fl.Changed(name) {
			apply()
		}
	}
	set("addr", func() { cfg.Addr = f.addr })
	set("db-driver", func() { cfg.DB.Driver = f.dbDriver })
	set("db-dsn", func() { cfg.DB.DSN = f.dbDSN })
	set("db-path", func() { cfg.DB.Path = f.dbPath })
	set("adapter-cache", func() { cfg.AdapterCache = f.adapterCache })
	set("model-cache", func() { cfg.ModelCache = f.modelCache })
	set("models-dir", func() { cfg.ModelsDir = f.modelsDir })
	set("gpu-layers", func() { cfg.GPULayers = f.gpuLayers })
	set("max-body-bytes", func() { cfg.MaxBodyBytes = f.maxBodyBytes })
	set("infer-timeout", func() { cfg.InferTimeoutSeconds = f.inferTimeout })
	set("cors", func() { cfg.CORS.Enabled = f.corsEnabled })
	set("cors-origins", func() { cfg.CORS.Origins = splitCSV(f.corsOrigins) })
	set("cors-methods", func() { cfg.CORS.Methods = splitCSV(f.corsMethods) })
	set("cors-headers", func() { cfg.CORS.Headers = splitCSV(f.corsHeaders) })
	set("auth-secret", func() { cfg.AuthSecret = f.authSecret })
	set("log-level", func() { cfg.LogLevel = fl.Lookup("log-level").Value.String() })
	return cfg.WithDefaults(), nil
}

func storeConfig(c config.DBConfig) (store.Config, error) {
	sc := store.Config{Driver: c.Driver, Path: c.Path, DSN: c.DSN}
	if c.Driver == "postgres" {
		dsn, err := c.PostgresDSN()
		if err != nil {
			return sc, err
		}
		sc.DSN = dsn
	}
	return sc, nil
}

func serve(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	sc, err := storeConfig(cfg.DB)
	if err != nil {
		return err
	}
	st, err := store.Open(sc, log.With().Str("component", "store").Logger())
	if err != nil {
		return err
	}
	defer st.Close()

	fetcher := objstore.NewGCSFetcher(log.With().Str("component", "objstore").Logger())
	defer fetcher.Close()

	mlog := log.With().Str("component", "manager").Logger()
	mgr := manager.New(manager.Config{
		Store: st,
		Llama: manager.LlamaConfig{CtxSize: cfg.LlamaCtx, Threads: cfg.LlamaThreads, GPULayers: cfg.GPULayers},
		Resolver: &registry.Resolver{
			ModelsDir: cfg.ModelsDir,
			CacheDir:  cfg.ModelCache,
			Progress:  downloadLogger(mlog),
		},
		ModelsDir:       cfg.ModelsDir,
		Fetcher:         fetcher,
		AdapterCacheDir: cfg.AdapterCache,
		Publisher:       manager.LogPublisher{Log: mlog},
		Logger:          &mlog,
	})
	defer mgr.Close()
	logSanity(log, mgr.SanityCheck())

	httpapi.SetLogger(log.With().Str("component", "http").Logger())
	httpapi.SetDefaultLogLevel(cfg.LogLevel)
	httpapi.SetVersion(version)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetInferTimeoutSeconds(cfg.InferTimeoutSeconds)
	httpapi.SetCORSOptions(cfg.CORS.Enabled, cfg.CORS.Origins, cfg.CORS.Methods, cfg.CORS.Headers)
	httpapi.SetAuthSecret(cfg.AuthSecret)
	httpapi.SetBaseContext(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(mgr),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("db", sc.Driver).Str("models_dir", cfg.ModelsDir).Msg("frequency listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	go startup(ctx, mgr, log)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown")
	}
	return nil
}

// startup restores persisted models, then loads FREQUENCY_PRELOAD_REPO when
// a provider asked for one.
func startup(ctx context.Context, mgr *manager.Manager, log zerolog.Logger) {
	if err := mgr.Restore(ctx); err != nil {
		log.Error().Err(err).Msg("restore failed")
	}
	repo := strings.TrimSpace(os.Getenv("FREQUENCY_PRELOAD_REPO"))
	if repo == "" {
		return
	}
	name := os.Getenv("FREQUENCY_PRELOAD_NAME")
	if name == "" {
		name = "default"
	}
	cuda := os.Getenv("FREQUENCY_PRELOAD_CUDA") == "1"
	if _, err := mgr.RegisterModel(ctx, name, repo, "", cuda); err != nil {
		log.Error().Err(err).Str("model", name).Str("repo", repo).Msg("preload failed")
		return
	}
	log.Info().Str("model", name).Str("repo", repo).Msg("preloaded model")
}

func downloadLogger(log zerolog.Logger) registry.ProgressFunc {
	var (
		mu   sync.Mutex
		last time.Time
	)
	return func(p registry.DownloadProgress) {
		mu.Lock()
		if time.Since(last) < 2*time.Second && p.DownloadedBytes < p.TotalBytes {
			mu.Unlock()
			return
		}
		last = time.Now()
		mu.Unlock()
		log.Info().Int64("downloaded", p.DownloadedBytes).Int64("total", p.TotalBytes).Bool("resuming", p.Resuming).Msg("downloading weights")
	}
}

func logSanity(log zerolog.Logger, r manager.SanityReport) {
	ev := log.Info()
	if !r.OK() {
		ev = log.Warn().Strs("problems", r.Errors)
	}
	ev.Bool("llama_built", r.LlamaBuilt).
		Str("adapter_cache", r.AdapterCacheDir).
		Bool("models_dir_found", r.ModelsDirFound).
		Msg("sanity check")
}

// splitCSV splits a comma-separated list, trimming spaces and dropping blanks.
func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
