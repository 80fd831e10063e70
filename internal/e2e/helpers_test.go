package e2e

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"frequency/internal/httpapi"
	"frequency/internal/manager"
	"frequency/internal/registry"
	"frequency/internal/store"
	"frequency/pkg/client"
)

// echoRuntime answers every prompt with "re <adapter>", where adapter is the
// active adapter or "base".
type echoRuntime struct {
	mu    sync.Mutex
	loads []manager.LoadSpec
}

func (r *echoRuntime) Load(_ context.Context, spec manager.LoadSpec) (manager.Tokenizer, manager.Weights, error) {
	r.mu.Lock()
	r.loads = append(r.loads, spec)
	r.mu.Unlock()
	w := &echoWeights{adapters: map[string]string{}}
	return w, w, nil
}

type echoWeights struct {
	adapters map[string]string
	active   string
}

func (w *echoWeights) Tokenize(text string) ([]int32, error) {
	return make([]int32, len(strings.Fields(text))), nil
}

func (w *echoWeights) LoadAdapter(name, path string) error {
	w.adapters[name] = path
	return nil
}

func (w *echoWeights) UnloadAdapter(name string) error {
	delete(w.adapters, name)
	if w.active == name {
		w.active = ""
	}
	return nil
}

func (w *echoWeights) ActivateAdapter(name string) error {
	w.active = name
	return nil
}

func (w *echoWeights) Generate(ctx context.Context, prompt string, _ manager.InferParams, onToken func(string) error) (manager.FinalResult, error) {
	who := w.active
	if who == "" {
		who = "base"
	}
	pieces := []string{"re", " ", who}
	for _, p := range pieces {
		if err := ctx.Err(); err != nil {
			return manager.FinalResult{}, err
		}
		if onToken != nil {
			if err := onToken(p); err != nil {
				return manager.FinalResult{}, err
			}
		}
	}
	return manager.FinalResult{Content: strings.Join(pieces, "")}, nil
}

func (w *echoWeights) Close() error { return nil }

// createTempModelsDir creates a directory populated with empty .gguf files.
func createTempModelsDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		p := filepath.Join(dir, n)
		if err := os.WriteFile(p, []byte(""), 0o644); err != nil {
			t.Fatalf("write temp model %s: %v", p, err)
		}
	}
	return dir
}

type stack struct {
	srv     *httptest.Server
	mgr     *manager.Manager
	store   *store.Store
	runtime *echoRuntime
	client  *client.Client
	once    sync.Once
}

// newStack wires a SQLite store, the manager and the HTTP API together.
func newStack(t *testing.T, modelsDir, dbPath string) *stack {
	t.Helper()
	st, err := store.Open(store.Config{Driver: "sqlite", Path: dbPath}, zerologNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	rt := &echoRuntime{}
	mgr := manager.New(manager.Config{
		Store:           st,
		Runtime:         rt,
		Resolver:        &registry.Resolver{ModelsDir: modelsDir},
		ModelsDir:       modelsDir,
		AdapterCacheDir: t.TempDir(),
	})
	srv := httptest.NewServer(httpapi.NewMux(mgr))
	s := &stack{srv: srv, mgr: mgr, store: st, runtime: rt, client: client.New(srv.URL)}
	t.Cleanup(s.close)
	return s
}

func (s *stack) close() {
	s.once.Do(func() {
		s.srv.Close()
		_ = s.mgr.Close()
		_ = s.store.Close()
	})
}
