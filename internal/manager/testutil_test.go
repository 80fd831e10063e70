package manager

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeRuntime hands out in-memory weights and records every load.
type fakeRuntime struct {
	mu      sync.Mutex
	loadErr error
	tokens  []string
	loads   []LoadSpec
	weights []*fakeWeights
	// onLoad, when set, runs after each successful load outside the lock.
	onLoad func(LoadSpec)
}

func (r *fakeRuntime) Load(ctx context.Context, spec LoadSpec) (Tokenizer, Weights, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loads = append(r.loads, spec)
	if r.loadErr != nil {
		return nil, nil, r.loadErr
	}
	tokens := r.tokens
	if tokens == nil {
		tokens = []string{"Hello", " world"}
	}
	w := &fakeWeights{tokens: tokens, adapters: make(map[string]string)}
	r.weights = append(r.weights, w)
	if hook := r.onLoad; hook != nil {
		r.mu.Unlock()
		hook(spec)
		r.mu.Lock()
	}
	return fakeTokenizer{}, w, nil
}

func (r *fakeRuntime) last() *fakeWeights {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.weights) == 0 {
		return nil
	}
	return r.weights[len(r.weights)-1]
}

func (r *fakeRuntime) loadCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.loads)
}

// fakeTokenizer counts whitespace separated words.
type fakeTokenizer struct{}

func (fakeTokenizer) Tokenize(text string) ([]int32, error) {
	return make([]int32, len(strings.Fields(text))), nil
}

type fakeWeights struct {
	mu         sync.Mutex
	tokens     []string
	genErr     error
	adapterErr error
	adapters   map[string]string
	active     string
	closed     bool
	prompts    []string
	usedWith   []string
}

func (w *fakeWeights) LoadAdapter(name, path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.adapterErr != nil {
		return w.adapterErr
	}
	w.adapters[name] = path
	return nil
}

func (w *fakeWeights) UnloadAdapter(name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.adapters, name)
	if w.active == name {
		w.active = ""
	}
	return nil
}

func (w *fakeWeights) ActivateAdapter(name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if name != "" {
		if _, ok := w.adapters[name]; !ok {
			return errors.New("adapter not loaded: " + name)
		}
	}
	w.active = name
	return nil
}

func (w *fakeWeights) Generate(ctx context.Context, prompt string, _ InferParams, onToken func(string) error) (FinalResult, error) {
	w.mu.Lock()
	w.prompts = append(w.prompts, prompt)
	w.usedWith = append(w.usedWith, w.active)
	genErr := w.genErr
	w.mu.Unlock()
	if genErr != nil {
		return FinalResult{}, genErr
	}
	for _, tok := range w.tokens {
		select {
		case <-ctx.Done():
			return FinalResult{}, ctx.Err()
		default:
		}
		if err := onToken(tok); err != nil {
			return FinalResult{}, err
		}
	}
	return FinalResult{}, nil
}

func (w *fakeWeights) Close() error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	return nil
}

func (w *fakeWeights) isClosed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

func (w *fakeWeights) loadedAdapters() map[string]string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string]string, len(w.adapters))
	for k, v := range w.adapters {
		out[k] = v
	}
	return out
}

// resolverFunc adapts a function to Resolver.
type resolverFunc func(ctx context.Context, repo string) (string, error)

func (f resolverFunc) Resolve(ctx context.Context, repo string) (string, error) { return f(ctx, repo) }

// echoResolver maps every repo to /weights/<repo> and fails for repos named "missing".
var echoResolver = resolverFunc(func(_ context.Context, repo string) (string, error) {
	if repo == "missing" {
		return "", errors.New("no such repo: " + repo)
	}
	return "/weights/" + repo, nil
})

// fakeFetcher writes a small file at dest for every fetch.
type fakeFetcher struct {
	mu    sync.Mutex
	err   error
	calls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, uri, dest string) error {
	f.mu.Lock()
	f.calls = append(f.calls, uri)
	err := f.err
	f.mu.Unlock()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dest, []byte("lora"), 0o644)
}

func (f *fakeFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type testEnv struct {
	m       *Manager
	rt      *fakeRuntime
	store   *MemoryStore
	fetcher *fakeFetcher
	pub     *MemoryPublisher
	cache   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		rt:      &fakeRuntime{},
		store:   NewMemoryStore(),
		fetcher: &fakeFetcher{},
		pub:     NewMemoryPublisher(),
		cache:   t.TempDir(),
	}
	env.m = New(Config{
		Store:           env.store,
		Runtime:         env.rt,
		Resolver:        echoResolver,
		Fetcher:         env.fetcher,
		AdapterCacheDir: env.cache,
		Publisher:       env.pub,
	})
	t.Cleanup(func() { _ = env.m.Close() })
	return env
}

// restart builds a second manager over the same store, as after a process restart.
func (env *testEnv) restart(t *testing.T) *testEnv {
	t.Helper()
	next := &testEnv{
		rt:      &fakeRuntime{},
		store:   env.store,
		fetcher: env.fetcher,
		pub:     NewMemoryPublisher(),
		cache:   env.cache,
	}
	next.m = New(Config{
		Store:           next.store,
		Runtime:         next.rt,
		Resolver:        echoResolver,
		Fetcher:         next.fetcher,
		AdapterCacheDir: next.cache,
		Publisher:       next.pub,
	})
	t.Cleanup(func() { _ = next.m.Close() })
	return next
}

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return c
}

func mustRegister(t *testing.T, env *testEnv, name string) {
	t.Helper()
	if _, err := env.m.RegisterModel(testCtx(t), name, name+".gguf", "", false); err != nil {
		t.Fatalf("register %s: %v", name, err)
	}
}
