//go:build llama

package manager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	llama "github.com/go-skynet/go-llama.cpp"
)

// llamaBuilt indicates this binary was compiled with real llama support.
var llamaBuilt = true

type llamaRuntime struct {
	cfg LlamaConfig
}

// NewLlamaRuntime returns the go-llama.cpp backed Runtime.
func NewLlamaRuntime(cfg LlamaConfig) Runtime {
	return &llamaRuntime{cfg: cfg}
}

func (r *llamaRuntime) modelOptions(spec LoadSpec) []llama.ModelOption {
	opts := []llama.ModelOption{llama.SetContext(r.cfg.CtxSize)}
	if spec.CUDA && r.cfg.GPULayers > 0 {
		opts = append(opts, llama.SetGPULayers(r.cfg.GPULayers))
	}
	return opts
}

func (r *llamaRuntime) Load(ctx context.Context, spec LoadSpec) (Tokenizer, Weights, error) {
	if strings.TrimSpace(spec.Path) == "" {
		return nil, nil, errors.New("model path is empty")
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	opts := r.modelOptions(spec)
	base, err := llama.New(spec.Path, opts...)
	if err != nil {
		return nil, nil, err
	}
	w := &llamaWeights{
		path:     spec.Path,
		opts:     opts,
		threads:  r.cfg.Threads,
		base:     base,
		adapters: make(map[string]string),
		merged:   make(map[string]*llama.LLama),
	}
	return w, w, nil
}

// llamaWeights owns the base model plus one LoRA-applied model per activated
// adapter. go-llama.cpp applies LoRA at load time, so each adapter is a
// separate context created on first activation.
type llamaWeights struct {
	path     string
	opts     []llama.ModelOption
	threads  int
	base     *llama.LLama
	adapters map[string]string
	merged   map[string]*llama.LLama
	active   string
}

func (w *llamaWeights) Tokenize(text string) ([]int32, error) {
	if w.base == nil {
		return nil, errors.New("llama model not initialized")
	}
	_, toks, err := w.base.TokenizeString(text, llama.SetThreads(atLeast(1, w.threads)))
	return toks, err
}

func (w *llamaWeights) LoadAdapter(name, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("adapter %s: %w", name, err)
	}
	w.free(name)
	w.adapters[name] = path
	return nil
}

func (w *llamaWeights) UnloadAdapter(name string) error {
	w.free(name)
	delete(w.adapters, name)
	if w.active == name {
		w.active = ""
	}
	return nil
}

func (w *llamaWeights) free(name string) {
	if m := w.merged[name]; m != nil {
		m.Free()
		delete(w.merged, name)
	}
}

func (w *llamaWeights) ActivateAdapter(name string) error {
	if name == "" {
		w.active = ""
		return nil
	}
	path, ok := w.adapters[name]
	if !ok {
		return fmt.Errorf("adapter %s not loaded", name)
	}
	if w.merged[name] == nil {
		opts := append(append([]llama.ModelOption{}, w.opts...), llama.SetLoraAdapter(path), llama.SetLoraBase(w.path))
		m, err := llama.New(w.path, opts...)
		if err != nil {
			return fmt.Errorf("apply adapter %s: %w", name, err)
		}
		w.merged[name] = m
	}
	w.active = name
	return nil
}

func (w *llamaWeights) current() *llama.LLama {
	if w.active != "" {
		if m := w.merged[w.active]; m != nil {
			return m
		}
	}
	return w.base
}

func (w *llamaWeights) Generate(ctx context.Context, prompt string, params InferParams, onToken func(string) error) (FinalResult, error) {
	model := w.current()
	if model == nil {
		return FinalResult{}, errors.New("llama model not initialized")
	}

	// Bridge token streaming to onToken and respect cancellation
	model.SetTokenCallback(func(tok string) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		if err := onToken(tok); err != nil {
			return false
		}
		return true
	})
	defer model.SetTokenCallback(nil)

	text, err := model.Predict(prompt, predictOptions(params, w.threads)...)
	if err != nil {
		if ctx.Err() != nil {
			return FinalResult{}, ctx.Err()
		}
		return FinalResult{}, err
	}
	if ctx.Err() != nil {
		return FinalResult{}, ctx.Err()
	}
	// Token counts are filled in by the caller from the tokenizer and callback.
	return FinalResult{Content: text, FinishReason: "stop"}, nil
}

func (w *llamaWeights) Close() error {
	for name := range w.merged {
		w.free(name)
	}
	if w.base != nil {
		w.base.Free()
		w.base = nil
	}
	return nil
}

// helpers
func atLeast(min, v int) int {
	if v > min {
		return v
	}
	return min
}
func zn(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
func zf(v, def float32) float32 {
	if v > 0 {
		return v
	}
	return def
}

// predictOptions converts InferParams into go-llama.cpp options.
func predictOptions(params InferParams, threads int) []llama.PredictOption {
	po := []llama.PredictOption{
		llama.SetTokens(zn(params.MaxTokens, llama.DefaultOptions.Tokens)),
		llama.SetThreads(atLeast(1, threads)),
		llama.SetTopP(zf(params.TopP, llama.DefaultOptions.TopP)),
		llama.SetTopK(zn(params.TopK, llama.DefaultOptions.TopK)),
		llama.SetTemperature(zf(params.Temperature, llama.DefaultOptions.Temperature)),
		llama.SetPenalty(zf(params.RepeatPenalty, llama.DefaultOptions.Penalty)),
	}
	if params.Seed != 0 {
		po = append(po, llama.SetSeed(params.Seed))
	}
	if len(params.Stop) > 0 {
		po = append(po, llama.SetStopWords(params.Stop...))
	}
	return po
}
