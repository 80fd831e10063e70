//go:build !llama

package manager

// No-CGO stub compiled when the 'llama' build tag is NOT set, keeping default
// builds and CI CGO-free. The real runtime lives in runtime_llama.go.

import "context"

// llamaBuilt indicates this binary was compiled with real llama support.
var llamaBuilt = false

type llamaRuntime struct {
	cfg LlamaConfig
}

// NewLlamaRuntime returns a Runtime that refuses to load weights without the
// 'llama' build tag.
func NewLlamaRuntime(cfg LlamaConfig) Runtime {
	return &llamaRuntime{cfg: cfg}
}

func (r *llamaRuntime) Load(ctx context.Context, spec LoadSpec) (Tokenizer, Weights, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return nil, nil, ErrDependencyUnavailable("llama support not built (missing 'llama' build tag)")
}
