package manager

import (
	"os"

	"frequency/internal/common/fsutil"
)

// SanityReport describes runtime checks for external dependencies.
type SanityReport struct {
	LlamaBuilt      bool     `json:"llama_built"`
	AdapterCacheDir string   `json:"adapter_cache_dir"`
	AdapterCacheOK  bool     `json:"adapter_cache_ok"`
	ModelsDir       string   `json:"models_dir,omitempty"`
	ModelsDirFound  bool     `json:"models_dir_found"`
	ObjectStorage   bool     `json:"object_storage"`
	Errors          []string `json:"errors,omitempty"`
}

// OK reports whether every check passed.
func (r SanityReport) OK() bool { return len(r.Errors) == 0 }

// SanityCheck validates the runtime and the directories the manager writes to.
// It creates the adapter cache directory when missing and does not touch
// manager state.
func (m *Manager) SanityCheck() SanityReport {
	r := SanityReport{
		LlamaBuilt:    llamaBuilt,
		ModelsDir:     m.modelsDir,
		ObjectStorage: m.fetcher != nil,
	}
	if !r.LlamaBuilt {
		r.Errors = append(r.Errors, "llama support not built (missing 'llama' build tag)")
	}

	cache, err := fsutil.ExpandHome(m.adapterCache)
	if err != nil {
		r.Errors = append(r.Errors, err.Error())
	} else {
		r.AdapterCacheDir = cache
		if err := os.MkdirAll(cache, 0o755); err != nil {
			r.Errors = append(r.Errors, "adapter cache: "+err.Error())
		} else if f, err := os.CreateTemp(cache, ".probe-*"); err != nil {
			r.Errors = append(r.Errors, "adapter cache not writable: "+err.Error())
		} else {
			name := f.Name()
			_ = f.Close()
			_ = os.Remove(name)
			r.AdapterCacheOK = true
		}
	}

	if m.modelsDir != "" {
		dir, err := fsutil.ExpandHome(m.modelsDir)
		if err == nil && fsutil.IsDir(dir) {
			r.ModelsDir = dir
			r.ModelsDirFound = true
		}
	}
	return r
}
