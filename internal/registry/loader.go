package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"frequency/internal/common/fsutil"
	"frequency/pkg/types"
)

// LoadDir scans a directory for *.gguf files and lists them as available models.
// ID is the full filename (including extension); Path is the absolute file path.
func LoadDir(dir string) ([]types.AvailableModel, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []types.AvailableModel
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".gguf") {
			continue
		}
		models = append(models, types.AvailableModel{
			ID:   name,
			Name: strings.TrimSuffix(name, filepath.Ext(name)),
			Path: filepath.Join(abs, name),
		})
	}
	return models, nil
}
