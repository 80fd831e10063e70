package local

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"frequency/internal/provider"
)

// instance is the on-disk record of one spawned server.
type instance struct {
	Name      string    `json:"name"`
	PID       int       `json:"pid"`
	Port      int       `json:"port"`
	URL       string    `json:"url"`
	LogFile   string    `json:"log_file"`
	StartedAt time.Time `json:"started_at"`
}

func (p *Provider) statePath(name string) string {
	return filepath.Join(p.dir, name+".json")
}

func (p *Provider) save(in instance) error {
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return err
	}
	tmp := p.statePath(in.Name) + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, p.statePath(in.Name))
}

func (p *Provider) load(name string) (instance, error) {
	var in instance
	b, err := os.ReadFile(p.statePath(name))
	if errors.Is(err, os.ErrNotExist) {
		return in, fmt.Errorf("local: %q: %w", name, provider.ErrNotFound)
	}
	if err != nil {
		return in, err
	}
	if err := json.Unmarshal(b, &in); err != nil {
		return in, fmt.Errorf("local: corrupt state for %q: %w", name, err)
	}
	return in, nil
}

func (p *Provider) remove(name string) error {
	err := os.Remove(p.statePath(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// names lists every instance with a state file, sorted.
func (p *Provider) names() ([]string, error) {
	entries, err := os.ReadDir(p.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		out = append(out, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(out)
	return out, nil
}

func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}
