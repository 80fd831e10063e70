package registry

import (
	"os"
	"path/filepath"
	"testing"
)

func touchAll(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestLoadDir_OnlyWeights(t *testing.T) {
	dir := t.TempDir()
	touchAll(t, dir, "llama.gguf", "mistral.GGUF", "README.md", "lora.bin")
	if err := os.Mkdir(filepath.Join(dir, "nested.gguf"), 0o755); err != nil {
		t.Fatal(err)
	}
	models, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("models=%+v", models)
	}
	got := models[0]
	if got.ID != "llama.gguf" || got.Name != "llama" || !filepath.IsAbs(got.Path) {
		t.Fatalf("first model = %+v", got)
	}
	if models[1].Name != "mistral" {
		t.Fatalf("extension not trimmed: %+v", models[1])
	}
}

func TestLoadDir_TildePath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	if err := os.MkdirAll(filepath.Join(home, "models"), 0o755); err != nil {
		t.Fatal(err)
	}
	touchAll(t, filepath.Join(home, "models"), "x.gguf")
	models, err := LoadDir(filepath.Join("~", "models"))
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(models) != 1 || models[0].ID != "x.gguf" {
		t.Fatalf("models=%+v", models)
	}
}

func TestLoadDir_Missing(t *testing.T) {
	if _, err := LoadDir(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing dir")
	}
}
