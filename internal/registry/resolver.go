package registry

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"frequency/internal/common/fsutil"
)

const (
	hfScheme         = "hf://"
	defaultHFBaseURL = "https://huggingface.co"
)

// Resolver turns a repo identifier into a local weights path.
//
// Accepted forms, in order:
//   - an existing file or directory (with ~ expansion); a directory resolves
//     to its first *.gguf by name;
//   - hf://owner/repo/path/to/file.gguf, downloaded once into CacheDir;
//   - a bare name or owner/repo id looked up in ModelsDir as <name>,
//     <name>.gguf or <name>/.
type Resolver struct {
	ModelsDir string
	CacheDir  string
	// HFBaseURL overrides https://huggingface.co (tests).
	HFBaseURL string
	Client    *http.Client
	// Progress, if set, receives download progress for hf:// repos.
	Progress ProgressFunc
}

// Resolve returns the local path for repo, downloading it first when needed.
func (r *Resolver) Resolve(ctx context.Context, repo string) (string, error) {
	repo = strings.TrimSpace(repo)
	if repo == "" {
		return "", fmt.Errorf("repo is required")
	}
	if strings.HasPrefix(repo, hfScheme) {
		return r.resolveHF(ctx, strings.TrimPrefix(repo, hfScheme))
	}
	p, err := fsutil.ExpandHome(repo)
	if err != nil {
		return "", err
	}
	if path, ok := resolveLocal(p); ok {
		return path, nil
	}
	if filepath.IsAbs(p) || strings.HasPrefix(repo, "~") {
		return "", fmt.Errorf("repo %q not found", repo)
	}
	rel := filepath.FromSlash(repo)
	if !cleanRelative(repo) {
		return "", fmt.Errorf("invalid repo %q: path escapes models dir", repo)
	}
	if r.ModelsDir == "" {
		return "", fmt.Errorf("repo %q not found and no models dir configured", repo)
	}
	dir, err := fsutil.ExpandHome(r.ModelsDir)
	if err != nil {
		return "", err
	}
	for _, cand := range []string{filepath.Join(dir, rel), filepath.Join(dir, rel+".gguf")} {
		if path, ok := resolveLocal(cand); ok {
			return path, nil
		}
	}
	return "", fmt.Errorf("repo %q not found in %s", repo, dir)
}

func resolveLocal(p string) (string, bool) {
	if fsutil.IsFile(p) {
		abs, err := filepath.Abs(p)
		if err != nil {
			return p, true
		}
		return abs, true
	}
	if fsutil.IsDir(p) {
		first, err := fsutil.FirstGGUF(p)
		if err != nil {
			return "", false
		}
		abs, err := filepath.Abs(first)
		if err != nil {
			return first, true
		}
		return abs, true
	}
	return "", false
}

func (r *Resolver) resolveHF(ctx context.Context, ref string) (string, error) {
	parts := strings.SplitN(ref, "/", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", fmt.Errorf("invalid hf repo %q: want hf://owner/repo/file", hfScheme+ref)
	}
	if !cleanRelative(ref) {
		return "", fmt.Errorf("invalid hf repo %q: path escapes cache", hfScheme+ref)
	}
	cache, err := fsutil.ExpandHome(r.CacheDir)
	if err != nil {
		return "", err
	}
	dest := filepath.Join(cache, parts[0], parts[1], filepath.FromSlash(parts[2]))
	if fsutil.IsFile(dest) {
		return dest, nil
	}
	base := r.HFBaseURL
	if base == "" {
		base = defaultHFBaseURL
	}
	url := fmt.Sprintf("%s/%s/%s/resolve/main/%s", strings.TrimRight(base, "/"), parts[0], parts[1], parts[2])
	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	if err := Download(ctx, client, url, dest, r.Progress); err != nil {
		return "", err
	}
	return dest, nil
}

// cleanRelative reports whether p is a relative slash or separator path whose
// elements are all non-empty and none is "." or "..".
func cleanRelative(p string) bool {
	if p == "" || filepath.IsAbs(p) || strings.ContainsRune(p, '\\') {
		return false
	}
	for _, el := range strings.Split(filepath.ToSlash(p), "/") {
		if el == "" || el == "." || el == ".." {
			return false
		}
	}
	return true
}
