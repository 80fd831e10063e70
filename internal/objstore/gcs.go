package objstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"
)

// GCSFetcher downloads objects from Google Cloud Storage. The client is
// created on first use so processes without credentials only fail when an
// adapter actually needs it.
type GCSFetcher struct {
	log zerolog.Logger

	mu     sync.Mutex
	client *storage.Client
}

// NewGCSFetcher returns a fetcher using application default credentials.
func NewGCSFetcher(log zerolog.Logger) *GCSFetcher {
	return &GCSFetcher{log: log.With().Str("component", "gcs").Logger()}
}

func (f *GCSFetcher) storageClient(ctx context.Context) (*storage.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.client != nil {
		return f.client, nil
	}
	c, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	f.client = c
	return c, nil
}

// Fetch downloads uri into dest. A URI naming a single object is written to
// the file dest; a prefix is mirrored under the directory dest.
func (f *GCSFetcher) Fetch(ctx context.Context, uri, dest string) error {
	bucket, key, err := ParseGCSURI(uri)
	if err != nil {
		return err
	}
	client, err := f.storageClient(ctx)
	if err != nil {
		return err
	}
	bkt := client.Bucket(bucket)
	it := bkt.Objects(ctx, &storage.Query{Prefix: key})
	fetched := 0
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return fmt.Errorf("list gs://%s/%s: %w", bucket, key, err)
		}
		if strings.HasSuffix(attrs.Name, "/") {
			continue
		}
		target, ok := localPath(key, attrs.Name, dest)
		if !ok {
			continue
		}
		if err := f.copyObject(ctx, bkt.Object(attrs.Name), target); err != nil {
			return err
		}
		f.log.Debug().Str("object", attrs.Name).Str("dest", target).Msg("fetched object")
		fetched++
	}
	if fetched == 0 {
		return fmt.Errorf("no objects found at %s", uri)
	}
	return nil
}

func (f *GCSFetcher) copyObject(ctx context.Context, obj *storage.ObjectHandle, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	r, err := obj.NewReader(ctx)
	if err != nil {
		return fmt.Errorf("open %s: %w", obj.ObjectName(), err)
	}
	defer func() { _ = r.Close() }()
	tmp := target + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy %s: %w", obj.ObjectName(), err)
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, target)
}

// Close releases the underlying client, if one was created.
func (f *GCSFetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.client == nil {
		return nil
	}
	err := f.client.Close()
	f.client = nil
	return err
}

// localPath maps an object name under key to a path under dest. Objects that
// only share a string prefix with key (key "a/b" vs object "a/bc") are skipped.
func localPath(key, object, dest string) (string, bool) {
	if object == key {
		return dest, true
	}
	prefix := strings.TrimSuffix(key, "/") + "/"
	if !strings.HasPrefix(object, prefix) {
		return "", false
	}
	rel := strings.TrimPrefix(object, prefix)
	if rel == "" || strings.Contains(rel, "..") {
		return "", false
	}
	return filepath.Join(dest, filepath.FromSlash(rel)), true
}
