// Package objstore pre-fetches adapter weights from remote object storage.
package objstore

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidURI is returned for storage URIs that do not match gs://bucket/key.
var ErrInvalidURI = errors.New("invalid storage uri")

var gcsURIPattern = regexp.MustCompile(`^gs://([^/]+)/(.+)$`)

// IsRemote reports whether uri uses an object storage scheme.
func IsRemote(uri string) bool {
	return strings.Contains(uri, "://")
}

// ParseGCSURI splits gs://bucket/key into bucket and object key (or prefix).
func ParseGCSURI(uri string) (bucket, key string, err error) {
	m := gcsURIPattern.FindStringSubmatch(strings.TrimSpace(uri))
	if m == nil {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidURI, uri)
	}
	return m[1], m[2], nil
}
