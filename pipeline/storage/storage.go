// Package storage defines where Bronze files are read from and where Silver
// files are put. Keys are slash-separated paths relative to a store root.
package storage

import (
	"context"
	"io"
	"path"
	"strings"

	"github.com/gear6io/wwi-etl/pkg/errors"
)

var StorageInvalidKey = errors.MustNewCode("storage.invalid_key")

// Source opens objects for reading. A missing object is reported with
// pipeline.missing_source.
type Source interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// Sink stores objects. Put either fully replaces key or leaves it untouched.
type Sink interface {
	Put(ctx context.Context, key string, r io.Reader, size int64) error
}

// Lister enumerates keys under a prefix in lexical order
type Lister interface {
	List(ctx context.Context, prefix string) ([]string, error)
}

// Store is a Source, a Sink and a Lister
type Store interface {
	Source
	Sink
	Lister
}

// CleanKey normalizes key and rejects absolute paths and keys that escape
// the root.
func CleanKey(key string) (string, error) {
	k := strings.ReplaceAll(key, "\\", "/")
	if k == "" || strings.HasPrefix(k, "/") {
		return "", errors.Newf(StorageInvalidKey, "invalid object key %q", key)
	}
	k = path.Clean(k)
	if k == "." || k == ".." || strings.HasPrefix(k, "../") {
		return "", errors.Newf(StorageInvalidKey, "object key %q escapes the store root", key)
	}
	return k, nil
}

// JoinKey joins a prefix and a key with exactly one slash
func JoinKey(prefix, key string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return key
	}
	return prefix + "/" + strings.TrimPrefix(key, "/")
}
