package filesystem

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gear6io/wwi-etl/pipeline/storage"
	"github.com/gear6io/wwi-etl/pkg/errors"
)

// Package-specific error codes for filesystem storage
var (
	FileStorageOpenFailed      = errors.MustNewCode("filesystem.open_failed")
	FileStorageCreateDirFailed = errors.MustNewCode("filesystem.create_dir_failed")
	FileStorageListFailed      = errors.MustNewCode("filesystem.list_failed")
	FileStorageSweepFailed     = errors.MustNewCode("filesystem.sweep_failed")
)

// tempMarker appears in the name of every in-flight write
const tempMarker = ".tmp-"

// Store keeps objects as files under Root
type Store struct {
	Root string
}

func New(root string) *Store {
	return &Store{Root: root}
}

// Path resolves key to a file path under Root
func (s *Store) Path(key string) (string, error) {
	k, err := storage.CleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.Root, filepath.FromSlash(k)), nil
}

func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.New(errors.CommonTimeout, "open cancelled", err)
	}
	p, err := s.Path(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(p)
	if os.IsNotExist(err) {
		return nil, errors.New(errors.PipelineMissingSource, "source file not found", err).AddContext("path", p)
	}
	if err != nil {
		return nil, errors.New(FileStorageOpenFailed, "failed to open file", err).AddContext("path", p)
	}
	if info, err := f.Stat(); err == nil && info.IsDir() {
		f.Close()
		return nil, errors.New(errors.PipelineMissingSource, "source path is a directory", nil).AddContext("path", p)
	}
	return f, nil
}

// Put writes r to a hidden temp file next to the destination, syncs it and
// renames it into place. A failed Put leaves no file under the final name.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	p, err := s.Path(key)
	if err != nil {
		return err
	}
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.New(FileStorageCreateDirFailed, "failed to create directory", err).AddContext("path", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(p)+tempMarker+"*")
	if err != nil {
		return errors.New(errors.PipelineWriteFailed, "failed to create temp file", err).AddContext("path", p)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	n, err := io.Copy(tmp, contextReader{ctx: ctx, r: r})
	if err != nil {
		return errors.New(errors.PipelineWriteFailed, "failed to write file", err).AddContext("path", p)
	}
	if size >= 0 && n != size {
		return errors.Newf(errors.PipelineWriteFailed, "short write: %d of %d bytes", n, size).AddContext("path", p)
	}
	if err := tmp.Sync(); err != nil {
		return errors.New(errors.PipelineWriteFailed, "failed to sync file", err).AddContext("path", p)
	}
	if err := tmp.Close(); err != nil {
		return errors.New(errors.PipelineWriteFailed, "failed to close file", err).AddContext("path", p)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return errors.New(errors.PipelineWriteFailed, "failed to set file mode", err).AddContext("path", p)
	}
	if err := os.Rename(tmpName, p); err != nil {
		return errors.New(errors.PipelineWriteFailed, "failed to move file into place", err).AddContext("path", p)
	}
	committed = true
	return nil
}

// List returns keys of regular files under prefix, skipping in-flight temp
// files. A missing root yields no keys.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(s.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && p == s.Root {
				return filepath.SkipDir
			}
			return err
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if d.IsDir() || isTemp(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(s.Root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, errors.New(FileStorageListFailed, "failed to list files", err).AddContext("root", s.Root)
	}
	sort.Strings(keys)
	return keys, nil
}

// Sweep deletes temp files left behind by interrupted writes and returns how
// many were removed.
func (s *Store) Sweep() (int, error) {
	removed := 0
	err := filepath.WalkDir(s.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && p == s.Root {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() || !isTemp(d.Name()) {
			return nil
		}
		if err := os.Remove(p); err != nil {
			return err
		}
		removed++
		return nil
	})
	if err != nil {
		return removed, errors.New(FileStorageSweepFailed, "failed to sweep temp files", err).AddContext("root", s.Root)
	}
	return removed, nil
}

func isTemp(name string) bool {
	return strings.HasPrefix(name, ".") && strings.Contains(name, tempMarker)
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
