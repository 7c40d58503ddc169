// Package workspace allocates the per-job directories builds are materialized into.
package workspace

import (
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/cloudbuilder/internal/core/domain"
	"go.trai.ch/zerr"
)

// Store implements ports.WorkspaceStore on a root directory.
type Store struct {
	root string
}

// NewStore creates a Store rooted at root. The root is created if missing.
func NewStore(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrStorageUnavailable, "failed to resolve workspace root"), "cause", err.Error())
	}
	if err := os.MkdirAll(abs, domain.DirPerm); err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrStorageUnavailable, "failed to create workspace root"), "cause", err.Error())
	}
	return &Store{root: abs}, nil
}

// Root returns the absolute root directory.
func (s *Store) Root() string {
	return s.root
}

// Allocate creates a uniquely named directory. os.MkdirTemp only appends digits to
// the prefix, so ids stay lowercase alphanumeric.
func (s *Store) Allocate() (id, path string, err error) {
	path, err = os.MkdirTemp(s.root, domain.WorkspacePrefix)
	if err != nil {
		return "", "", zerr.With(zerr.Wrap(domain.ErrStorageUnavailable, "failed to allocate workspace"), "cause", err.Error())
	}
	return filepath.Base(path), path, nil
}

// Release removes the directory of id.
func (s *Store) Release(id string) error {
	if !strings.HasPrefix(id, domain.WorkspacePrefix) || !domain.IsPlainName(id) {
		return zerr.With(zerr.Wrap(domain.ErrJobNotFound, "refusing to release workspace"), "job_id", id)
	}
	if err := os.RemoveAll(filepath.Join(s.root, id)); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to remove workspace"), "job_id", id)
	}
	return nil
}
