// Package chainstore persists the artifacts of multi-target chains as a flat
// directory per session.
package chainstore

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.trai.ch/cloudbuilder/internal/core/domain"
	"go.trai.ch/zerr"
)

// Store implements ports.ChainStore below a storage root.
type Store struct {
	root string
}

// NewStore creates a Store rooted at root, creating the directory if needed.
func NewStore(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrStorageUnavailable, "failed to resolve storage root"), "cause", err.Error())
	}
	if err := os.MkdirAll(abs, domain.DirPerm); err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrStorageUnavailable, "failed to create storage root"), "path", abs)
	}
	return &Store{root: abs}, nil
}

// Root returns the storage root.
func (s *Store) Root() string {
	return s.root
}

// Create allocates a new session directory named by a random UUID.
func (s *Store) Create() (string, error) {
	session := uuid.NewString()
	if err := os.Mkdir(filepath.Join(s.root, session), domain.DirPerm); err != nil {
		return "", zerr.With(zerr.Wrap(domain.ErrStorageUnavailable, "failed to create session directory"), "cause", err.Error())
	}
	return session, nil
}

// PutArtifact writes <session>/<target>.tar and returns its path.
func (s *Store) PutArtifact(session, target string, data []byte) (string, error) {
	dir, err := s.sessionDir(session)
	if err != nil {
		return "", err
	}
	if !domain.IsPlainName(target) {
		return "", zerr.With(zerr.Wrap(domain.ErrInvalidFileName, "invalid target name"), "target", target)
	}

	path := filepath.Join(dir, target+domain.ArchiveExt)
	if err := os.WriteFile(path, data, domain.FilePerm); err != nil { //nolint:gosec // path is built from validated names
		return "", zerr.With(zerr.Wrap(domain.ErrStoreWriteFailed, "failed to write artifact"), "path", path)
	}
	return path, nil
}

// PutMeta writes <session>/config.json.
func (s *Store) PutMeta(session string, meta domain.ChainMeta) error {
	dir, err := s.sessionDir(session)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return zerr.Wrap(err, "failed to marshal chain metadata")
	}

	path := filepath.Join(dir, domain.ChainMetaFileName)
	if err := os.WriteFile(path, data, domain.FilePerm); err != nil { //nolint:gosec // path is built from validated names
		return zerr.With(zerr.Wrap(domain.ErrStoreWriteFailed, "failed to write chain metadata"), "path", path)
	}
	return nil
}

// Artifact reads the archive stored for target in session.
func (s *Store) Artifact(session, target string) ([]byte, error) {
	dir, err := s.sessionDir(session)
	if err != nil {
		return nil, err
	}
	if !domain.IsPlainName(target) {
		return nil, artifactNotFound(session, target)
	}

	data, err := os.ReadFile(filepath.Join(dir, target+domain.ArchiveExt)) //nolint:gosec // path is built from validated names
	if err != nil {
		return nil, artifactNotFound(session, target)
	}
	return data, nil
}

// Meta reads the metadata record of a completed session.
func (s *Store) Meta(session string) (domain.ChainMeta, error) {
	var meta domain.ChainMeta

	dir, err := s.sessionDir(session)
	if err != nil {
		return meta, err
	}

	data, err := os.ReadFile(filepath.Join(dir, domain.ChainMetaFileName)) //nolint:gosec // path is built from validated names
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return meta, zerr.With(zerr.Wrap(domain.ErrSessionNotFound, "session incomplete"), "session", session)
		}
		return meta, zerr.Wrap(err, "failed to read chain metadata")
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, zerr.Wrap(err, "failed to unmarshal chain metadata")
	}
	return meta, nil
}

func (s *Store) sessionDir(session string) (string, error) {
	if err := uuid.Validate(session); err != nil {
		return "", sessionNotFound(session)
	}
	dir := filepath.Join(s.root, session)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", sessionNotFound(session)
	}
	return dir, nil
}

func sessionNotFound(session string) error {
	return zerr.With(zerr.Wrap(domain.ErrSessionNotFound, "unknown chain session"), "session", session)
}

func artifactNotFound(session, target string) error {
	return zerr.With(
		zerr.With(zerr.Wrap(domain.ErrArtifactNotFound, "no artifact for target"), "session", session),
		"target", target,
	)
}
