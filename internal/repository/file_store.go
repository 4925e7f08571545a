package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"visitstats/internal/domain"
	apperrors "visitstats/pkg/errors"
)

// fileStore keeps the snapshot in one JSON file
type fileStore struct {
	path string
}

// NewFileStore creates a store backed by the JSON file at path
func NewFileStore(path string) (VisitStore, error) {
	if path == "" {
		return nil, fmt.Errorf("state file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, apperrors.NewStorageError("failed to create state directory", err)
	}
	return &fileStore{path: path}, nil
}

// Load reads the snapshot file. A missing file is a fresh start.
func (s *fileStore) Load(ctx context.Context) (*domain.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, apperrors.NewStorageError("failed to read state file", err)
	}

	snapshot := &domain.Snapshot{}
	if err := json.Unmarshal(data, snapshot); err != nil {
		return nil, apperrors.NewStorageError("failed to decode state file", corrupt("%s: %v", s.path, err))
	}

	return snapshot, nil
}

// Save writes to a temp file in the same directory, syncs it, then renames
// it over the previous state.
func (s *fileStore) Save(ctx context.Context, snapshot *domain.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return apperrors.NewStorageError("save cancelled", err)
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return apperrors.NewStorageError("failed to encode snapshot", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return apperrors.NewStorageError("failed to create temp state file", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return apperrors.NewStorageError("failed to write temp state file", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return apperrors.NewStorageError("failed to sync temp state file", err)
	}
	if err := tmp.Close(); err != nil {
		return apperrors.NewStorageError("failed to close temp state file", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return apperrors.NewStorageError("failed to replace state file", err)
	}

	// persist the rename itself; not every platform can fsync a directory
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		d.Close()
	}

	return nil
}

func (s *fileStore) Close() error {
	return nil
}
