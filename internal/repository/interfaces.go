package repository

import (
	"context"

	"visitstats/internal/domain"
)

// VisitStore persists and restores the visit index. It never mutates the
// live index; it only reads snapshots handed to Save and returns new ones
// from Load.
type VisitStore interface {
	// Load returns the last saved snapshot, or nil with no error when
	// nothing has been saved yet. Unreadable state is an error.
	Load(ctx context.Context) (*domain.Snapshot, error)

	// Save replaces the stored state with s. A crash part way through
	// must leave the previous state loadable.
	Save(ctx context.Context, s *domain.Snapshot) error

	// Close releases the backend
	Close() error
}

// Backend names accepted by STORE_BACKEND
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)
