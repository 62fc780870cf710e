// Package storage persists report artifacts and a per-run manifest of what was
// written.
package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned for unknown runs or files.
var ErrNotFound = errors.New("artifact not found")

// FileInfo contains metadata about a stored artifact
type FileInfo struct {
	ID          uuid.UUID `json:"id"`
	RunID       uuid.UUID `json:"run_id"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	Path        string    `json:"path"` // Relative to the storage root
	CreatedAt   time.Time `json:"created_at"`
}

// Storage defines the interface for artifact storage operations
type Storage interface {
	// Put stores an artifact under its name, replacing any previous version
	Put(ctx context.Context, runID uuid.UUID, name string, contentType string, r io.Reader) (*FileInfo, error)

	// List returns the artifacts written by a run, ordered by name
	List(ctx context.Context, runID uuid.UUID) ([]*FileInfo, error)
}

// Config holds storage configuration
type Config struct {
	Dir string `env:"REPORT_DIR" envDefault:"./report"`
}

// New creates the storage backend for cfg
func New(cfg *Config) (Storage, error) {
	return NewLocalStorage(cfg.Dir)
}
