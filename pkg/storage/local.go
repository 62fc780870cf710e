package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const metaDirName = ".runs"

// LocalStorage implements Storage using the local filesystem. Artifacts keep
// their names in the base directory; each run's manifest lives under .runs.
type LocalStorage struct {
	basePath string
	now      func() time.Time
}

// NewLocalStorage creates a new local filesystem storage
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}

	return &LocalStorage{basePath: basePath, now: time.Now}, nil
}

// Put writes the artifact to a temporary file and renames it into place so a
// failed run never leaves a truncated chart or table behind.
func (s *LocalStorage) Put(ctx context.Context, runID uuid.UUID, name string, contentType string, r io.Reader) (*FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	safeName := sanitizeFilename(name)
	if safeName == "" {
		return nil, fmt.Errorf("invalid artifact name %q", name)
	}

	tmp, err := os.CreateTemp(s.basePath, "."+safeName+".*")
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to write %s: %w", safeName, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", safeName, err)
	}

	if err := os.Rename(tmp.Name(), filepath.Join(s.basePath, safeName)); err != nil {
		return nil, fmt.Errorf("failed to move %s into place: %w", safeName, err)
	}

	info := &FileInfo{
		ID:          uuid.New(),
		RunID:       runID,
		Name:        name,
		Size:        size,
		ContentType: contentType,
		Path:        safeName,
		CreatedAt:   s.now().UTC(),
	}

	if err := s.saveMetadata(info); err != nil {
		return nil, err
	}

	return info, nil
}

// List returns the artifacts written by a run
func (s *LocalStorage) List(ctx context.Context, runID uuid.UUID) ([]*FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	metaDir := filepath.Join(s.basePath, metaDirName, runID.String())
	entries, err := os.ReadDir(metaDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []*FileInfo{}, nil
		}
		return nil, fmt.Errorf("failed to list metadata: %w", err)
	}

	files := make([]*FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		id, err := uuid.Parse(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue
		}

		info, err := s.readInfo(runID, id)
		if err != nil {
			return nil, err
		}
		files = append(files, info)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

func (s *LocalStorage) readInfo(runID, fileID uuid.UUID) (*FileInfo, error) {
	data, err := os.ReadFile(s.metaPath(runID, fileID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, fileID)
		}
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var info FileInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}

	return &info, nil
}

func (s *LocalStorage) metaPath(runID, fileID uuid.UUID) string {
	return filepath.Join(s.basePath, metaDirName, runID.String(), fileID.String()+".json")
}

// saveMetadata saves artifact metadata to a JSON file
func (s *LocalStorage) saveMetadata(info *FileInfo) error {
	metaPath := s.metaPath(info.RunID, info.ID)
	if err := os.MkdirAll(filepath.Dir(metaPath), 0755); err != nil {
		return fmt.Errorf("failed to create metadata directory: %w", err)
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	if err := os.WriteFile(metaPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	return nil
}

// sanitizeFilename removes unsafe characters from filenames
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		"..", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	return strings.TrimSpace(replacer.Replace(name))
}
