package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"paperduel/internal/domain"
)

// Compile-time interface check.
var _ RunStore = (*FileStore)(nil)

// FileStore persists each run as a JSON document <runsDir>/<runID>.json.
// Writes go through a temp file plus rename so a concurrent Get never sees
// a partially written run.
type FileStore struct {
	runsDir string
}

// NewFileStore creates runsDir if needed and returns a file-backed store.
func NewFileStore(runsDir string) (*FileStore, error) {
	if err := os.MkdirAll(runsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create runs dir: %w", err)
	}
	return &FileStore{runsDir: runsDir}, nil
}

func (s *FileStore) runPath(runID string) string {
	return filepath.Join(s.runsDir, runID+".json")
}

// Put writes the result atomically to its run document.
func (s *FileStore) Put(_ context.Context, result *domain.RunResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run %s: %w", result.RunID, err)
	}

	tmp, err := os.CreateTemp(s.runsDir, ".run-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.runPath(result.RunID))
}

// Get reads the run document, or ErrNotFound if it does not exist.
func (s *FileStore) Get(_ context.Context, runID string) (*domain.RunResult, error) {
	data, err := os.ReadFile(s.runPath(runID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var result domain.RunResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", runID, err)
	}
	return &result, nil
}

// List returns the IDs of all stored runs, sorted ascending.
func (s *FileStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.runsDir)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}
