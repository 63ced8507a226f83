package filesystem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"quaderno/internal/application"
	"quaderno/internal/ports"
)

// Queue implements ports.OfflineQueue with one JSON file per page. A queued
// update survives restarts until the store accepts it.
type Queue struct {
	dir string
	mu  sync.Mutex
}

// Ensure Queue implements OfflineQueue
var _ ports.OfflineQueue = (*Queue)(nil)

// NewQueue creates a queue in dir, creating the directory if needed
func NewQueue(dir string) (*Queue, error) {
	dir = expandHome(dir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create queue directory: %w", err)
	}
	return &Queue{dir: dir}, nil
}

// Dir returns the queue directory
func (q *Queue) Dir() string {
	return q.dir
}

// Get returns the queued update for a page, or nil when there is none
func (q *Queue) Get(_ context.Context, pageID string) (*ports.QueuedUpdate, error) {
	path, err := q.path(pageID)
	if err != nil {
		return nil, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	u, err := readUpdate(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return u, err
}

// Put stores an update, replacing any earlier one for the same page
func (q *Queue) Put(_ context.Context, u ports.QueuedUpdate) error {
	path, err := q.path(u.PageID)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(u, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode update: %w", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	return writeFileAtomic(path, data)
}

// Delete removes the queued update for a page. Deleting a missing update
// is not an error.
func (q *Queue) Delete(_ context.Context, pageID string) error {
	path, err := q.path(pageID)
	if err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove queued update: %w", err)
	}
	return nil
}

// List returns every queued update
func (q *Queue) List(context.Context) ([]ports.QueuedUpdate, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	entries, err := os.ReadDir(q.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read queue: %w", err)
	}

	var updates []ports.QueuedUpdate
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		u, err := readUpdate(filepath.Join(q.dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		updates = append(updates, *u)
	}
	return updates, nil
}

func (q *Queue) path(pageID string) (string, error) {
	if pageID == "" || strings.ContainsAny(pageID, `/\`) || strings.HasPrefix(pageID, ".") {
		return "", fmt.Errorf("%w: %q", application.ErrInvalidID, pageID)
	}
	return filepath.Join(q.dir, pageID+".json"), nil
}

func readUpdate(path string) (*ports.QueuedUpdate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var u ports.QueuedUpdate
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return &u, nil
}

// writeFileAtomic writes through a temp file so readers never see a
// partial update
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~") {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[1:])
	}
	return path
}
