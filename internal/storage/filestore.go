package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Object describes one stored audio file.
type Object struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// FileStore persists podcast audio under a single directory and hands out
// public URLs for the stored objects. Object names sort chronologically.
type FileStore struct {
	dir     string
	baseURL string
}

// NewFileStore opens (creating if needed) the store directory.
func NewFileStore(dir, publicBaseURL string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir %s: %w", dir, err)
	}
	return &FileStore{
		dir:     dir,
		baseURL: strings.TrimSuffix(publicBaseURL, "/"),
	}, nil
}

// ObjectName builds the sortable name for a run's artifact.
func ObjectName(runID string, now time.Time) string {
	id := runID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("%s_%s.mp3", now.UTC().Format("20060102T150405Z"), id)
}

// Put writes the audio bytes and returns the object's public URL. An
// existing object of the same name is overwritten, so retried writes are
// safe.
func (s *FileStore) Put(name string, data []byte) (string, error) {
	if filepath.Base(name) != name {
		return "", fmt.Errorf("invalid object name %q", name)
	}
	tmp := filepath.Join(s.dir, name+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write object %s: %w", name, err)
	}
	if err := os.Rename(tmp, filepath.Join(s.dir, name)); err != nil {
		return "", fmt.Errorf("finalize object %s: %w", name, err)
	}
	return s.URL(name), nil
}

// URL returns the public address for a stored object.
func (s *FileStore) URL(name string) string {
	return s.baseURL + "/" + name
}

// Dir exposes the backing directory for static file serving.
func (s *FileStore) Dir() string {
	return s.dir
}

// List returns the stored objects, oldest first.
func (s *FileStore) List() ([]Object, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list store: %w", err)
	}
	objects := make([]Object, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), ".tmp") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		objects = append(objects, Object{Name: e.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Name < objects[j].Name })
	return objects, nil
}

// Delete removes an object. Deleting a missing object is not an error.
func (s *FileStore) Delete(name string) error {
	if filepath.Base(name) != name {
		return fmt.Errorf("invalid object name %q", name)
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete object %s: %w", name, err)
	}
	return nil
}

// Stats reports object count and total size, surfaced by the status
// endpoint.
func (s *FileStore) Stats() (int, int64, error) {
	objects, err := s.List()
	if err != nil {
		return 0, 0, err
	}
	var total int64
	for _, o := range objects {
		total += o.Size
	}
	return len(objects), total, nil
}
