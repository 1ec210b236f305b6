package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	// PathEnv overrides the default config file location.
	PathEnv = "CHATSWEEP_CONFIG"

	fileVersion = "1.0"
)

// Store persists section data.
type Store interface {
	Load() error
	Save() error
	GetSection(sectionID string) (map[string]any, error)
	SetSection(sectionID string, data map[string]any) error
	GetAll() (map[string]map[string]any, error)
	SetAll(data map[string]map[string]any) error
}

type fileLayout struct {
	Version  string                    `json:"version"`
	Sections map[string]map[string]any `json:"sections"`
}

// FileStore keeps all sections in one JSON document.
type FileStore struct {
	path     string
	data     map[string]map[string]any
	mu       sync.RWMutex
	version  string
	modified bool
}

// DefaultPath returns $CHATSWEEP_CONFIG or ~/.chatsweep/config.json.
func DefaultPath() (string, error) {
	if p := os.Getenv(PathEnv); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".chatsweep", "config.json"), nil
}

// NewFileStore opens the store at path, or DefaultPath when path is empty.
// A missing file is not an error.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	s := &FileStore{
		path:    path,
		data:    make(map[string]map[string]any),
		version: fileVersion,
	}
	if err := s.Load(); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	return s, nil
}

// Load replaces the in-memory data with the file contents.
func (s *FileStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.data = make(map[string]map[string]any)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}

	var doc fileLayout
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("failed to decode config file: %w", err)
	}

	if doc.Version != "" {
		s.version = doc.Version
	}
	s.data = doc.Sections
	if s.data == nil {
		s.data = make(map[string]map[string]any)
	}
	s.modified = false
	return nil
}

// Save writes the document through a temp file and rename.
func (s *FileStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	out, err := json.MarshalIndent(fileLayout{Version: s.version, Sections: s.data}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, append(out, '\n'), 0600); err != nil {
		return fmt.Errorf("failed to write temp config file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	s.modified = false
	return nil
}

// GetSection returns a copy of one section. Unknown sections are empty.
func (s *FileStore) GetSection(sectionID string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSection(s.data[sectionID]), nil
}

// SetSection stores a copy of data under sectionID.
func (s *FileStore) SetSection(sectionID string, data map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sectionID] = cloneSection(data)
	s.modified = true
	return nil
}

// GetAll returns a deep copy of every section.
func (s *FileStore) GetAll() (map[string]map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.data), nil
}

// SetAll replaces every section.
func (s *FileStore) SetAll(data map[string]map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = cloneAll(data)
	s.modified = true
	return nil
}

// IsModified reports unsaved changes.
func (s *FileStore) IsModified() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modified
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

func cloneSection(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneAll(in map[string]map[string]any) map[string]map[string]any {
	out := make(map[string]map[string]any, len(in))
	for id, sec := range in {
		out[id] = cloneSection(sec)
	}
	return out
}
