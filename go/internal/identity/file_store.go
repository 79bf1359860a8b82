package identity

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// FileStore persists the session-to-name map as a YAML document on this device.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a store backed by the file at path. The file and its
// directory are created on first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultFilePath returns the per-user location for the identity file.
func DefaultFilePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "planpoker", "session-users.yaml"), nil
}

func (s *FileStore) Get(_ context.Context, sessionID uuid.UUID) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names, err := s.load()
	if err != nil {
		return "", err
	}
	return names[sessionID.String()], nil
}

func (s *FileStore) Set(_ context.Context, sessionID uuid.UUID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	names, err := s.load()
	if err != nil {
		return err
	}
	names[sessionID.String()] = name
	return s.save(names)
}

func (s *FileStore) Remove(_ context.Context, sessionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	names, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := names[sessionID.String()]; !ok {
		return nil
	}
	delete(names, sessionID.String())
	return s.save(names)
}

func (s *FileStore) load() (map[string]string, error) {
	names := make(map[string]string)

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return names, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read identity file: %w", err)
	}

	if err := yaml.Unmarshal(data, &names); err != nil {
		return nil, fmt.Errorf("parse identity file: %w", err)
	}
	if names == nil {
		names = make(map[string]string)
	}
	return names, nil
}

func (s *FileStore) save(names map[string]string) error {
	data, err := yaml.Marshal(names)
	if err != nil {
		return fmt.Errorf("marshal identity file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create identity dir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write identity file: %w", err)
	}
	return nil
}
