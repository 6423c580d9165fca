package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"pagesmith/internal/session"
	"pagesmith/internal/version"
)

// FileStore keeps each document as one JSON file under dir.
type FileStore struct {
	mu  sync.Mutex
	dir string
}

func NewFile(dir string) *FileStore {
	if dir == "" {
		dir = filepath.Join("tmp", "pagesmith")
	}
	return &FileStore{dir: dir}
}

func (s *FileStore) SaveSessions(_ context.Context, sessions []session.Session) error {
	return s.write(keySessions, sessions)
}

func (s *FileStore) LoadSessions(_ context.Context) ([]session.Session, error) {
	var out []session.Session
	if err := s.read(keySessions, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *FileStore) SaveVersions(_ context.Context, entries []version.Entry) error {
	return s.write(keyVersions, entries)
}

func (s *FileStore) LoadVersions(_ context.Context) ([]version.Entry, error) {
	var out []version.Entry
	if err := s.read(keyVersions, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *FileStore) SaveDraft(_ context.Context, draft *session.Draft) error {
	if draft == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		err := os.Remove(s.path(keyDraft))
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	return s.write(keyDraft, draft)
}

func (s *FileStore) LoadDraft(_ context.Context) (*session.Draft, error) {
	var out session.Draft
	if err := s.read(keyDraft, &out); err != nil {
		return nil, err
	}
	if out.SavedAt.IsZero() && out.Prompt == "" {
		return nil, nil
	}
	return &out, nil
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func (s *FileStore) write(key string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("persist: marshal %s: %w", key, err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("persist: mkdir %s: %w", s.dir, err)
	}
	if err := os.WriteFile(s.path(key), data, 0o644); err != nil {
		return fmt.Errorf("persist: write %s: %w", key, err)
	}
	return nil
}

func (s *FileStore) read(key string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("persist: read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("persist: decode %s: %w", key, err)
	}
	return nil
}
