// Package jsonfile keeps user records in a single JSON document keyed by
// username. The whole document is rewritten on every registration.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pyrechat/pyre-server/internal/store"
)

// FileStore implements store.UserStore on top of one JSON file.
type FileStore struct {
	path string

	mu    sync.RWMutex
	users map[string]store.User
}

// New opens the users file at path, loading existing records. A missing
// file is treated as an empty store and created on first write.
func New(path string) (*FileStore, error) {
	users, err := load(path)
	if err != nil {
		return nil, err
	}
	return &FileStore{path: path, users: users}, nil
}

// CreateUser adds the user and rewrites the file. On write failure the
// in-memory state is left untouched.
func (s *FileStore) CreateUser(_ context.Context, user store.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.Username]; exists {
		return store.ErrUserExists
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	next := make(map[string]store.User, len(s.users)+1)
	for k, v := range s.users {
		next[k] = v
	}
	next[user.Username] = user

	if err := s.write(next); err != nil {
		return err
	}
	s.users = next
	return nil
}

// GetUser returns a copy of the stored record.
func (s *FileStore) GetUser(_ context.Context, username string) (*store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[username]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return &user, nil
}

// Close is a no-op; every write is flushed when CreateUser returns.
func (s *FileStore) Close() error {
	return nil
}

func load(path string) (map[string]store.User, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return make(map[string]store.User), nil
		}
		return nil, fmt.Errorf("read users file: %w", err)
	}

	users := make(map[string]store.User)
	if len(data) == 0 {
		return users, nil
	}
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("decode users file: %w", err)
	}
	return users, nil
}

// write replaces the file atomically via a temp file in the same directory.
func (s *FileStore) write(users map[string]store.User) error {
	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return fmt.Errorf("encode users: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create users dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp users file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write users file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close users file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace users file: %w", err)
	}
	return nil
}
