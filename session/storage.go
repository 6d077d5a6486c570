// Package session keeps small JSON values on the device, most importantly
// the logged-in warehouseman.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	"stockroom/domain"
)

// UserKey is the key the current user is stored under.
const UserKey = "warehouseman"

// Storage is a key/value store backed by a single JSON file.
type Storage struct {
	mu   sync.Mutex
	fs   afero.Fs
	path string
}

// New returns a Storage keeping its file at path on fs.
func New(fs afero.Fs, path string) *Storage {
	return &Storage{fs: fs, path: path}
}

// Store saves value under key.
func (s *Storage) Store(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("store %q: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return fmt.Errorf("store %q: %w", key, err)
	}
	data[key] = raw
	if err := s.save(data); err != nil {
		return fmt.Errorf("store %q: %w", key, err)
	}
	return nil
}

// Get decodes the value under key into dst. It reports false when the key
// is absent.
func (s *Storage) Get(key string, dst any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return false, fmt.Errorf("get %q: %w", key, err)
	}
	raw, ok := data[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("get %q: %w", key, err)
	}
	return true, nil
}

// Remove deletes key. Removing a missing key is not an error.
func (s *Storage) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return fmt.Errorf("remove %q: %w", key, err)
	}
	if _, ok := data[key]; !ok {
		return nil
	}
	delete(data, key)
	if err := s.save(data); err != nil {
		return fmt.Errorf("remove %q: %w", key, err)
	}
	return nil
}

// Clear deletes every key.
func (s *Storage) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.fs.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear: %w", err)
	}
	return nil
}

// SaveUser stores the logged-in user.
func (s *Storage) SaveUser(user domain.Warehouseman) error {
	return s.Store(UserKey, user)
}

// User returns the stored user, if any.
func (s *Storage) User() (domain.Warehouseman, bool, error) {
	var user domain.Warehouseman
	ok, err := s.Get(UserKey, &user)
	if err != nil || !ok {
		return domain.Warehouseman{}, false, err
	}
	return user, true, nil
}

// ClearUser forgets the logged-in user.
func (s *Storage) ClearUser() error {
	return s.Remove(UserKey)
}

func (s *Storage) load() (map[string]json.RawMessage, error) {
	data := make(map[string]json.RawMessage)
	b, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return data, nil
		}
		return nil, err
	}
	if len(b) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(b, &data); err != nil {
		return nil, err
	}
	return data, nil
}

func (s *Storage) save(data map[string]json.RawMessage) error {
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, b, 0o600); err != nil {
		return err
	}
	return s.fs.Rename(tmp, s.path)
}
