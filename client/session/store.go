// Package session holds the bearer token between runs and keeps it fresh.
//
// The token lives in a JSON file under the user config directory. Expiry is
// read from the token itself (the exp claim) so no server round trip is
// needed to decide whether a refresh is due.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store persists the access token in a JSON file.
type Store struct {
	mu    sync.Mutex
	path  string
	token string
	// loaded guards the lazy first read of the file.
	loaded bool
}

// DefaultPath returns the session file location under the user config dir.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve config dir: %w", err)
	}
	return filepath.Join(dir, "asset-tracker", "session.json"), nil
}

// NewStore creates a store backed by the given file path. The file is
// created on first SetToken.
func NewStore(path string) *Store {
	return &Store{path: path}
}

type sessionFile struct {
	AccessToken string `json:"access_token"`
}

// Token returns the stored token, or "" when none is saved.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.load()
	return s.token
}

// SetToken saves a new token, replacing any previous one.
func (s *Store) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
	s.loaded = true
	return s.write(sessionFile{AccessToken: token})
}

// Clear removes the stored token.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	s.loaded = true
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

// load reads the session file once. A missing or corrupt file means no
// session.
func (s *Store) load() {
	if s.loaded {
		return
	}
	s.loaded = true

	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}
	var f sessionFile
	if err := json.Unmarshal(data, &f); err != nil {
		return
	}
	s.token = f.AccessToken
}

func (s *Store) write(f sessionFile) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create session dir: %w", err)
	}
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}
