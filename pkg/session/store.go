package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Bundle is the persisted authenticated session state: cookies plus the
// client-fingerprint headers that were active when the session was created.
// Consumers treat it as opaque; only the manager builds or replaces one.
type Bundle struct {
	Username     string            `json:"username"`
	UserID       string            `json:"user_id,omitempty"`
	Cookies      map[string]string `json:"cookies"`
	Headers      map[string]string `json:"headers,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	LastVerified time.Time         `json:"last_verified"`
}

// Valid reports whether the bundle carries the minimum state needed to
// authenticate requests
func (b *Bundle) Valid() bool {
	return b != nil && b.Cookies["sessionid"] != ""
}

// Store persists a session bundle as a whole-file-replaced JSON document
type Store struct {
	path string
}

// NewStore creates a store backed by the given file path
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path
func (s *Store) Path() string {
	return s.path
}

// Load reads the persisted bundle. A missing file is not an error; it
// returns (nil, nil) so the caller falls through to a fresh login.
func (s *Store) Load() (*Bundle, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var bundle Bundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		// A corrupt session file is equivalent to no session
		return nil, nil
	}

	return &bundle, nil
}

// Save replaces the persisted bundle wholesale. The write goes through a
// temporary file and rename so a crash never leaves a torn session file.
func (s *Store) Save(bundle *Bundle) error {
	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create session directory: %w", err)
		}
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace session file: %w", err)
	}

	return nil
}

// Delete removes the persisted session
func (s *Store) Delete() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete session file: %w", err)
	}
	return nil
}
