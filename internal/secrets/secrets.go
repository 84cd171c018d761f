package secrets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var keyPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ErrInvalidKey is returned for names that cannot be environment variables.
var ErrInvalidKey = errors.New("use letters, numbers, and underscores only")

// ValidKey reports whether key can be used as an environment variable name.
func ValidKey(key string) bool {
	return keyPattern.MatchString(key)
}

// DefaultDir returns $XDG_CONFIG_HOME/safeclaw/.secrets, falling back to
// ~/.config when XDG_CONFIG_HOME is unset.
func DefaultDir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = os.Getenv("HOME")
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "safeclaw", ".secrets")
}

// Store is a flat directory of secrets: one regular file per variable,
// file name = variable name, contents = value.
type Store struct {
	Dir string
}

// New returns a store rooted at dir, or DefaultDir when dir is empty.
func New(dir string) *Store {
	if dir == "" {
		dir = DefaultDir()
	}
	return &Store{Dir: dir}
}

// List returns the variable names in sorted order. A missing directory
// holds no keys.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read secrets dir %s: %w", s.Dir, err)
	}

	var keys []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			keys = append(keys, e.Name())
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Env returns KEY=value pairs with values trimmed of surrounding whitespace.
func (s *Store) Env() ([]string, error) {
	keys, err := s.List()
	if err != nil {
		return nil, err
	}

	env := make([]string, 0, len(keys))
	for _, k := range keys {
		data, err := os.ReadFile(filepath.Join(s.Dir, k))
		if err != nil {
			return nil, fmt.Errorf("failed to read secret %s: %w", k, err)
		}
		env = append(env, k+"="+strings.TrimSpace(string(data)))
	}
	return env, nil
}

// Set writes a secret with owner-only permissions.
func (s *Store) Set(key, value string) error {
	if !ValidKey(key) {
		return ErrInvalidKey
	}
	if value == "" {
		return errors.New("value is required")
	}
	if err := os.MkdirAll(s.Dir, 0700); err != nil {
		return fmt.Errorf("failed to create secrets dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.Dir, key), []byte(value), 0600); err != nil {
		return fmt.Errorf("failed to write secret %s: %w", key, err)
	}
	return nil
}

// Delete removes a secret.
func (s *Store) Delete(key string) error {
	if !ValidKey(key) {
		return ErrInvalidKey
	}
	if err := os.Remove(filepath.Join(s.Dir, key)); err != nil {
		return fmt.Errorf("failed to delete secret %s: %w", key, err)
	}
	return nil
}

// Path returns the file backing key.
func (s *Store) Path(key string) string {
	return filepath.Join(s.Dir, key)
}
