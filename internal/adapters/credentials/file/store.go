// Package file keeps credentials in a private TOML file for machines
// without a password manager.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mastertrainer/mt/internal/domain"
	"github.com/mastertrainer/mt/internal/ports"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	DefaultFileName = "credentials.toml"

	dirMode  = 0o700
	fileMode = 0o600
)

type document struct {
	Credentials map[string]string `toml:"credentials"`
}

// Store holds every credential in one file, rewritten atomically on each
// change and never readable by other users.
type Store struct {
	path string
	mu   sync.Mutex
}

var _ ports.CredentialStore = (*Store)(nil)

func NewStore(path string) *Store {
	return &Store{path: filepath.Clean(path)}
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key, err := normalizeKey(key)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	credentials, err := s.read()
	if err != nil {
		return "", err
	}
	value, ok := credentials[key]
	if !ok {
		return "", fmt.Errorf("credential %q: %w", key, domain.ErrCredentialNotFound)
	}
	return value, nil
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := normalizeKey(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	credentials, err := s.read()
	if err != nil {
		return err
	}
	credentials[key] = value
	return s.write(credentials)
}

// Delete is idempotent and removes the file with its last credential.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := normalizeKey(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	credentials, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := credentials[key]; !ok {
		return nil
	}
	delete(credentials, key)

	if len(credentials) == 0 {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove credential file: %w", err)
		}
		return nil
	}
	return s.write(credentials)
}

func (s *Store) read() (map[string]string, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credential file: %w", err)
	}

	var doc document
	if err := toml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode credential file %s: %w", s.path, err)
	}
	if doc.Credentials == nil {
		doc.Credentials = map[string]string{}
	}
	return doc.Credentials, nil
}

func (s *Store) write(credentials map[string]string) error {
	raw, err := toml.Marshal(document{Credentials: credentials})
	if err != nil {
		return fmt.Errorf("encode credential file: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return fmt.Errorf("create credential directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+"-*")
	if err != nil {
		return fmt.Errorf("create temp credential file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if err := tmp.Chmod(fileMode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp credential file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp credential file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp credential file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("replace credential file: %w", err)
	}
	return nil
}

func normalizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("credential key is empty")
	}
	return key, nil
}
