package env

import (
	"context"
	"os"
	"strings"

	"github.com/mastertrainer/mt/internal/ports"
)

// Store serves Key from an environment variable and delegates every other
// operation to next. The variable always wins over stored values.
type Store struct {
	key    string
	name   string
	next   ports.CredentialStore
	lookup func(string) (string, bool)
}

var _ ports.CredentialStore = (*Store)(nil)

func NewStore(key, variable string, next ports.CredentialStore) *Store {
	return &Store{key: key, name: variable, next: next, lookup: os.LookupEnv}
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if key == s.key {
		if value, ok := s.lookup(s.name); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value), nil
		}
	}
	return s.next.Get(ctx, key)
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	return s.next.Put(ctx, key, value)
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.next.Delete(ctx, key)
}
