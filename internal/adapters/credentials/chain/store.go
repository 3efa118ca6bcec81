// Package chain tries a list of credential backends in order.
package chain

import (
	"context"
	"errors"
	"fmt"

	filestore "github.com/mastertrainer/mt/internal/adapters/credentials/file"
	passstore "github.com/mastertrainer/mt/internal/adapters/credentials/pass"
	"github.com/mastertrainer/mt/internal/domain"
	"github.com/mastertrainer/mt/internal/ports"
)

var ErrNoBackends = errors.New("credential chain needs at least one backend")

// Store writes to the first backend that accepts a value and reads from the
// first that has it. Deletes reach every backend so that an older copy in a
// later backend cannot come back after logout. A cancelled or expired
// context stops the walk.
type Store struct {
	backends []ports.CredentialStore
}

var _ ports.CredentialStore = (*Store)(nil)

func NewStore(backends ...ports.CredentialStore) (*Store, error) {
	if len(backends) == 0 {
		return nil, ErrNoBackends
	}
	for i, backend := range backends {
		if backend == nil {
			return nil, fmt.Errorf("credential backend %d is nil", i)
		}
	}
	return &Store{backends: backends}, nil
}

// NewPassWithFileFallback prefers the pass password manager and keeps
// tokens in the file at filePath when pass is missing or fails.
func NewPassWithFileFallback(filePath string, passOpts ...passstore.Option) (*Store, error) {
	return NewStore(passstore.NewStore(passOpts...), filestore.NewStore(filePath))
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	var errs []error
	for _, backend := range s.backends {
		err := backend.Put(ctx, key, value)
		if err == nil {
			return nil
		}
		if contextDone(err) {
			return err
		}
		errs = append(errs, err)
	}
	return fmt.Errorf("store credential %q: %w", key, errors.Join(errs...))
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var errs []error
	missing := 0
	for _, backend := range s.backends {
		value, err := backend.Get(ctx, key)
		if err == nil {
			return value, nil
		}
		if contextDone(err) {
			return "", err
		}
		if errors.Is(err, domain.ErrCredentialNotFound) {
			missing++
		}
		errs = append(errs, err)
	}

	if missing == len(s.backends) {
		return "", fmt.Errorf("credential %q: %w", key, domain.ErrCredentialNotFound)
	}
	return "", fmt.Errorf("read credential %q: %w", key, errors.Join(errs...))
}

// Delete succeeds when at least one backend removed the key.
func (s *Store) Delete(ctx context.Context, key string) error {
	var errs []error
	for _, backend := range s.backends {
		err := backend.Delete(ctx, key)
		if contextDone(err) {
			return err
		}
		if err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) == len(s.backends) {
		return fmt.Errorf("delete credential %q: %w", key, errors.Join(errs...))
	}
	return nil
}

func contextDone(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
