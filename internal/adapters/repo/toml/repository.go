// Package toml keeps the CLI's roleplay state in a TOML file so that
// separate invocations continue the same session.
package toml

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mastertrainer/mt/internal/domain"
	"github.com/mastertrainer/mt/internal/ports"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	StatePathKey = "state.path"

	defaultDir      = ".mastertrainer"
	defaultFileName = "state.toml"
	fileMode        = 0o600
	dirMode         = 0o700
	maxRecent       = 10
)

// Repository is safe for concurrent use. Repositories opened on the same
// path share one lock.
type Repository struct {
	path  string
	clock ports.Clock
	lock  *sync.RWMutex
}

var _ ports.StateRepository = (*Repository)(nil)

var (
	locksMu sync.Mutex
	locks   = map[string]*sync.RWMutex{}
)

func sharedLock(path string) *sync.RWMutex {
	locksMu.Lock()
	defer locksMu.Unlock()

	lock, ok := locks[path]
	if !ok {
		lock = &sync.RWMutex{}
		locks[path] = lock
	}
	return lock
}

// NewRepository reads the state path from cfg, defaulting to
// ~/.mastertrainer/state.toml.
func NewRepository(cfg *viper.Viper, clock ports.Clock) (*Repository, error) {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	path := ""
	if cfg != nil {
		path = cfg.GetString(StatePathKey)
	}
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		path = DefaultPath(homeDir)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve state path: %w", err)
	}

	return &Repository{path: abs, clock: clock, lock: sharedLock(abs)}, nil
}

func DefaultPath(homeDir string) string {
	return filepath.Join(homeDir, defaultDir, defaultFileName)
}

func (r *Repository) Path() string {
	return r.path
}

func (r *Repository) Active(ctx context.Context) (ports.ActiveSession, error) {
	var active ports.ActiveSession
	err := r.view(ctx, func(state fileSchema) error {
		if state.Active == nil || state.Active.SessionID == "" {
			return domain.ErrNoActiveSession
		}
		active = state.Active.toPort()
		return nil
	})
	return active, err
}

// SaveActive replaces the active session. A different session that was
// active before moves to the recent list.
func (r *Repository) SaveActive(ctx context.Context, session ports.ActiveSession) error {
	if session.SessionID == "" {
		return errors.New("session id is required")
	}

	return r.update(ctx, func(state *fileSchema) error {
		if state.Active != nil && state.Active.SessionID != string(session.SessionID) {
			state.remember(*state.Active)
		}
		next := activeFromPort(session)
		next.SavedAt = r.clock.Now().UTC().Format(time.RFC3339)
		state.Active = &next
		return nil
	})
}

func (r *Repository) ClearActive(ctx context.Context) error {
	return r.update(ctx, func(state *fileSchema) error {
		if state.Active == nil {
			return domain.ErrNoActiveSession
		}
		state.remember(*state.Active)
		state.Active = nil
		return nil
	})
}

// Recent lists sessions that were replaced or cleared, newest first.
func (r *Repository) Recent(ctx context.Context) ([]ports.ActiveSession, error) {
	var recent []ports.ActiveSession
	err := r.view(ctx, func(state fileSchema) error {
		recent = make([]ports.ActiveSession, 0, len(state.Recent))
		for _, entry := range state.Recent {
			recent = append(recent, entry.toPort())
		}
		return nil
	})
	return recent, err
}

func (r *Repository) view(ctx context.Context, fn func(fileSchema) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.lock.RLock()
	defer r.lock.RUnlock()

	state, err := r.load()
	if err != nil {
		return err
	}
	return fn(state)
}

// update applies fn under the write lock and persists the result unless fn
// fails or ctx is done by then.
func (r *Repository) update(ctx context.Context, fn func(*fileSchema) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	state, err := r.load()
	if err != nil {
		return err
	}
	if err := fn(&state); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.store(state)
}

func (r *Repository) load() (fileSchema, error) {
	raw, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return fileSchema{Version: currentSchemaVersion}, nil
	}
	if err != nil {
		return fileSchema{}, fmt.Errorf("read state file: %w", err)
	}

	var state fileSchema
	if err := toml.Unmarshal(raw, &state); err != nil {
		return fileSchema{}, fmt.Errorf("decode state file %s: %w", r.path, err)
	}
	if err := state.checkVersion(); err != nil {
		return fileSchema{}, err
	}
	return state, nil
}

func (r *Repository) store(state fileSchema) error {
	state.Version = currentSchemaVersion
	raw, err := toml.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode state file: %w", err)
	}
	return writeAtomic(r.path, raw)
}

// writeAtomic replaces path through a temp file in the same directory.
func writeAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if err := tmp.Chmod(fileMode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp state file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
