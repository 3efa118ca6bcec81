// Package pass stores credentials with the pass password manager.
package pass

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path"
	"strings"

	"github.com/mastertrainer/mt/internal/domain"
	"github.com/mastertrainer/mt/internal/ports"
)

var ErrUnavailable = errors.New("pass command unavailable")

const (
	DefaultPrefix = "mastertrainer"

	notInStore = "is not in the password store"
)

// Runner executes one pass invocation.
type Runner interface {
	Run(ctx context.Context, stdin string, args ...string) (stdout, stderr string, err error)
}

type Option func(*Store)

// WithPrefix sets the folder entries are created under.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix = strings.Trim(prefix, "/ "); prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithStoreDir points pass at another password store via
// PASSWORD_STORE_DIR.
func WithStoreDir(dir string) Option {
	return func(s *Store) { s.runner = commandRunner{storeDir: dir} }
}

func WithRunner(runner Runner) Option {
	return func(s *Store) { s.runner = runner }
}

type Store struct {
	prefix string
	runner Runner
}

var _ ports.CredentialStore = (*Store)(nil)

func NewStore(opts ...Option) *Store {
	s := &Store{prefix: DefaultPrefix, runner: commandRunner{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	entry, err := s.entry(ctx, key)
	if err != nil {
		return "", err
	}

	stdout, stderr, err := s.runner.Run(ctx, "", "show", entry)
	if err != nil {
		return "", classify("show", entry, err, stderr)
	}

	// The secret is the first line, the rest is metadata.
	secret, _, _ := strings.Cut(stdout, "\n")
	return strings.TrimSuffix(secret, "\r"), nil
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	entry, err := s.entry(ctx, key)
	if err != nil {
		return err
	}

	if _, stderr, err := s.runner.Run(ctx, value+"\n", "insert", "--multiline", "--force", entry); err != nil {
		return classify("insert", entry, err, stderr)
	}
	return nil
}

// Delete treats a missing entry as already deleted.
func (s *Store) Delete(ctx context.Context, key string) error {
	entry, err := s.entry(ctx, key)
	if err != nil {
		return err
	}

	_, stderr, err := s.runner.Run(ctx, "", "rm", "--force", entry)
	if err == nil {
		return nil
	}
	if err = classify("rm", entry, err, stderr); errors.Is(err, domain.ErrCredentialNotFound) {
		return nil
	}
	return err
}

// entry maps a key such as "mastertrainer://gateway/token" to
// "<prefix>/gateway/token". Dot segments cannot climb out of the prefix.
func (s *Store) entry(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := strings.TrimSpace(key)
	if u, err := url.Parse(name); err == nil && u.Scheme != "" && u.Host != "" {
		name = u.Host + u.Path
	}
	name = strings.Trim(path.Clean("/"+name), "/")
	if name == "" {
		return "", errors.New("credential key is empty")
	}
	return s.prefix + "/" + name, nil
}

func classify(op, entry string, err error, stderr string) error {
	switch {
	case errors.Is(err, ErrUnavailable):
		return err
	case strings.Contains(stderr, notInStore):
		return fmt.Errorf("pass entry %q: %w", entry, domain.ErrCredentialNotFound)
	case stderr != "":
		return fmt.Errorf("pass %s %q: %w: %s", op, entry, err, stderr)
	default:
		return fmt.Errorf("pass %s %q: %w", op, entry, err)
	}
}

type commandRunner struct {
	storeDir string
}

func (r commandRunner) Run(ctx context.Context, stdin string, args ...string) (string, string, error) {
	binary, err := exec.LookPath("pass")
	if errors.Is(err, exec.ErrNotFound) {
		return "", "", ErrUnavailable
	}
	if err != nil {
		return "", "", fmt.Errorf("locate pass command: %w", err)
	}

	cmd := exec.CommandContext(ctx, binary, args...)
	if r.storeDir != "" {
		cmd.Env = append(os.Environ(), "PASSWORD_STORE_DIR="+r.storeDir)
	}
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	return stdout.String(), strings.TrimSpace(stderr.String()), err
}
