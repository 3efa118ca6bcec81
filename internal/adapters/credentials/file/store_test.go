package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mastertrainer/mt/internal/domain"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tokenKey = "mastertrainer://gateway/token"

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "nested", DefaultFileName))
}

func TestStoreRejectsEmptyKeys(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	for _, key := range []string{"", "   "} {
		assert.EqualError(t, store.Put(context.Background(), key, "value"), "credential key is empty")
	}
}

func TestStorePutWritesPrivateTOML(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	require.NoError(t, store.Put(context.Background(), tokenKey, "tok-123"))
	require.NoError(t, store.Put(context.Background(), "other", "x"))

	got, err := store.Get(context.Background(), tokenKey)
	require.NoError(t, err)
	assert.Equal(t, "tok-123", got)

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(fileMode), info.Mode().Perm())

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	var doc document
	require.NoError(t, toml.Unmarshal(raw, &doc))
	assert.Equal(t, map[string]string{tokenKey: "tok-123", "other": "x"}, doc.Credentials)
}

func TestStorePutOverwrites(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	require.NoError(t, store.Put(context.Background(), tokenKey, "old"))
	require.NoError(t, store.Put(context.Background(), tokenKey, "new"))

	got, err := store.Get(context.Background(), tokenKey)
	require.NoError(t, err)
	assert.Equal(t, "new", got)
}

func TestStoreGetMissingIsNotFound(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	_, err := store.Get(context.Background(), tokenKey)
	assert.ErrorIs(t, err, domain.ErrCredentialNotFound)

	require.NoError(t, store.Put(context.Background(), "other", "x"))
	_, err = store.Get(context.Background(), tokenKey)
	assert.ErrorIs(t, err, domain.ErrCredentialNotFound)
}

func TestStoreDeleteIsIdempotentAndRemovesEmptyFile(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	require.NoError(t, store.Put(context.Background(), tokenKey, "tok"))

	require.NoError(t, store.Delete(context.Background(), tokenKey))
	require.NoError(t, store.Delete(context.Background(), tokenKey))

	_, err := store.Get(context.Background(), tokenKey)
	assert.ErrorIs(t, err, domain.ErrCredentialNotFound)
	assert.NoFileExists(t, store.Path())
}

func TestStoreRejectsCorruptFile(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(store.Path()), 0o700))
	require.NoError(t, os.WriteFile(store.Path(), []byte("credentials = ["), 0o600))

	_, err := store.Get(context.Background(), tokenKey)
	assert.ErrorContains(t, err, "decode credential file")
}

func TestStoreHonoursCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := newTestStore(t)
	assert.ErrorIs(t, store.Put(ctx, tokenKey, "tok"), context.Canceled)
	_, err := store.Get(ctx, tokenKey)
	assert.ErrorIs(t, err, context.Canceled)
}
