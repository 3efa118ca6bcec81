package chain

import (
	"context"
	"errors"
	"testing"

	"github.com/mastertrainer/mt/internal/domain"
	portmocks "github.com/mastertrainer/mt/internal/ports/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const tokenKey = "mastertrainer://gateway/token"

func newPassAndFile(t *testing.T) (*Store, *portmocks.CredentialStore, *portmocks.CredentialStore) {
	t.Helper()

	pass := portmocks.NewCredentialStore(t)
	file := portmocks.NewCredentialStore(t)
	store, err := NewStore(pass, file)
	require.NoError(t, err)
	return store, pass, file
}

func TestNewStoreValidatesBackends(t *testing.T) {
	t.Parallel()

	_, err := NewStore()
	require.ErrorIs(t, err, ErrNoBackends)

	_, err = NewStore(portmocks.NewCredentialStore(t), nil)
	require.EqualError(t, err, "credential backend 1 is nil")
}

func TestGet(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		passValue string
		passErr   error
		fileValue string
		fileErr   error
		callsFile bool
		want      string
		wantErr   error
		errText   []string
	}{
		{name: "pass has the token", passValue: "from-pass", want: "from-pass"},
		{name: "pass fails, file has it", passErr: errors.New("pass unavailable"), fileValue: "from-file", callsFile: true, want: "from-file"},
		{name: "missing everywhere", passErr: domain.ErrCredentialNotFound, fileErr: domain.ErrCredentialNotFound, callsFile: true, wantErr: domain.ErrCredentialNotFound},
		{name: "both broken", passErr: errors.New("gpg locked"), fileErr: errors.New("permission denied"), callsFile: true, errText: []string{"gpg locked", "permission denied"}},
		{name: "cancelled", passErr: context.Canceled, wantErr: context.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store, pass, file := newPassAndFile(t)
			pass.On("Get", mock.Anything, tokenKey).Return(tt.passValue, tt.passErr).Once()
			if tt.callsFile {
				file.On("Get", mock.Anything, tokenKey).Return(tt.fileValue, tt.fileErr).Once()
			}

			value, err := store.Get(context.Background(), tokenKey)
			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
			case len(tt.errText) > 0:
				require.Error(t, err)
				assert.NotErrorIs(t, err, domain.ErrCredentialNotFound)
				for _, text := range tt.errText {
					assert.ErrorContains(t, err, text)
				}
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.want, value)
			}
		})
	}
}

func TestPutStopsAtFirstBackendThatAccepts(t *testing.T) {
	t.Parallel()

	store, pass, file := newPassAndFile(t)
	pass.On("Put", mock.Anything, tokenKey, "tok").Return(nil).Once()

	require.NoError(t, store.Put(context.Background(), tokenKey, "tok"))
	file.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything)
}

func TestPutFallsThroughFailingBackend(t *testing.T) {
	t.Parallel()

	store, pass, file := newPassAndFile(t)
	pass.On("Put", mock.Anything, tokenKey, "tok").Return(errors.New("pass not installed")).Once()
	file.On("Put", mock.Anything, tokenKey, "tok").Return(nil).Once()

	require.NoError(t, store.Put(context.Background(), tokenKey, "tok"))
}

func TestPutReportsEveryFailure(t *testing.T) {
	t.Parallel()

	store, pass, file := newPassAndFile(t)
	pass.On("Put", mock.Anything, tokenKey, "tok").Return(errors.New("pass not installed")).Once()
	file.On("Put", mock.Anything, tokenKey, "tok").Return(errors.New("disk full")).Once()

	err := store.Put(context.Background(), tokenKey, "tok")
	require.Error(t, err)
	assert.ErrorContains(t, err, "pass not installed")
	assert.ErrorContains(t, err, "disk full")
}

func TestDeleteReachesEveryBackend(t *testing.T) {
	t.Parallel()

	store, pass, file := newPassAndFile(t)
	pass.On("Delete", mock.Anything, tokenKey).Return(errors.New("pass not installed")).Once()
	file.On("Delete", mock.Anything, tokenKey).Return(nil).Once()

	require.NoError(t, store.Delete(context.Background(), tokenKey))
}

func TestDeleteFailsWhenNoBackendSucceeds(t *testing.T) {
	t.Parallel()

	store, pass, file := newPassAndFile(t)
	pass.On("Delete", mock.Anything, tokenKey).Return(errors.New("pass not installed")).Once()
	file.On("Delete", mock.Anything, tokenKey).Return(errors.New("read-only")).Once()

	require.Error(t, store.Delete(context.Background(), tokenKey))
}
