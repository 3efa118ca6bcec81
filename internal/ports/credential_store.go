package ports

import "context"

// CredentialStore keeps secrets such as the gateway bearer token.
// Get returns domain.ErrCredentialNotFound for missing keys.
type CredentialStore interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}
