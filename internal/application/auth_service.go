package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mastertrainer/mt/internal/domain"
	"github.com/mastertrainer/mt/internal/ports"
)

// TokenKey is the credential store key of the gateway bearer token.
const TokenKey = "mastertrainer://gateway/token"

type AuthService struct {
	gateway ports.Gateway
	store   ports.CredentialStore
}

func NewAuthService(gateway ports.Gateway, store ports.CredentialStore) *AuthService {
	return &AuthService{gateway: gateway, store: store}
}

func (s *AuthService) Login(ctx context.Context, email, password string) (domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return domain.User{}, errors.New("email is required")
	}
	if password == "" {
		return domain.User{}, errors.New("password is required")
	}

	credentials, err := s.gateway.Login(ctx, email, password)
	if err != nil {
		return domain.User{}, fmt.Errorf("login: %w", err)
	}
	if err := s.SetToken(ctx, credentials.Token); err != nil {
		return domain.User{}, err
	}

	return credentials.User, nil
}

func (s *AuthService) SetToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("token is required")
	}
	if err := s.store.Put(ctx, TokenKey, token); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	return nil
}

func (s *AuthService) Token(ctx context.Context) (string, error) {
	token, err := s.store.Get(ctx, TokenKey)
	if err != nil {
		return "", fmt.Errorf("get token: %w", err)
	}
	return token, nil
}

// Logout removes the stored token. Logging out twice is not an error.
func (s *AuthService) Logout(ctx context.Context) error {
	if err := s.store.Delete(ctx, TokenKey); err != nil && !errors.Is(err, domain.ErrCredentialNotFound) {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}
