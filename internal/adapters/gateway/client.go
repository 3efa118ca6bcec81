package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mastertrainer/mt/internal/adapters/wire"
	"github.com/mastertrainer/mt/internal/domain"
	"github.com/mastertrainer/mt/internal/ports"
)

const (
	DefaultBaseURL = "http://localhost:8080/api"
	DefaultTimeout = 30 * time.Second
)

type Config struct {
	BaseURL string
	Timeout time.Duration
	// TokenKey is the credential store key of the bearer token.
	TokenKey string
}

// Client talks to the Master Trainer REST API.
type Client struct {
	http        *resty.Client
	credentials ports.CredentialStore
	tokenKey    string
	logger      *slog.Logger
}

var _ ports.Gateway = (*Client)(nil)

func NewClient(cfg Config, credentials ports.CredentialStore, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")

	return &Client{
		http:        httpClient,
		credentials: credentials,
		tokenKey:    cfg.TokenKey,
		logger:      logger,
	}
}

// call describes one request. notFound, when set, is wrapped into the
// TransportError of a 404 response.
type call struct {
	op       string
	method   string
	path     string
	body     any
	query    map[string]string
	notFound error
	anon     bool
}

// do sends c and decodes the envelope. Non-2xx responses become a
// *domain.TransportError; a 2xx failed envelope is returned as is.
func do[T any](ctx context.Context, client *Client, c call) (wire.Envelope[T], error) {
	req := client.http.R().SetContext(ctx)
	if c.body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(c.body)
	}
	if len(c.query) > 0 {
		req.SetQueryParams(c.query)
	}
	if !c.anon {
		if err := client.authorize(ctx, req); err != nil {
			return wire.Envelope[T]{}, &domain.TransportError{Op: c.op, Err: err}
		}
	}

	resp, err := req.Execute(c.method, c.path)
	if err != nil {
		return wire.Envelope[T]{}, &domain.TransportError{Op: c.op, Err: err}
	}

	var envelope wire.Envelope[T]
	decodeErr := json.Unmarshal(resp.Body(), &envelope)

	if resp.IsError() || resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		transportErr := &domain.TransportError{
			Op:         c.op,
			StatusCode: resp.StatusCode(),
			Message:    envelope.Message,
		}
		switch {
		case resp.StatusCode() == http.StatusUnauthorized:
			transportErr.Err = domain.ErrUnauthorized
			client.clearCredentials(ctx)
		case resp.StatusCode() == http.StatusNotFound && c.notFound != nil:
			transportErr.Err = c.notFound
		}
		if transportErr.Message == "" && transportErr.Err == nil {
			transportErr.Message = http.StatusText(resp.StatusCode())
		}
		return wire.Envelope[T]{}, transportErr
	}

	if decodeErr != nil {
		return wire.Envelope[T]{}, &domain.TransportError{
			Op:         c.op,
			StatusCode: resp.StatusCode(),
			Err:        fmt.Errorf("decode response: %w", decodeErr),
		}
	}

	return envelope, nil
}

// data unwraps an envelope for operations that have no use for a failed
// envelope.
func data[T any](op string, envelope wire.Envelope[T]) (T, error) {
	var zero T
	if !envelope.Success {
		return zero, &domain.TransportError{Op: op, Message: envelope.Message, Err: &domain.EnvelopeError{Message: envelope.Message}}
	}
	if envelope.Data == nil {
		return zero, &domain.TransportError{Op: op, Message: "response has no data"}
	}
	return *envelope.Data, nil
}

func toDomainEnvelope[W any, D any](envelope wire.Envelope[W], convert func(W) D) domain.Envelope[D] {
	out := domain.Envelope[D]{Success: envelope.Success, Message: envelope.Message}
	if envelope.Data != nil {
		converted := convert(*envelope.Data)
		out.Data = &converted
	}
	return out
}

func (c *Client) authorize(ctx context.Context, req *resty.Request) error {
	if c.credentials == nil || c.tokenKey == "" {
		return nil
	}

	token, err := c.credentials.Get(ctx, c.tokenKey)
	if err != nil {
		if errors.Is(err, domain.ErrCredentialNotFound) {
			return nil
		}
		return fmt.Errorf("read gateway token: %w", err)
	}
	if token != "" {
		req.SetAuthToken(token)
	}
	return nil
}

func (c *Client) clearCredentials(ctx context.Context) {
	if c.credentials == nil || c.tokenKey == "" {
		return
	}

	c.logger.Warn("gateway rejected credentials, clearing stored token")
	if err := c.credentials.Delete(ctx, c.tokenKey); err != nil && !errors.Is(err, domain.ErrCredentialNotFound) {
		c.logger.Warn("clear stored token", "error", err)
	}
}
