package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/mastertrainer/mt/internal/domain"
)

// FetchFunc performs one remote read. A returned error is a transport
// failure; a failed envelope is reported through Envelope.Success.
type FetchFunc[P comparable, T any] func(ctx context.Context, params P) (domain.Envelope[T], error)

type LoadState[T any] struct {
	Data      T
	IsLoading bool
	Err       error
	// FromFallback marks Data as the demo dataset substituted after a
	// transport failure.
	FromFallback bool
}

// Loader keeps list and detail views populated. It refetches whenever the
// params change by value and substitutes the resource's fallback dataset
// when the transport fails.
type Loader[P comparable, T any] struct {
	resource  string
	fetch     FetchFunc[P, T]
	fallbacks FallbackProvider
	logger    *slog.Logger

	mu      sync.Mutex
	state   LoadState[T]
	params  P
	fetched bool
}

func NewLoader[P comparable, T any](resource string, fetch FetchFunc[P, T], fallbacks FallbackProvider, logger *slog.Logger) *Loader[P, T] {
	if fallbacks == nil {
		fallbacks = Fallbacks{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Loader[P, T]{
		resource:  resource,
		fetch:     fetch,
		fallbacks: fallbacks,
		logger:    logger,
	}
}

// Load fetches params unless they equal the last fetched params.
func (l *Loader[P, T]) Load(ctx context.Context, params P) LoadState[T] {
	l.mu.Lock()
	if l.fetched && l.params == params && !l.state.IsLoading {
		state := l.state
		l.mu.Unlock()
		return state
	}
	l.mu.Unlock()

	return l.run(ctx, params)
}

// Refetch repeats the last fetch with the same params.
func (l *Loader[P, T]) Refetch(ctx context.Context) LoadState[T] {
	l.mu.Lock()
	params := l.params
	l.mu.Unlock()

	return l.run(ctx, params)
}

func (l *Loader[P, T]) Current() LoadState[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Loader[P, T]) run(ctx context.Context, params P) LoadState[T] {
	l.mu.Lock()
	l.params = params
	l.fetched = true
	l.state.IsLoading = true
	l.mu.Unlock()

	envelope, err := l.fetch(ctx, params)

	l.mu.Lock()
	defer l.mu.Unlock()

	// A newer Load replaced params while this fetch was in flight.
	if l.params != params {
		return l.state
	}

	switch {
	case err != nil && unreachable(ctx, err):
		l.state = l.fallbackState(err)
	case err != nil:
		l.state = LoadState[T]{Data: l.state.Data, Err: err}
	case !envelope.Success || envelope.Data == nil:
		l.state = LoadState[T]{
			Data: l.state.Data,
			Err:  &domain.EnvelopeError{Message: envelope.Message},
		}
	default:
		l.state = LoadState[T]{Data: *envelope.Data}
	}

	return l.state
}

// unreachable reports whether err means the gateway never answered. Any
// HTTP status, including 401, 403 and 404, is a real answer and is never
// replaced with sample data, nor is the caller giving up.
func unreachable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, domain.ErrUnauthorized) {
		return false
	}
	var transportErr *domain.TransportError
	if errors.As(err, &transportErr) && transportErr.StatusCode > 0 {
		return false
	}
	return true
}

func (l *Loader[P, T]) fallbackState(err error) LoadState[T] {
	payload, ok := l.fallbacks.Fallback(l.resource)
	data, typed := payload.(T)
	if !ok || !typed {
		return LoadState[T]{Data: l.state.Data, Err: err}
	}

	l.logger.Warn("fetch failed, using fallback data", "resource", l.resource, "error", err)
	return LoadState[T]{Data: data, FromFallback: true}
}
