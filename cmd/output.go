package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mastertrainer/mt/internal/application"
	"github.com/mastertrainer/mt/internal/domain"
	"github.com/spf13/cobra"
)

const fallbackNotice = "Gateway unreachable, showing demo data."

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeLine(cmd *cobra.Command, format string, args ...any) error {
	_, err := fmt.Fprintf(cmd.OutOrStdout(), format+"\n", args...)
	return err
}

// load runs one loader fetch behind a spinner. A state without data is an
// error; fallback data comes back with a notice for the renderer.
func load[P comparable, T any](cmd *cobra.Command, app *app, label, resource string, fetch application.FetchFunc[P, T], params P) (T, string, error) {
	loader := application.NewLoader(resource, fetch, app.fallbacks, app.logger)

	var state application.LoadState[T]
	err := runWithSpinner(cmd.Context(), cmd.ErrOrStderr(), label, func(ctx context.Context) error {
		state = loader.Load(ctx, params)
		return nil
	})
	if err != nil {
		return state.Data, "", err
	}
	if state.Err != nil {
		return state.Data, "", fmt.Errorf("load %s: %w", resource, state.Err)
	}

	notice := ""
	if state.FromFallback {
		notice = fallbackNotice
	}
	return state.Data, notice, nil
}

// request runs a single gateway call behind a spinner.
func request[T any](cmd *cobra.Command, label string, call func(context.Context) (T, error)) (T, error) {
	var result T
	err := runWithSpinner(cmd.Context(), cmd.ErrOrStderr(), label, func(ctx context.Context) error {
		var callErr error
		result, callErr = call(ctx)
		return callErr
	})
	return result, err
}

// envelopeData insists on a successful envelope with data.
func envelopeData[T any](op string, envelope domain.Envelope[T]) (T, error) {
	var zero T
	if !envelope.Success {
		return zero, fmt.Errorf("%s: %w", op, &domain.EnvelopeError{Message: envelope.Message})
	}
	if envelope.Data == nil {
		return zero, fmt.Errorf("%s: response has no data", op)
	}
	return *envelope.Data, nil
}
