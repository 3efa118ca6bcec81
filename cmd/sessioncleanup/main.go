// Command sessioncleanup marks development gateway sessions that have been
// active for longer than MT_STALE_AFTER as abandoned.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mastertrainer/mt/internal/adapters/devgateway"
	"github.com/mastertrainer/mt/internal/ports"
	"github.com/mastertrainer/mt/internal/scriptenv"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "sessioncleanup:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	if err := scriptenv.Load(scriptenv.DotEnvFile); err != nil {
		return err
	}

	staleAfter, err := scriptenv.Duration(scriptenv.StaleAfter, scriptenv.DefaultStaleAfter)
	if err != nil {
		return err
	}

	path := scriptenv.String(scriptenv.ServeDB, "")
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(homeDir, ".mastertrainer", "devgateway.db")
	}

	store, err := devgateway.OpenStore(path, ports.SystemClock{}, scriptenv.Logger())
	if err != nil {
		return err
	}
	defer store.Close()

	abandoned, err := store.AbandonStale(ctx, staleAfter)
	if err != nil {
		return err
	}
	fmt.Printf("Abandoned %d sessions idle for more than %s\n", abandoned, staleAfter)
	return nil
}
