// Command vectorize embeds every scenario on the gateway and upserts it
// into the DashVector collection used for scenario search.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mastertrainer/mt/internal/domain"
	"github.com/mastertrainer/mt/internal/ports"
	"github.com/mastertrainer/mt/internal/scriptenv"
)

const pageSize = 50

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "vectorize:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	if err := scriptenv.Load(scriptenv.DotEnvFile); err != nil {
		return err
	}
	logger := scriptenv.Logger()

	indexer, err := scriptenv.Indexer(logger)
	if err != nil {
		return err
	}
	gateway, err := scriptenv.Gateway(logger)
	if err != nil {
		return err
	}

	scenarios, err := allScenarios(ctx, gateway)
	if err != nil {
		return err
	}
	fmt.Printf("Fetched %d scenarios\n", len(scenarios))

	indexed, err := indexer.IndexScenarios(ctx, scenarios)
	if err != nil {
		return err
	}
	fmt.Printf("Indexed %d scenarios\n", indexed)
	return nil
}

func allScenarios(ctx context.Context, gateway ports.Gateway) ([]domain.Scenario, error) {
	var scenarios []domain.Scenario
	for page := 1; ; page++ {
		envelope, err := gateway.ListScenarios(ctx, domain.ScenarioFilter{Page: page, PageSize: pageSize})
		if err != nil {
			return nil, fmt.Errorf("list scenarios page %d: %w", page, err)
		}
		if !envelope.Success || envelope.Data == nil {
			return nil, fmt.Errorf("list scenarios page %d: %s", page, envelope.Message)
		}

		scenarios = append(scenarios, envelope.Data.Items...)
		if page >= envelope.Data.TotalPages || len(envelope.Data.Items) == 0 {
			return scenarios, nil
		}
	}
}
