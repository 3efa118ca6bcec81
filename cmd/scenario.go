package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mastertrainer/mt/internal/adapters/render/catalog"
	"github.com/mastertrainer/mt/internal/adapters/wire"
	"github.com/mastertrainer/mt/internal/application"
	"github.com/mastertrainer/mt/internal/domain"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newScenarioCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "scenario",
		Aliases: []string{"scenarios"},
		Short:   "Browse and manage roleplay scenarios",
	}

	cmd.AddCommand(
		newScenarioListCmd(app),
		newScenarioShowCmd(app),
		newScenarioCreateCmd(app),
		newScenarioDeleteCmd(app),
	)

	return cmd
}

func newScenarioListCmd(app *app) *cobra.Command {
	var (
		filter     domain.ScenarioFilter
		difficulty string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List scenarios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter.Difficulty = domain.Difficulty(strings.ToLower(strings.TrimSpace(difficulty)))
			if filter.Difficulty != "" && !filter.Difficulty.Valid() {
				return fmt.Errorf("unsupported difficulty %q (beginner|intermediate|advanced)", difficulty)
			}

			page, notice, err := load(cmd, app, "Loading scenarios...", application.ResourceScenarios, app.gateway.ListScenarios, filter.Normalize())
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd, wire.FromDomainPage(page, wire.FromScenario))
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), catalog.Scenarios(page, catalog.Options{Notice: notice}))
			return err
		},
	}

	addPageFlags(cmd, &filter.Page, &filter.PageSize)
	cmd.Flags().StringVar(&filter.Category, "category", "", "Filter by category")
	cmd.Flags().StringVar(&difficulty, "difficulty", "", "Filter by difficulty (beginner|intermediate|advanced)")
	cmd.Flags().StringVar(&filter.Search, "search", "", "Search titles and descriptions")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

func newScenarioShowCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <scenario-id>",
		Short: "Show one scenario with its buyer persona",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scenario, notice, err := load(cmd, app, "Loading scenario...", application.ResourceScenario, app.gateway.GetScenario, domain.ScenarioID(args[0]))
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd, wire.FromScenario(scenario))
			}
			if notice != "" {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), notice); err != nil {
					return err
				}
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), catalog.Scenario(scenario))
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

func newScenarioCreateCmd(app *app) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a scenario from a YAML definition (admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			scenario, err := readScenarioFile(cmd, file)
			if err != nil {
				return err
			}
			if err := scenario.Validate(); err != nil {
				return err
			}

			envelope, err := request(cmd, "Creating scenario...", func(ctx context.Context) (domain.Envelope[domain.Scenario], error) {
				return app.gateway.CreateScenario(ctx, scenario)
			})
			if err != nil {
				return err
			}

			created, err := envelopeData("create scenario", envelope)
			if err != nil {
				return err
			}
			return writeLine(cmd, "Created scenario %s (%s)", created.Title, created.ID)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Scenario YAML file, - for stdin")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func readScenarioFile(cmd *cobra.Command, path string) (domain.Scenario, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(cmd.InOrStdin())
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return domain.Scenario{}, fmt.Errorf("read scenario file: %w", err)
	}

	var definition wire.Scenario
	if err := yaml.Unmarshal(raw, &definition); err != nil {
		return domain.Scenario{}, fmt.Errorf("parse scenario file: %w", err)
	}

	scenario := wire.ToScenario(definition)
	if scenario.Difficulty == "" {
		scenario.Difficulty = domain.DifficultyBeginner
	}
	return scenario, nil
}

func newScenarioDeleteCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <scenario-id>",
		Short: "Delete a scenario (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := domain.ScenarioID(args[0])
			_, err := request(cmd, "Deleting scenario...", func(ctx context.Context) (struct{}, error) {
				return struct{}{}, app.gateway.DeleteScenario(ctx, id)
			})
			if err != nil {
				return err
			}
			return writeLine(cmd, "Deleted scenario %s", id)
		},
	}
}

func addPageFlags(cmd *cobra.Command, page, pageSize *int) {
	cmd.Flags().IntVar(page, "page", 1, "Page number")
	cmd.Flags().IntVar(pageSize, "page-size", domain.DefaultPageSize, "Items per page")
}
