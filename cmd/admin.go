package cmd

import (
	"context"
	"fmt"

	"github.com/mastertrainer/mt/internal/adapters/render/catalog"
	"github.com/mastertrainer/mt/internal/adapters/wire"
	"github.com/mastertrainer/mt/internal/application"
	"github.com/mastertrainer/mt/internal/domain"
	"github.com/spf13/cobra"
)

func newAdminCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Inspect users and AI models (admin)",
	}

	cmd.AddCommand(newAdminUsersCmd(app), newAdminModelsCmd(app))

	return cmd
}

func newAdminUsersCmd(app *app) *cobra.Command {
	var (
		query  domain.PageQuery
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "users",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			page, notice, err := load(cmd, app, "Loading users...", application.ResourceUsers, app.gateway.ListUsers, query.Normalize())
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd, wire.FromDomainPage(page, wire.FromUser))
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), catalog.Users(page, catalog.Options{Notice: notice}))
			return err
		},
	}

	addPageFlags(cmd, &query.Page, &query.PageSize)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

func newAdminModelsCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List configured AI models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			models, notice, err := load(cmd, app, "Loading models...", application.ResourceModels, listModels(app), struct{}{})
			if err != nil {
				return err
			}

			if asJSON {
				out := make([]wire.AIModel, 0, len(models))
				for _, model := range models {
					out = append(out, wire.FromModel(model))
				}
				return writeJSON(cmd, out)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), catalog.Models(models, catalog.Options{Notice: notice}))
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

func listModels(app *app) application.FetchFunc[struct{}, []domain.AIModel] {
	return func(ctx context.Context, _ struct{}) (domain.Envelope[[]domain.AIModel], error) {
		return app.gateway.ListModels(ctx)
	}
}
