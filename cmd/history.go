package cmd

import (
	"fmt"

	"github.com/mastertrainer/mt/internal/adapters/render/catalog"
	"github.com/mastertrainer/mt/internal/adapters/wire"
	"github.com/mastertrainer/mt/internal/application"
	"github.com/mastertrainer/mt/internal/domain"
	"github.com/spf13/cobra"
)

func newHistoryCmd(app *app) *cobra.Command {
	var (
		query  domain.PageQuery
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past practice sessions with their scores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			page, notice, err := load(cmd, app, "Loading history...", application.ResourceHistory, app.gateway.History, query.Normalize())
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd, wire.FromDomainPage(page, wire.FromSession))
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), catalog.History(page, app.clock.Now(), catalog.Options{Notice: notice}))
			return err
		},
	}

	addPageFlags(cmd, &query.Page, &query.PageSize)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}
