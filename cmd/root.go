package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "mt",
		Short:         "Master Trainer CLI (mt): practice sales conversations with AI buyers",
		Long:          "mt (Master Trainer CLI) browses roleplay scenarios, runs practice sessions against AI buyer personas, shows feedback and history, and serves a local development gateway.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newAuthCmd(app),
		newScenarioCmd(app),
		newHistoryCmd(app),
		newRoleplayCmd(app),
		newAdminCmd(app),
		newRecordCmd(app),
		newServeCmd(app),
	)

	return rootCmd
}
