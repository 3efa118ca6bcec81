package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/mastertrainer/mt/internal/adapters/devgateway"
	"github.com/mastertrainer/mt/internal/application"
	"github.com/spf13/cobra"
)

func newServeCmd(app *app) *cobra.Command {
	var (
		addr     string
		dbPath   string
		password string
		origins  []string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local development gateway",
		Long:  "serve runs a local implementation of the Master Trainer API backed by SQLite and seeded with the demo scenarios. Buyer replies are scripted persona lines.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("db") {
				dbPath = app.config.GetString(keyServeDB)
			}

			store, err := openSeededStore(cmd, app, dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			gin.SetMode(gin.ReleaseMode)
			server := devgateway.NewServer(store, devgateway.Config{
				Password:       password,
				AllowedOrigins: origins,
				Policy:         app.roleplay.Policy,
				Limits:         app.roleplay.Limits,
			}, app.clock, app.logger)

			if err := writeLine(cmd, "Development gateway on http://%s/api (password %q, database %s)", addr, password, dbPath); err != nil {
				return err
			}
			return server.ListenAndServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", devgateway.DefaultAddr, "Listen address")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path, :memory: for a throwaway store")
	cmd.Flags().StringVar(&password, "password", devgateway.DefaultPassword, "Password shared by the seeded users")
	cmd.Flags().StringSliceVar(&origins, "allow-origin", []string{"*"}, "CORS allowed origins")

	return cmd
}

func openSeededStore(cmd *cobra.Command, app *app, dbPath string) (*devgateway.Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	store, err := devgateway.OpenStore(dbPath, app.clock, app.logger)
	if err != nil {
		return nil, err
	}

	if err := store.Seed(cmd.Context(), demoSeed()); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

func demoSeed() devgateway.SeedData {
	return devgateway.SeedData{
		Users:     application.DemoUsers(),
		Scenarios: application.DemoScenarios(),
		Sessions:  application.DemoSessions(),
		Models:    application.DemoModels(),
	}
}
