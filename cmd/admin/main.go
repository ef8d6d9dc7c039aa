// Package main is the denuncias administration CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"denuncias/api/cmd/admin/commands"
	"denuncias/api/internal/app"
	"denuncias/api/internal/config"
	"denuncias/api/internal/export"
	"denuncias/api/internal/observability"
	"denuncias/api/internal/search"
	"denuncias/api/internal/store"
)

func main() {
	ctx := context.Background()
	cfg := config.Load()

	// The CLI only reports problems.
	logger := observability.NewLogger("error", cfg.Env)
	defer func() { _ = logger.Sync() }()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	pgfts := search.NewPgFTS(db)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, pgfts, logger)

	service := app.New(cfg, app.Dependencies{
		Store:    store.NewPostgresStore(db),
		Search:   searchService,
		Exporter: export.NewService(),
	}, logger)

	rootCmd := &cobra.Command{
		Use:   "denuncias-admin",
		Short: "Denuncias administration tool",
		Long: `Denuncias administration tool

Commands for schema migrations, user roles, the search index and report exports.`,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, _ []string) {
			if err := cmd.Help(); err != nil {
				fmt.Printf("Error showing help: %v\n", err)
			}
		},
	}

	rootCmd.AddCommand(commands.MigrateCommand(db, cfg.MigrationsDir))
	rootCmd.AddCommand(commands.UserCommands(service))
	rootCmd.AddCommand(commands.SearchCommands(searchService))
	rootCmd.AddCommand(commands.ReportCommands(service))

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Error("command failed", zap.Error(err))
		os.Exit(1)
	}
}
