// Package commands holds the cobra commands of the admin CLI.
package commands

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"denuncias/api/internal/app"
	"denuncias/api/internal/search"
	"denuncias/api/internal/store"
)

// userAdmin is the part of the app service the user commands need.
type userAdmin interface {
	ListUsers(context.Context, app.Session) ([]app.UserSummaryView, error)
	AssignRole(context.Context, int64, string) (app.UserView, error)
}

// MigrateCommand applies pending SQL migrations.
func MigrateCommand(db *sql.DB, migrationsDir string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			applied, err := store.ApplyMigrations(cmd.Context(), db, migrationsDir)
			if err != nil {
				return fmt.Errorf("apply migrations: %w", err)
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date")
				return nil
			}
			for _, version := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "Applied %s\n", version)
			}
			return nil
		},
	}
}

// UserCommands returns the user management commands.
func UserCommands(service userAdmin) *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "users",
		Short: "User management commands",
	}
	userCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List users with their complaint counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			users, err := service.ListUsers(cmd.Context(), app.SystemSession())
			if err != nil {
				return fmt.Errorf("list users: %w", err)
			}
			printUsers(cmd.OutOrStdout(), users)
			return nil
		},
	})
	userCmd.AddCommand(&cobra.Command{
		Use:   "set-role <user-id> <citizen|authority>",
		Short: "Change a user's role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || userID <= 0 {
				return fmt.Errorf("invalid user id %q", args[0])
			}
			user, err := service.AssignRole(cmd.Context(), userID, args[1])
			if err != nil {
				return fmt.Errorf("set role: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %d (%s) is now %s\n", user.ID, user.Email, user.Role)
			return nil
		},
	})
	return userCmd
}

func printUsers(w io.Writer, users []app.UserSummaryView) {
	if len(users) == 0 {
		fmt.Fprintln(w, "No users found")
		return
	}
	fmt.Fprintf(w, "%-5s %-30s %-10s %-6s %-8s %-8s\n", "ID", "Email", "Role", "Total", "Resolved", "Pending")
	fmt.Fprintln(w, strings.Repeat("-", 72))
	for _, user := range users {
		fmt.Fprintf(w, "%-5d %-30s %-10s %-6d %-8d %-8d\n",
			user.ID, user.Email, user.Role, user.TotalComplaints, user.ResolvedComplaints, user.PendingComplaints)
	}
}

// SearchCommands returns the search index commands.
func SearchCommands(service *search.Service) *cobra.Command {
	searchCmd := &cobra.Command{
		Use:   "search",
		Short: "Search index commands",
	}
	searchCmd.AddCommand(&cobra.Command{
		Use:   "reindex",
		Short: "Push every complaint from Postgres into Meilisearch",
		RunE: func(cmd *cobra.Command, _ []string) error {
			count, err := service.ReindexAllFromPG(cmd.Context())
			if err != nil {
				return fmt.Errorf("reindex: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d complaints\n", count)
			return nil
		},
	})
	return searchCmd
}

// ReportCommands returns the report export command.
func ReportCommands(service *app.Service) *cobra.Command {
	var (
		format  string
		out     string
		filters app.ReportFilterInput
	)
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write the complaint report as PDF or DOCX",
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := service.ExportReport(cmd.Context(), app.SystemSession(), app.ExportInput{
				Format:  format,
				Filters: filters,
			})
			if err != nil {
				return fmt.Errorf("export report: %w", err)
			}
			if out == "" {
				out = result.Filename
			}
			if err := os.WriteFile(out, result.Data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", out, len(result.Data))
			return nil
		},
	}
	exportCmd.Flags().StringVar(&format, "format", "pdf", "pdf or docx")
	exportCmd.Flags().StringVarP(&out, "out", "o", "", "output file (defaults to the generated name)")
	exportCmd.Flags().StringVar(&filters.Status, "status", "", "only complaints in this status")
	exportCmd.Flags().IntVar(&filters.Days, "days", 0, "only complaints from the last N days")
	exportCmd.Flags().StringVar(&filters.District, "district", "", "only complaints in this district")
	exportCmd.Flags().Int64Var(&filters.CategoryID, "category", 0, "only complaints in this category")

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Report commands",
	}
	reportCmd.AddCommand(exportCmd)
	return reportCmd
}
