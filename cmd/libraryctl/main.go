// libraryctl is the operator's companion tool for the library API: it
// applies the database schema and seeds the first admin account, the
// two steps the HTTP surface deliberately does not expose.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/iliyamo/library-management/internal/config"
	"github.com/iliyamo/library-management/internal/database"
	"github.com/iliyamo/library-management/internal/model"
	"github.com/iliyamo/library-management/internal/repository"
	"github.com/iliyamo/library-management/internal/utils"
)

const schemaFile = "migrations/schema.sql"

func main() {
	root := &cobra.Command{
		Use:           "libraryctl",
		Short:         "Operational tasks for the library management API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(migrateCmd(), createAdminCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply " + schemaFile + " to the configured database",
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			cfg := config.Load()
			db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer db.Close()

			raw, err := os.ReadFile(schemaFile)
			if err != nil {
				return fmt.Errorf("read schema: %w", err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()

			// The MySQL driver executes one statement per call, so the
			// schema file is split on terminating semicolons.
			for i, stmt := range splitStatements(string(raw)) {
				if _, err := db.ExecContext(ctx, stmt); err != nil {
					return fmt.Errorf("statement %d failed: %w", i+1, err)
				}
			}
			fmt.Println("Schema applied.")
			return nil
		},
	}
}

// splitStatements breaks a schema dump into individual statements.
// Comment-only lines are dropped; semicolons inside string literals are
// not expected in our schema.
func splitStatements(raw string) []string {
	out := []string{}
	for _, chunk := range strings.Split(raw, ";") {
		var lines []string
		for _, ln := range strings.Split(chunk, "\n") {
			t := strings.TrimSpace(ln)
			if t == "" || strings.HasPrefix(t, "--") {
				continue
			}
			lines = append(lines, ln)
		}
		stmt := strings.TrimSpace(strings.Join(lines, "\n"))
		if stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

func createAdminCmd() *cobra.Command {
	var email, fullName string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account, prompting for its password",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" || fullName == "" {
				return fmt.Errorf("--email and --full-name are required")
			}
			pass, err := readPassword("Password: ")
			if err != nil {
				return err
			}
			if len(pass) < 8 {
				return fmt.Errorf("password must be at least 8 characters")
			}
			again, err := readPassword("Repeat password: ")
			if err != nil {
				return err
			}
			if pass != again {
				return fmt.Errorf("passwords do not match")
			}

			_ = godotenv.Load()
			cfg := config.Load()
			db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer db.Close()

			hash, err := utils.HashPassword(pass, cfg.BcryptCost)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			users := repository.NewUserRepo(db)
			id, err := users.Create(ctx, email, hash, fullName, model.RoleAdmin)
			if err != nil {
				if err == repository.ErrEmailExists {
					return fmt.Errorf("an account with that email already exists")
				}
				return err
			}
			fmt.Printf("Admin account created (id=%d).\n", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address of the new admin")
	cmd.Flags().StringVar(&fullName, "full-name", "", "display name of the new admin")
	return cmd
}

// readPassword reads a password from the terminal with echo disabled.
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}
