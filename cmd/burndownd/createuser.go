package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ahoskins/burndown/internal/auth"
	"github.com/ahoskins/burndown/internal/config"
	"github.com/ahoskins/burndown/internal/storage/sqlite"
)

var createUserCmd = &cobra.Command{
	Use:   "create-user <email>",
	Short: "Create a user account directly in the database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, _ := cmd.Flags().GetString("password")
		name, _ := cmd.Flags().GetString("name")

		if err := ensureDBDir(dbPath); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
		store, err := sqlite.New(dbPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer func() { _ = store.Close() }()

		svc := auth.NewService(store, tokenTTL, config.GetInt("bcrypt-cost"))
		user, token, err := svc.Register(context.Background(), args[0], password, name)
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Created user %s (id %d)\n", green("✓"), user.Email, user.ID)
		fmt.Printf("  token: %s (expires %s)\n", token.Value, token.ExpiresAt.Format("2006-01-02 15:04:05"))
		return nil
	},
}

var initDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Create the database schema and seed the global issue types",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ensureDBDir(dbPath); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
		store, err := sqlite.New(dbPath)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer func() { _ = store.Close() }()

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Initialized database at %s\n", green("✓"), store.Path())
		return nil
	},
}

func init() {
	createUserCmd.Flags().StringP("password", "p", "", "Password for the new user (min 8 characters)")
	createUserCmd.Flags().StringP("name", "n", "", "Display name")
	_ = createUserCmd.MarkFlagRequired("password")
	rootCmd.AddCommand(createUserCmd)
	rootCmd.AddCommand(initDBCmd)
}
