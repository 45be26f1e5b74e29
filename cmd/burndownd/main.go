// burndownd is the issue tracker server and its admin CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ahoskins/burndown/internal/config"
)

var (
	addr     string
	dbPath   string
	logFile  string
	tokenTTL time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "burndownd",
	Short: "burndownd - Multi-tenant issue tracker server",
	Long:  `A sprint-oriented issue tracker served over HTTP. Projects, epics, sprints, labels, and a five-state workflow, isolated per user.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Apply viper configuration if flags weren't explicitly set
		// Priority: flags > viper (config file + env vars) > defaults
		if !cmd.Flags().Changed("addr") {
			addr = config.GetString("addr")
		}
		if !cmd.Flags().Changed("db") && dbPath == "" {
			dbPath = config.GetString("db")
		}
		if !cmd.Flags().Changed("log-file") && logFile == "" {
			logFile = config.GetString("log-file")
		}
		if !cmd.Flags().Changed("token-ttl") {
			tokenTTL = config.GetDuration("token-ttl")
		}
	},
}

func init() {
	if err := config.Initialize(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
	}

	rootCmd.PersistentFlags().StringVar(&addr, "addr", ":8080", "Listen address")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database path (default: ~/.burndown/burndown.db)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Server log file (default: stderr)")
	rootCmd.PersistentFlags().DurationVar(&tokenTTL, "token-ttl", 24*time.Hour, "Bearer token lifetime")
}

// ensureDBDir creates the database's parent directory if needed.
func ensureDBDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0750)
}

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-v" {
			fmt.Printf("burndownd version %s (%s)\n", Version, Build)
			return
		}
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
