package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ahoskins/burndown/internal/api"
	"github.com/ahoskins/burndown/internal/auth"
	"github.com/ahoskins/burndown/internal/config"
	"github.com/ahoskins/burndown/internal/storage/sqlite"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ensureDBDir(dbPath); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
		store, err := sqlite.New(dbPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer func() { _ = store.Close() }()

		logger := serverLogger()
		authSvc := auth.NewService(store, tokenTTL, config.GetInt("bcrypt-cost"))
		server := api.NewServer(store, authSvc, logger)

		httpServer := &http.Server{
			Addr:              addr,
			Handler:           server.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// Drop expired tokens in the background while serving.
		go purgeTokens(ctx, authSvc, logger)

		errCh := make(chan error, 1)
		go func() {
			errCh <- httpServer.ListenAndServe()
		}()

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s burndownd %s listening on %s (db: %s)\n", green("✓"), Version, addr, store.Path())
		logger.Printf("listening on %s (db: %s)", addr, store.Path())

		select {
		case err := <-errCh:
			return fmt.Errorf("server failed: %w", err)
		case <-ctx.Done():
		}

		fmt.Println("Shutting down...")
		logger.Printf("shutdown requested")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration("shutdown-timeout"))
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down cleanly: %w", err)
		}
		return nil
	},
}

// serverLogger writes timestamped lines to the rotated log file, or to
// stderr when no log file is configured.
func serverLogger() *log.Logger {
	if logFile == "" {
		return log.New(os.Stderr, "", log.LstdFlags)
	}
	out := &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    config.GetInt("log-max-size"),
		MaxBackups: config.GetInt("log-max-backups"),
		MaxAge:     config.GetInt("log-max-age"),
		Compress:   config.GetBool("log-compress"),
	}
	return log.New(out, "", log.LstdFlags)
}

func purgeTokens(ctx context.Context, authSvc *auth.Service, logger *log.Logger) {
	interval := config.GetDuration("token-purge-interval")
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := authSvc.PurgeExpired(ctx)
			if err != nil {
				logger.Printf("token purge failed: %v", err)
				continue
			}
			if n > 0 {
				logger.Printf("purged %d expired tokens", n)
			}
		}
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
