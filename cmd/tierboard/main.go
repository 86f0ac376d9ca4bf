package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"tierboard/internal/config"
	"tierboard/internal/gateway"
	"tierboard/internal/history"
	"tierboard/internal/server"
)

// version is set via -ldflags at build time.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "tierboard",
	Short: "Web dashboard for an S3-compatible bucket with storage-tier insight",
	Long: `Tierboard serves a small web dashboard over one S3-compatible bucket:
upload files, browse the inventory annotated with per-object storage class,
preview text and images, and watch usage against a configured quota.
Configuration is loaded from a .env file or environment variables.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the tierboard version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tierboard %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func runServe(ctx context.Context) error {
	handler := log.NewWithOptions(os.Stdout, log.Options{
		Level:           log.DebugLevel,
		TimeFormat:      time.RFC3339,
		ReportTimestamp: true,
		TimeFunction:    log.NowUTC,
		ReportCaller:    true,
	})
	slog.SetDefault(slog.New(handler))

	cfg := config.Load()

	store, err := gateway.New(gateway.Config{
		Endpoint:  cfg.Endpoint,
		Bucket:    cfg.BucketName,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
	})
	if err != nil {
		return fmt.Errorf("failed to create storage gateway: %w", err)
	}

	hist, err := history.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open upload history: %w", err)
	}
	defer hist.Close()

	srv, err := server.New(server.Config{
		Endpoint: cfg.Endpoint,
		Bucket:   cfg.BucketName,
		QuotaMB:  cfg.QuotaMB,
		Store:    store,
		History:  hist,
	})
	if err != nil {
		return fmt.Errorf("failed to create dashboard server: %w", err)
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 20 * time.Second,
		ReadTimeout:       20 * time.Second,
		WriteTimeout:      20 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	eg.Go(func() error {
		slog.Info("Starting Tierboard server", "port", cfg.Port, "endpoint", cfg.Endpoint, "bucket", cfg.BucketName)
		err := httpServer.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	return eg.Wait()
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		slog.Error("Tierboard exited with error", "error", err)
		os.Exit(1)
	}
}
