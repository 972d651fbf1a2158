// Command cloud runs the cloud node: HTTP/REST API, the device-facing
// broker gateway, and the per-fleet bridges that keep devices, shadows,
// and telemetry coherent (§6). Grounded on the teacher's cmd/gateway/main.go
// signal-wait-then-graceful-shutdown shape.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/application"
	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/infrastructure/config"
	"github.com/aman-2709/zeroclaw-remote-diagnostics/internal/infrastructure/logger"
	httpiface "github.com/aman-2709/zeroclaw-remote-diagnostics/internal/interfaces/http"
)

const appName = "fleetd-cloud"

// Process exit codes (§6).
const (
	exitOK            = 0
	exitConfigError   = 1
	exitBrokerConnect = 2
	exitIrrecoverable = 3
)

func main() {
	rootCmd := &cobra.Command{
		Use:   appName,
		Short: "Fleet command-and-control cloud node",
		RunE:  runCloud,
	}
	rootCmd.Flags().StringSlice("fleet", nil, "fleet IDs this node serves (repeatable)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitIrrecoverable)
	}
}

func runCloud(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadCloudConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(exitConfigError)
	}

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, OutputPath: "stdout"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(exitConfigError)
	}
	defer log.Sync()

	log.Info("starting cloud node", zap.String("name", appName))

	app, err := application.NewCloudApp(cfg, log)
	if err != nil {
		log.Error("failed to initialize cloud app", zap.Error(err))
		os.Exit(exitConfigError)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fleets, _ := cmd.Flags().GetStringSlice("fleet")
	if len(fleets) == 0 {
		fleets = []string{"default"}
	}
	for _, fleetID := range fleets {
		if err := app.AttachFleet(ctx, fleetID); err != nil {
			log.Error("failed to attach fleet bridge", zap.String("fleet_id", fleetID), zap.Error(err))
			os.Exit(exitBrokerConnect)
		}
	}

	if err := app.Start(ctx); err != nil {
		log.Error("failed to start cloud app", zap.Error(err))
		os.Exit(exitIrrecoverable)
	}

	server := httpiface.NewServer(httpiface.Config{Host: "0.0.0.0", Port: cfg.Port, Mode: "release"}, app, log)
	app.SetHTTPServer(server.HTTPServer())
	if err := server.Start(ctx); err != nil {
		log.Error("failed to start http server", zap.Error(err))
		os.Exit(exitIrrecoverable)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer shutdownCancel()

	if err := app.Stop(shutdownCtx); err != nil {
		log.Error("error during shutdown", zap.Error(err))
		os.Exit(exitIrrecoverable)
	}

	log.Info("cloud node stopped cleanly")
	return nil
}
