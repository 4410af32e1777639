package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"parking-facility/internal/config"
	"parking-facility/internal/logging"
	"parking-facility/internal/parking"
	"parking-facility/internal/server"
	"parking-facility/internal/telemetry"
)

var (
	mode = flag.String("mode", "cli", "Mode to run: cli, server, or both")
	port = flag.String("port", "", "Port for HTTP server (overrides PORT)")
)

func main() {
	flag.Parse()

	cfg := config.Load()
	if *port != "" {
		cfg.Port = *port
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, err := telemetry.NewProvider(ctx, cfg.OTelConfig.ServiceName, cfg.OTelConfig.OTLPEndpoint, cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}
	logging.Init(cfg.OTelConfig.ServiceName, cfg.Environment)

	a, err := newApp(ctx, cfg, tp)
	if err != nil {
		shutdownTelemetry(cfg, tp)
		log.Fatalf("Failed to start parking facility: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	switch *mode {
	case "cli":
		runCLI(ctx, cancel, a, tp, sigChan)
	case "server":
		runServer(ctx, cancel, cfg, a, sigChan)
	case "both":
		runBoth(ctx, cancel, cfg, a, tp, sigChan)
	default:
		logging.Error(ctx, "invalid mode", "mode", *mode)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := a.close(shutdownCtx); err != nil {
		logging.Error(shutdownCtx, "shutdown error", "error", err)
	}
	shutdownTelemetry(cfg, tp)
}

func newShell(a *app, tp *telemetry.Provider) *parking.Shell {
	return parking.NewShell(a.engine, a.vehicles, tp.Tracer(), os.Stdin, os.Stdout)
}

func newServer(cfg *config.Config, a *app) *server.Server {
	return server.NewServer(cfg.Port, server.Dependencies{
		Engine:       a.engine,
		Vehicles:     a.vehicles,
		Transactions: a.transactions,
		ServiceName:  cfg.OTelConfig.ServiceName,
	})
}

func runCLI(ctx context.Context, cancel context.CancelFunc, a *app, tp *telemetry.Provider, sigChan chan os.Signal) {
	go func() {
		<-sigChan
		logging.Info(ctx, "shutting down")
		cancel()
	}()

	newShell(a, tp).Run(ctx)
}

func runServer(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, a *app, sigChan chan os.Signal) {
	srv := newServer(cfg, a)

	go func() {
		<-sigChan
		logging.Info(ctx, "received shutdown signal")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Error(shutdownCtx, "server shutdown error", "error", err)
		}

		cancel()
	}()

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.Error(ctx, "server error", "error", err)
	}
}

func runBoth(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, a *app, tp *telemetry.Provider, sigChan chan os.Signal) {
	srv := newServer(cfg, a)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Start()
	}()

	cliDone := make(chan struct{})
	go func() {
		newShell(a, tp).Run(ctx)
		close(cliDone)
	}()

	go func() {
		<-sigChan
		logging.Info(ctx, "received shutdown signal")
		cancel()
	}()

	select {
	case err := <-serverDone:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error(ctx, "server error", "error", err)
		}
	case <-cliDone:
		logging.Info(ctx, "CLI exited")
	case <-ctx.Done():
		logging.Info(ctx, "context cancelled")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error(shutdownCtx, "server shutdown error", "error", err)
	}
}

func shutdownTelemetry(cfg *config.Config, tp *telemetry.Provider) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down telemetry: %v", err)
	}
}
