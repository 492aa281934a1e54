package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcp "github.com/metoro-io/mcp-golang"
	"github.com/metoro-io/mcp-golang/transport/stdio"
	flag "github.com/spf13/pflag"

	"github.com/netbox-mcp/internal/config"
	"github.com/netbox-mcp/internal/instancelock"
	"github.com/netbox-mcp/internal/inventory"
	"github.com/netbox-mcp/internal/journal"
	"github.com/netbox-mcp/internal/logger"
	"github.com/netbox-mcp/internal/metrics"
	"github.com/netbox-mcp/internal/netbox"
	"github.com/netbox-mcp/internal/service"
)

func main() {
	os.Exit(run())
}

func run() int {
	fs := flag.NewFlagSet("netbox-mcp-server", flag.ExitOnError)
	envFile := fs.String("env-file", ".env", "Path to a .env file to load")
	debug := fs.Bool("debug", false, "Enable debug logging")
	metricsAddr := fs.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9464)")
	singleInstance := fs.Bool("single-instance", false, "Refuse to start when another server is running for the same NetBox instance")
	lockDir := fs.String("lock-dir", "", "Directory for the instance lock file")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: netbox-mcp-server [options]\n\nServes the NetBox inventory over MCP on stdin/stdout.\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(os.Args[1:]); err != nil {
		return 1
	}

	// Initialize logger
	logger := logger.New()
	if *debug {
		logger.SetDebugMode(true)
	}

	// Load configuration; flags win over the environment
	cfg := config.LoadConfig(*envFile)
	if fs.Changed("metrics-addr") {
		cfg.Server.MetricsAddr = *metricsAddr
	}
	if fs.Changed("single-instance") {
		cfg.Server.SingleInstance = *singleInstance
	}
	if fs.Changed("lock-dir") {
		cfg.Server.LockDir = *lockDir
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}

	logger.Info("NetBox MCP Server starting...")
	instanceID := journal.InstanceID(cfg.NetBox.URL)

	// Acquire instance lock to prevent two servers writing one journal
	if cfg.Server.SingleInstance {
		lock := instancelock.New(cfg.Server.LockDir, instanceID)
		logger.Debug("Acquiring instance lock at: %s", lock.Path())
		if err := lock.Acquire(context.Background(), 3, 500*time.Millisecond); err != nil {
			logger.Fatalf("Failed to acquire instance lock: %v", err)
		}
		defer func() {
			if err := lock.Release(); err != nil {
				logger.Error("Failed to release instance lock: %v", err)
			}
		}()
		logger.LogInitialization("instance_lock", "acquired", lock.Path())
	}

	// Log essential environment configuration at INFO level
	logger.Info("Environment initialized - API: %s", cfg.NetBox.URL)
	if cfg.NetBox.SSLVerify {
		logger.Info("Environment initialized - TLS verification: enabled")
	} else {
		logger.Info("Environment initialized - TLS verification: disabled")
	}

	m := metrics.Default()

	client, err := netbox.NewClient(&cfg.NetBox, logger)
	if err != nil {
		logger.Fatalf("Failed to create NetBox client: %v", err)
	}
	client.SetObserver(m.ObserveUpstream)
	logger.LogInitialization("netbox_client", "ready", cfg.NetBox.URL)

	inv := inventory.New(client,
		inventory.WithLogger(logger),
		inventory.WithOverfetch(cfg.NetBox.OverfetchFactor),
		inventory.WithResolveObserver(m.ObserveResolve),
	)

	var j *journal.Journal
	if cfg.Journal.Enabled {
		if j, err = journal.Open(cfg.Journal.Path, instanceID, logger); err != nil {
			// the journal is optional; tools work without it
			logger.Warn("Query journal disabled: %v", err)
			j = nil
		}
	}

	netboxService := service.NewNetBoxMCPService(inv, j, m, logger)

	// Create MCP server with stdio transport
	logger.Debug("Creating MCP server with stdio transport...")
	server := mcp.NewServer(stdio.NewStdioServerTransport())

	if err := netboxService.RegisterTools(server); err != nil {
		logger.Fatalf("Failed to register tools: %v", err)
	}
	if err := netboxService.RegisterPrompts(server); err != nil {
		logger.Fatalf("Failed to register prompts: %v", err)
	}
	if err := netboxService.RegisterResources(server); err != nil {
		logger.Fatalf("Failed to register resources: %v", err)
	}

	// Start Prometheus metrics endpoint (optional)
	var metricsServer *http.Server
	if cfg.Server.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		metricsServer = &http.Server{Addr: cfg.Server.MetricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			logger.Info("Serving metrics on %s/metrics", cfg.Server.MetricsAddr)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("Metrics server error: %v", err)
			}
		}()
	}

	// Setup graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Serve(); err != nil {
			serverErr <- err
		}
	}()

	logger.Debug("MCP server is now running and waiting for connections...")

	exitCode := 0
	select {
	case err := <-serverErr:
		logger.Error("Server error: %v", err)
		exitCode = 1
	case sig := <-shutdown:
		logger.Info("Received signal %v, shutting down gracefully...", sig)
	}

	if metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(ctx); err != nil {
			logger.Error("Error stopping metrics server: %v", err)
		}
		cancel()
	}
	if err := netboxService.Shutdown(); err != nil {
		logger.Error("Error during service shutdown: %v", err)
	}

	logger.Info("Server shutdown complete")
	if err := logger.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Error closing logger: %v\n", err)
	}
	return exitCode
}
