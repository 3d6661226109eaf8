package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"conversa-hq/orbit/pkg/config"
	"conversa-hq/orbit/pkg/engine"
	"conversa-hq/orbit/pkg/gateway"
	"conversa-hq/orbit/pkg/governor"
	"conversa-hq/orbit/pkg/health"
	"conversa-hq/orbit/pkg/lexicon"
	"conversa-hq/orbit/pkg/monitor"
	"conversa-hq/orbit/pkg/orchestrator"
	"conversa-hq/orbit/pkg/respcache"
	"conversa-hq/orbit/pkg/sanitizer"
	"conversa-hq/orbit/pkg/selector"
	"conversa-hq/orbit/pkg/server"
	"conversa-hq/orbit/pkg/session"
	"conversa-hq/orbit/pkg/telemetry/logging"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Orbit server",
	Long: `Start the Orbit server with the specified configuration.

The server accepts chat turns on /chat and routes each through admission,
the response cache, backend selection, and failover dispatch.

Examples:
  # Start with default config
  orbit run

  # Start with custom config
  orbit run --config /etc/orbit/config.yaml

  # Override listen address
  orbit run --listen 0.0.0.0:8085

  # Validate config without starting the server
  orbit run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	if _, err := logging.Setup(cfg.Telemetry.Logging); err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Lexicons, hot reloaded from disk when a path is configured.
	lexicons, err := lexicon.NewStore(cfg.Selector.LexiconPath)
	if err != nil {
		return fmt.Errorf("failed to load lexicons: %w", err)
	}
	defer lexicons.Close()
	if cfg.Selector.LexiconPath != "" {
		go func() {
			if err := lexicons.Watch(ctx); err != nil {
				fmt.Printf("lexicon watcher stopped: %v\n", err)
			}
		}()
	}

	// Shared state: health registry, governor, cache.
	registry := health.NewRegistry(cfg.Breaker.FailureThreshold, cfg.Breaker.Cooldown)
	gov := governor.New(cfg.Governor)
	cache := respcache.New(cfg.Cache.TTL, cfg.Cache.MaxEntries)

	// Monitor with optional prometheus export and SQLite persistence.
	var metrics *monitor.Metrics
	if cfg.Telemetry.Metrics.Enabled {
		metrics = monitor.NewMetrics(cfg.Telemetry.Metrics.Namespace, cfg.Telemetry.Metrics.Subsystem, prometheus.DefaultRegisterer)
	}
	mon, err := monitor.New(cfg.Monitor, metrics)
	if err != nil {
		return fmt.Errorf("failed to initialize monitor: %w", err)
	}
	defer mon.Close()
	registry.SetOnOpen(mon.RecordBreakerOpen)
	go func() {
		if err := mon.Start(ctx); err != nil {
			fmt.Printf("monitor stopped: %v\n", err)
		}
	}()

	// Session store.
	var sessions session.Store
	switch cfg.Sessions.Backend {
	case "redis":
		sessions, err = session.NewRedisStore(ctx, cfg.Sessions.Redis, cfg.Sessions.TTL)
		if err != nil {
			return fmt.Errorf("failed to connect session store: %w", err)
		}
	default:
		sessions = session.NewMemoryStore(cfg.Sessions.TTL)
	}
	defer sessions.Close()

	gw := gateway.NewHTTPGateway(cfg.Gateway)
	sel := selector.New(cfg.Selector, cfg.Backends, lexicons, gov, registry)
	orch := orchestrator.New(cfg.Orchestrator, cfg.Backends, gw, registry, cfg.Governor.VisionTokensPerImage)
	san := sanitizer.New(cfg.Sanitizer)

	eng := engine.New(cfg, sessions, gov, cache, lexicons, sel, orch, san, mon, registry)

	fmt.Printf("✓ Backends configured (%d)\n", len(cfg.Backends))
	fmt.Printf("✓ Server listening on %s\n", cfg.Server.ListenAddress)
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Printf("✓ Metrics endpoint: http://%s%s\n", cfg.Server.ListenAddress, cfg.Telemetry.Metrics.Path)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	srv := server.New(cfg, eng)
	return srv.Start(ctx)
}
