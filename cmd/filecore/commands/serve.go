package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/driveos/filecore/internal/logger"
	"github.com/driveos/filecore/pkg/api"
	"github.com/driveos/filecore/pkg/blob"
	"github.com/driveos/filecore/pkg/blob/s3"
	"github.com/driveos/filecore/pkg/catalog"
	"github.com/driveos/filecore/pkg/catalog/store"
	"github.com/driveos/filecore/pkg/config"
	"github.com/driveos/filecore/pkg/events"
	"github.com/driveos/filecore/pkg/metrics"
	"github.com/driveos/filecore/pkg/quota"

	// Import prometheus metrics to register init() functions
	_ "github.com/driveos/filecore/pkg/metrics/prometheus"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the filecore server",
	Long: `Start the filecore server with the specified configuration.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/filecore/config.yaml.

Examples:
  # Start with the default config
  filecore serve

  # Start with a custom config file
  filecore serve --config /etc/filecore/config.yaml

  # Start with environment variable overrides
  FILECORE_LOGGING_LEVEL=DEBUG filecore serve`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := initLogger(cfg); err != nil {
		return err
	}

	// Cancelled on SIGINT/SIGTERM; everything below shuts down with it.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))
	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		metricsServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler: metrics.Handler(),
		}
		logger.Info("Metrics enabled", "port", cfg.Metrics.Port)
	} else {
		logger.Info("Metrics collection disabled")
	}

	st, err := store.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize catalog store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("store close error", "error", err)
		}
	}()
	logger.Info("Catalog store initialized", "type", cfg.Database.Type)

	var blobStore blob.Store
	if cfg.Blob.Bucket != "" {
		s3Store, err := s3.New(ctx, cfg.Blob)
		if err != nil {
			return fmt.Errorf("failed to initialize blob store: %w", err)
		}
		blobStore = s3Store
		logger.Info("Blob store initialized", "bucket", cfg.Blob.Bucket, "region", cfg.Blob.Region)
	} else {
		logger.Warn("Blob store not configured, content URLs disabled")
	}

	var quotaCoord quota.Coordinator
	if cfg.Quota.BaseURL != "" {
		quotaCoord = quota.NewClient(cfg.Quota)
		logger.Info("Quota service configured", "base_url", cfg.Quota.BaseURL)
	} else {
		quotaCoord = quota.NewAllowAll()
		logger.Info("Quota enforcement disabled")
	}

	var sink events.Sink
	if cfg.Events.Sink == "redis" {
		redisSink, err := events.NewRedisSink(ctx, cfg.Events.Redis)
		if err != nil {
			return fmt.Errorf("failed to connect event sink: %w", err)
		}
		defer func() {
			if err := redisSink.Close(); err != nil {
				logger.Error("event sink close error", "error", err)
			}
		}()
		sink = redisSink
		logger.Info("Event sink configured", "sink", "redis", "channel", cfg.Events.Redis.Channel)
	} else {
		sink = events.NewLogSink()
		logger.Info("Event sink configured", "sink", "log")
	}

	catalogMetrics := metrics.NewCatalogMetrics()

	access := catalog.NewAccessResolver(st)
	fileCatalog := catalog.NewFileCatalog(st, access, blobStore, quotaCoord, sink, catalogMetrics, cfg.Catalog)
	versionManager := catalog.NewVersionManager(st, access, blobStore, sink, catalogMetrics, cfg.Catalog)
	shareRegistry := catalog.NewShareRegistry(st, sink, catalogMetrics, cfg.Catalog)

	apiServer := api.NewServer(cfg.API, api.Services{
		Store:    st,
		Catalog:  fileCatalog,
		Versions: versionManager,
		Shares:   shareRegistry,
		Access:   access,
	})

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("Received signal, shutting down", "signal", sig.String())
		cancel()
	}()

	if metricsServer != nil {
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server error", "error", err)
			}
		}()
		go func() {
			<-ctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer shutdownCancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("metrics server shutdown error", "error", err)
			}
		}()
	}

	go runShareSweeper(ctx, shareRegistry, cfg.Catalog.ShareSweepInterval)

	logger.Info("Starting filecore server", "port", cfg.API.Port, "version", Version)
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("Server stopped")
	return nil
}

// runShareSweeper periodically removes expired shares so the registry
// does not accumulate dead rows. Expiry checks on the read path do not
// depend on the sweep.
func runShareSweeper(ctx context.Context, shares *catalog.ShareRegistry, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := shares.CleanupExpiredShares(ctx)
			if err != nil {
				logger.Warn("expired share sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				logger.Info("expired shares removed", "count", removed)
			}
		}
	}
}
