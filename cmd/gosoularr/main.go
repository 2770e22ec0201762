package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/amaumene/gosoularr/internal/api"
	"github.com/amaumene/gosoularr/internal/config"
	"github.com/amaumene/gosoularr/internal/controllers"
	"github.com/amaumene/gosoularr/internal/matcher"
	"github.com/amaumene/gosoularr/internal/models"
	"github.com/amaumene/gosoularr/internal/releases"
	"github.com/amaumene/gosoularr/internal/scheduler"
	"github.com/amaumene/gosoularr/internal/services/arr"
	"github.com/amaumene/gosoularr/internal/services/slskd"
	"github.com/amaumene/gosoularr/internal/utils"
)

func main() {
	var configDir string
	var varDir string
	var noLockFile bool

	rootCmd := &cobra.Command{
		Use:          "gosoularr",
		Short:        "Grab wanted Lidarr and Readarr records from the Soulseek network via slskd",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configDir, varDir, noLockFile)
		},
	}

	defaultDir := "."
	if utils.IsDocker() {
		defaultDir = "/data"
	}

	rootCmd.Flags().StringVar(&configDir, "config-dir", defaultDir, "directory holding config.ini")
	rootCmd.Flags().StringVar(&varDir, "var-dir", defaultDir, "directory for state, lock and failure files")
	rootCmd.Flags().BoolVar(&noLockFile, "no-lock-file", false, "skip the lock file guarding concurrent runs")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(configDir, varDir string, noLockFile bool) error {
	cfg, err := config.Load(configDir, varDir)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := utils.NewLogger(cfg.LogLevel)
	logger.Info("Starting Gosoularr")

	// The container scheduler already serializes runs, so the lock file only
	// guards bare-metal cron setups.
	useLock := !noLockFile && !utils.IsDocker()
	if useLock {
		if utils.LockExists(cfg.LockFile) {
			return fmt.Errorf("lock file exists at %s, is another run in progress?", cfg.LockFile)
		}
		if err := utils.AcquireLock(cfg.LockFile); err != nil {
			return fmt.Errorf("failed to create lock file: %w", err)
		}
		defer utils.ReleaseLock(cfg.LockFile)
	}

	db, err := models.NewDatabase(cfg.StateFile)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()
	logger.Info("Database initialized")

	slskdClient, err := slskd.NewClient(cfg.Slskd.HostURL, cfg.Slskd.APIKey, cfg.Slskd.URLBase, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize slskd client: %w", err)
	}

	version, err := slskdClient.Version()
	if err != nil {
		return fmt.Errorf("cannot reach slskd at %s: %w", slskdClient.HostURL(), err)
	}
	logger.WithField("version", version).Info("Connected to slskd")

	if _, err := os.Stat(cfg.Slskd.DownloadDir); err != nil {
		return fmt.Errorf("slskd download directory %s is not accessible: %w", cfg.Slskd.DownloadDir, err)
	}

	selector := releases.NewSelector(cfg.Release, logger)

	var flavors []arr.Flavor
	if cfg.Lidarr.Enabled() {
		flavors = append(flavors, arr.NewLidarr(cfg.Lidarr, selector, logger))
	}
	if cfg.Readarr.Enabled() {
		flavors = append(flavors, arr.NewReadarr(cfg.Readarr, selector, logger))
	}
	for _, flavor := range flavors {
		if err := flavor.SystemStatus(); err != nil {
			return fmt.Errorf("%s is not reachable: %w", flavor.Name(), err)
		}
		logger.WithField("flavor", flavor.Name()).Info("Media manager connected")
	}

	blacklist := utils.NewBlacklist(cfg.Search.TitleBlacklist)
	m := matcher.NewMatcher(cfg.Search.MinimumMatchRatio, logger)

	searchCtl := controllers.NewSearchController(slskdClient, m, cfg.Search, cfg.Slskd, logger)
	grabCtl := controllers.NewGrabController(db, searchCtl, blacklist, cfg.Search, cfg.FailureFile, logger)
	monitorCtl := controllers.NewMonitorController(slskdClient, cfg.Slskd, logger)
	finalizeCtl := controllers.NewFinalizeController(cfg.Search, cfg.Slskd, logger)

	stats := &controllers.RunStats{}
	runner := controllers.NewRunner(grabCtl, monitorCtl, finalizeCtl, slskdClient, flavors, stats, logger)

	if !cfg.Daemon.Enabled {
		runner.Run()
		logger.Info("Gosoularr finished")
		return nil
	}

	return runDaemon(cfg, db, slskdClient, runner, stats, logger)
}

// runDaemon keeps sweeping on the configured schedule and serves the status
// endpoints until a shutdown signal arrives
func runDaemon(cfg *config.Config, db *models.Database, slskdClient *slskd.Client, runner *controllers.Runner, stats *controllers.RunStats, logger *logrus.Logger) error {
	sched := scheduler.NewScheduler(runner, cfg.Daemon.Schedule, logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	server := api.NewServer(cfg, db, slskdClient, stats, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverErrChan := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Gosoularr is running")

	select {
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		logger.WithField("signal", sig).Info("Received shutdown signal")
		cancel()
		if err := server.Shutdown(context.Background()); err != nil {
			logger.WithError(err).Error("Error during server shutdown")
		}
	}

	logger.Info("Gosoularr stopped")
	return nil
}
