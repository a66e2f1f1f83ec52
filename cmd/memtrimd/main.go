// memtrimd is the background daemon: it polls system memory, runs the
// auto-clean policy, and serves the control API on a unix socket.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"

	"github.com/jamesainslie/memtrim/pkg/daemon"
	"github.com/jamesainslie/memtrim/pkg/daemon/broadcaster"
	"github.com/jamesainslie/memtrim/pkg/memtrim/config"
	"github.com/jamesainslie/memtrim/pkg/memtrim/journal"
	"github.com/jamesainslie/memtrim/pkg/memtrim/logging"
	"github.com/jamesainslie/memtrim/pkg/memtrim/meminfo"
	"github.com/jamesainslie/memtrim/pkg/memtrim/monitor"
	"github.com/jamesainslie/memtrim/pkg/memtrim/release"
)

func main() {
	// Local overrides for development; missing file is fine.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := config.EnsureDataDir(); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}
	if err := config.EnsureStateDir(); err != nil {
		log.Fatalf("Failed to create state directory: %v", err)
	}

	if err := initLogging(cfg); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer func() {
		_ = logging.Close()
	}()
	logger := logging.Get("daemon")

	socketPath := cfg.Daemon.SocketPath
	if socketPath == "" {
		socketPath = config.DefaultSocketPath()
	}
	pidPath := cfg.Daemon.PIDPath
	if pidPath == "" {
		pidPath = config.DefaultPIDPath()
	}
	journalPath := cfg.Journal.Path
	if journalPath == "" {
		journalPath = config.DefaultJournalPath()
	}
	statusPath := daemon.StatusPath(filepath.Dir(socketPath))

	if err := daemon.RecoverFromStaleDaemon(pidPath, socketPath, journalPath); err != nil {
		_ = daemon.WriteStatusError(statusPath, err)
		logger.Error("another memtrimd instance is running", "pid_file", pidPath)
		os.Exit(1)
	}

	jrnl, err := journal.Open(journalPath, cfg.Journal.MaxEntries)
	if err != nil {
		_ = daemon.WriteStatusError(statusPath, err)
		logger.Error("failed to open journal", "path", journalPath, "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = jrnl.Close()
	}()

	reader := meminfo.NewSystemReader()
	releaser := release.NewSystemReleaser(reader)

	var tempCleaner *release.TempCleaner
	if cfg.TempClean.Enabled {
		dirs := cfg.TempClean.Dirs
		if len(dirs) == 0 {
			dirs = release.DefaultTempDirs()
		}
		tempCleaner = release.NewTempCleaner(dirs, time.Duration(cfg.TempClean.MinAgeHours)*time.Hour)
	}

	events := broadcaster.New()
	defer events.Close()

	ctrl := monitor.New(monitor.Options{
		Reader:      reader,
		Releaser:    releaser,
		TempCleaner: tempCleaner,
		Journal:     jrnl,
		Thresholds:  cfg.Thresholds,
		Interval:    time.Duration(cfg.Monitor.PollIntervalSeconds) * time.Second,
		Persist:     config.SaveThresholds,
		OnEvent:     events.Notify,
	})

	srv, err := daemon.NewServer(daemon.Config{
		SocketPath: socketPath,
		StateDir:   config.StateDir(),
	}, ctrl, jrnl, events)
	if err != nil {
		_ = daemon.WriteStatusError(statusPath, err)
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	if err := daemon.WritePIDFile(pidPath); err != nil {
		_ = daemon.WriteStatusError(statusPath, err)
		logger.Error("failed to write PID file", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = daemon.RemovePIDFile(pidPath)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go ctrl.Run(ctx)

	if configPath, err := config.ConfigPath(); err == nil {
		if watcher, err := daemon.NewConfigWatcher(configPath, ctrl); err == nil {
			defer watcher.Close()
			go watcher.Run(ctx)
		} else {
			logger.Warn("config watcher disabled", "error", err)
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("signal received, shutting down", "signal", sig.String())
		case <-srv.ShutdownRequested():
			logger.Info("shutdown requested via API")
		}
		cancel()
		_ = srv.Close()
	}()

	if err := daemon.WriteStatusReady(statusPath); err != nil {
		logger.Warn("failed to write status file", "error", err)
	}
	defer func() {
		_ = daemon.RemoveStatus(statusPath)
	}()

	logger.Info("memtrimd started", "socket", socketPath, "pid", os.Getpid())

	if err := srv.Serve(); err != nil {
		logger.Error("server error", "error", err)
	}
	logger.Info("memtrimd stopped")
}

// initLogging maps the file configuration onto the logging package.
func initLogging(cfg *config.Config) error {
	maxSize, err := humanize.ParseBytes(cfg.Logging.Rotation.MaxSize)
	if err != nil {
		maxSize = 0 // fall back to the rotation default
	}

	return logging.Init(logging.Config{
		Level: cfg.Logging.Level,
		Path:  cfg.Logging.Path,
		Rotation: logging.RotationConfig{
			MaxSize:    int64(maxSize),
			MaxAge:     cfg.Logging.Rotation.MaxAge,
			MaxBackups: cfg.Logging.Rotation.MaxBackups,
			Daily:      cfg.Logging.Rotation.Daily,
		},
		Components: cfg.Logging.Components,
	})
}
