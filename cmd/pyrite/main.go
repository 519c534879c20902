package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/codefionn/pyrite/internal/analysis"
	"github.com/codefionn/pyrite/internal/config"
	"github.com/codefionn/pyrite/internal/lockfile"
	"github.com/codefionn/pyrite/internal/logger"
	"github.com/codefionn/pyrite/internal/notify"
	"github.com/codefionn/pyrite/internal/pidfile"
	"github.com/codefionn/pyrite/internal/server"
	"github.com/codefionn/pyrite/internal/socketpath"
	"github.com/codefionn/pyrite/internal/socketutil"
	"github.com/codefionn/pyrite/internal/state"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() (err error) {
	var (
		configPath   = flag.String("config", "", "Path to a JSON server configuration file")
		logPath      = flag.String("log-path", "", "Log path identifying this server instance")
		watchRoot    = flag.String("watch-root", "", "Directory to watch for source changes")
		analysisRoot = flag.String("analysis-root", "", "Directory analyzed at startup (defaults to watch root)")
		socketOver   = flag.String("socket", "", "Override the derived socket path")
		logLevel     = flag.String("log-level", "", "Log level: debug, info, warn, error, none")
		checkRunning = flag.Bool("check-running", false, "Report whether a server is already running, then exit")
	)
	flag.Parse()

	cfg, err := buildConfig(*configPath, *logPath, *watchRoot, *analysisRoot, *socketOver, *logLevel)
	if err != nil {
		return err
	}

	resolvedSocket := cfg.SocketPath
	if resolvedSocket == "" {
		resolvedSocket = socketpath.Resolve(cfg.LogPath)
	}

	if *checkRunning {
		if socketutil.DetectRunningServer(resolvedSocket) {
			fmt.Printf("Server running at %s\n", resolvedSocket)
			return nil
		}
		fmt.Printf("No server running at %s\n", resolvedSocket)
		return nil
	}

	if err := logger.Init(logger.ParseLevel(cfg.LogLevel), cfg.LogPath); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		if err != nil {
			logger.Error("Fatal error: %v", err)
		}
		if closeErr := logger.Global().Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close logger: %v\n", closeErr)
		}
	}()

	if socketutil.DetectRunningServer(resolvedSocket) {
		return fmt.Errorf("a server is already running at %s", resolvedSocket)
	}

	lock := lockfile.New(filepath.Join(os.TempDir(), socketpath.Prefix+socketpath.Digest(cfg.LogPath)+".lock"))
	if err := lock.TryAcquire(); err != nil {
		if errors.Is(err, lockfile.ErrLocked) {
			return fmt.Errorf("another server for this project is starting or running: %w", err)
		}
		return fmt.Errorf("failed to acquire server lock: %w", err)
	}
	defer func() {
		if releaseErr := lock.Release(); releaseErr != nil {
			logger.Warn("Failed to release server lock: %v", releaseErr)
		}
	}()

	pid := pidfile.ForLogPath(cfg.LogPath)
	if err := pid.Write(); err != nil {
		return fmt.Errorf("failed to write pidfile: %w", err)
	}
	defer func() {
		if removeErr := pid.Remove(); removeErr != nil {
			logger.Warn("Failed to remove pidfile: %v", removeErr)
		}
	}()

	// A fresh start supersedes any pending restart notification
	if err := notify.Clear(cfg); err != nil {
		logger.Warn("Failed to clear restart notification: %v", err)
	}

	runner := analysis.NewRunner(nil)
	srv := server.New(cfg, runner, func() (*state.ServerState, error) {
		return runner.Initialize(cfg, resolvedSocket)
	})

	return srv.Run(context.Background(), nil)
}

// buildConfig loads the configuration file when given and applies flag
// overrides on top.
func buildConfig(configPath, logPath, watchRoot, analysisRoot, socketOver, logLevel string) (*config.ServerConfig, error) {
	var cfg *config.ServerConfig

	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		if logPath == "" {
			return nil, fmt.Errorf("either -config or -log-path is required")
		}
		cfg = config.DefaultConfig(logPath)
	}

	if logPath != "" {
		cfg.LogPath = logPath
	}
	if watchRoot != "" {
		cfg.WatchRoot = watchRoot
	}
	if analysisRoot != "" {
		cfg.AnalysisRoot = analysisRoot
	}
	if socketOver != "" {
		cfg.SocketPath = socketOver
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
