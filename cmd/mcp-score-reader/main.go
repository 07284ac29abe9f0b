package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/a3tai/mcp-score-reader/internal/config"
	"github.com/a3tai/mcp-score-reader/internal/history"
	"github.com/a3tai/mcp-score-reader/internal/mcp"
	"github.com/a3tai/mcp-score-reader/internal/service"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// newLogger builds the process logger. stdout carries the MCP protocol in
// stdio mode, so logs always go to stderr.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.IsServerMode() {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func serviceConfig(cfg *config.Config) service.Config {
	return service.Config{
		UploadDirectory: cfg.UploadDirectory,
		OutputDirectory: cfg.OutputDirectory,
		MaxFileSize:     cfg.MaxFileSize,
		BatchMaxSize:    cfg.BatchMaxSize,
		HistoryLimit:    cfg.HistoryLimit,
		SelfRateLimit:   cfg.SelfRateLimit,
		Workers:         cfg.Workers,
		AdminPassword:   cfg.AdminPassword,
	}
}

// runServerMode handles server mode execution with signal handling
func runServerMode(ctx context.Context, cancel context.CancelFunc, server *mcp.Server, logger *slog.Logger) int {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(signalCh)

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.Run(ctx)
	}()

	select {
	case sig := <-signalCh:
		logger.Info("received signal, shutting down", "signal", sig.String())
		cancel()
		if err := <-serverErrCh; err != nil {
			logger.Error("server shutdown with error", "error", err)
			return 1
		}
	case err := <-serverErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			return 1
		}
	}

	logger.Info("server stopped")
	return 0
}

// runStdioMode handles stdio mode execution; the parent process owns our
// lifecycle.
func runStdioMode(ctx context.Context, server *mcp.Server, logger *slog.Logger) int {
	if err := server.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		return 1
	}
	return 0
}

func run() int {
	cfg, err := config.LoadFromFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}
	if version != "dev" {
		cfg.Version = version
	}

	logger := newLogger(cfg, os.Stderr)
	slog.SetDefault(logger)
	logger.Debug("starting", "config", cfg.String())

	store, err := history.Open(cfg.HistoryBackend, cfg.HistoryPath, cfg.HistoryLimit, logger)
	if err != nil {
		logger.Error("failed to open history store", "error", err)
		return 1
	}
	defer store.Close()

	svc, err := service.New(serviceConfig(cfg), store, service.WithLogger(logger))
	if err != nil {
		logger.Error("failed to create score service", "error", err)
		return 1
	}

	server, err := mcp.NewServer(cfg, svc, logger)
	if err != nil {
		logger.Error("failed to create MCP server", "error", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.IsServerMode() {
		return runServerMode(ctx, cancel, server, logger)
	}
	return runStdioMode(ctx, server, logger)
}

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion(os.Stdout)
			return
		}
	}
	os.Exit(run())
}

// printVersion prints version information
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "MCP Score Reader\n")
	fmt.Fprintf(w, "Version: %s\n", version)
	fmt.Fprintf(w, "Build Time: %s\n", buildTime)
	fmt.Fprintf(w, "Git Commit: %s\n", gitCommit)
	fmt.Fprintf(w, "Built with: %s\n", runtime.Version())
}
