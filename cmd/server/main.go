package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/vinodismyname/mcpsheets/config"
	"github.com/vinodismyname/mcpsheets/internal/gsheets"
	"github.com/vinodismyname/mcpsheets/internal/listing"
	"github.com/vinodismyname/mcpsheets/internal/registry"
	"github.com/vinodismyname/mcpsheets/internal/runtime"
	"github.com/vinodismyname/mcpsheets/internal/security"
	"github.com/vinodismyname/mcpsheets/internal/telemetry"
	"github.com/vinodismyname/mcpsheets/internal/workbooks"
	"github.com/vinodismyname/mcpsheets/pkg/version"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	var (
		useStdio        bool
		configPath      string
		shutdownTimeout time.Duration
	)

	flag.BoolVar(&useStdio, "stdio", false, "Run server over stdio transport")
	flag.StringVar(&configPath, "config", os.Getenv("MCPSHEETS_CONFIG"), "Path to a YAML config file")
	flag.DurationVar(&shutdownTimeout, "shutdown-timeout", 5*time.Second, "Graceful shutdown timeout")
	flag.Parse()

	// Logs go to stderr; stdout carries the MCP stream.
	zlog.Logger = zlog.Output(os.Stderr)

	cfg, err := config.Load(configPath)
	if err != nil {
		zlog.Error().Err(err).Msg("config: failed to load")
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}
	zerolog.SetGlobalLevel(cfg.LogLevel())

	logger := zlog.With().Str("service", "mcpsheets-server").Str("backend", cfg.Backend).Logger()
	ctx := logger.WithContext(context.Background())

	limits := runtime.LimitsFromConfig(cfg.Limits)
	runtimeController := runtime.NewController(limits)
	runtimeMW := runtime.NewMiddleware(runtimeController)

	src, closeSource, err := buildSource(ctx, cfg, limits, runtimeController, logger)
	if err != nil {
		logger.Error().Err(err).Msg("backend: failed to initialize")
		fmt.Fprintln(os.Stderr, "backend initialization failed:", err)
		os.Exit(1)
	}

	svc := listing.NewService(src, limits.MaxFanout)
	toolRegistry := registry.New()
	toolFilter := registry.NewDisabledToolFilter(cfg.Tools.Disabled)

	srv := server.NewMCPServer(
		"Google Sheets MCP Server",
		version.Version(),
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithRecovery(),
		server.WithHooks(telemetry.NewHooks(logger).Server()),
		server.WithToolHandlerMiddleware(runtimeMW.ToolMiddleware),
		server.WithToolFilter(func(ctx context.Context, tools []mcp.Tool) []mcp.Tool { return toolFilter.FilterTools(ctx, tools) }),
	)

	registry.RegisterListingTools(srv, toolRegistry, svc)
	registry.RegisterResources(srv)

	toolContextSize := toolRegistry.ModelContextSize("gpt-4o")

	logger.Info().
		Ctx(ctx).
		Str("version", version.Version()).
		Int("max_concurrent_requests", limits.MaxConcurrentRequests).
		Int("max_open_workbooks", limits.MaxOpenWorkbooks).
		Int("max_fanout", limits.MaxFanout).
		Int("max_grid_cells", limits.MaxGridCells).
		Strs("tools", toolRegistry.Names(toolFilter)).
		Int("model_context_size", toolContextSize).
		Bool("stdio", useStdio).
		Msg("server bootstrap configured")

	if !useStdio {
		closeWithin(closeSource, shutdownTimeout, logger)
		// If no transport flags provided, print usage and exit non-zero
		fmt.Fprintln(os.Stderr, "no transport selected; use --stdio to run over stdio")
		os.Exit(2)
	}

	serveErr := server.ServeStdio(srv)
	closeWithin(closeSource, shutdownTimeout, logger)
	if serveErr != nil {
		// Use stderr for transport errors so clients don't misinterpret output
		fmt.Fprintf(os.Stderr, "Server error: %v\n", serveErr)
		os.Exit(1)
	}
}

// buildSource selects the spreadsheet backend. The returned close func
// releases backend resources on shutdown.
func buildSource(ctx context.Context, cfg *config.Config, limits runtime.Limits, ctrl *runtime.Controller, logger zerolog.Logger) (listing.Source, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }

	switch cfg.Backend {
	case config.BackendLocal:
		secMgr, err := security.NewManager(cfg.Local.AllowedDirs, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("security: %w", err)
		}
		if err := secMgr.ValidateConfig(); err != nil {
			return nil, nil, fmt.Errorf("security: %w", err)
		}
		logger.Info().Strs("allowed_dirs", secMgr.AllowedDirectories()).Msg("security allow-list configured")

		books := workbooks.NewManager(workbooks.Options{
			TTL:       cfg.Local.IdleTTL,
			MaxOpen:   limits.MaxOpenWorkbooks,
			Gate:      ctrl,
			Validator: secMgr,
		})
		books.Start()
		return workbooks.NewSource(secMgr, books, limits.MaxGridCells), books.Close, nil

	default:
		client, err := gsheets.New(ctx, cfg.Google, limits.MaxGridCells)
		if err != nil {
			return nil, nil, err
		}
		logger.Info().Int("retry_attempts", cfg.Google.RetryAttempts).Dur("retry_delay", cfg.Google.RetryDelay).Msg("google client configured")
		return client, noop, nil
	}
}

func closeWithin(closeFn func(context.Context) error, timeout time.Duration, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := closeFn(ctx); err != nil {
		logger.Warn().Err(err).Msg("shutdown did not complete cleanly")
	}
}
