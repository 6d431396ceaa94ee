package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"

	httpserver "github.com/mcp-testmo/testmo-mcp-server/internal/http"
	"github.com/mcp-testmo/testmo-mcp-server/internal/mcp_handlers"
	"github.com/mcp-testmo/testmo-mcp-server/internal/middleware"
	"github.com/mcp-testmo/testmo-mcp-server/internal/testmo"
)

// AppVersion holds build-time version information
type AppVersion struct {
	Version string
	Commit  string
	Date    string
}

func (v AppVersion) String() string {
	return fmt.Sprintf("%s (%s) %s", v.Version, v.Commit, v.Date)
}

// GetCommonFlags returns the common CLI flags used by all server modes (both stdio and http)
func GetCommonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "testmo-url",
			Required: true,
			Sources:  cli.EnvVars("TESTMO_URL"),
			Usage:    "[GLOBAL/REQUIRED] Testmo instance URL (e.g., https://acme.testmo.net)",
		},
		&cli.Int64Flag{
			Name:    "project-id",
			Sources: cli.EnvVars("TESTMO_PROJECT_ID"),
			Usage:   "[GLOBAL/OPTIONAL] Default Testmo project ID used when a tool call omits project_id",
		},
		&cli.StringFlag{
			Name:    "log-level",
			Sources: cli.EnvVars("LOG_LEVEL"),
			Value:   slog.LevelInfo.String(),
			Usage:   "[GLOBAL/OPTIONAL] Logging level (DEBUG, INFO, WARN, ERROR)",
		},
		&cli.DurationFlag{
			Name:    "rate-limit-delay",
			Sources: cli.EnvVars("TESTMO_RATE_LIMIT_DELAY"),
			Value:   testmo.RateLimitDelay,
			Usage:   "[GLOBAL/OPTIONAL] Delay between consecutive calls of a paginated or recursive operation",
		},
		&cli.DurationFlag{
			Name:    "request-timeout",
			Sources: cli.EnvVars("TESTMO_REQUEST_TIMEOUT"),
			Value:   testmo.DefaultRequestTimeout,
			Usage:   "[GLOBAL/OPTIONAL] Timeout of a single Testmo API request",
		},
		&cli.FloatFlag{
			Name:    "max-rps",
			Sources: cli.EnvVars("TESTMO_MAX_RPS"),
			Usage:   "[GLOBAL/OPTIONAL] Upper bound on outbound requests per second (0 = unlimited)",
		},
		&cli.StringFlag{
			Name:    "field-mappings",
			Sources: cli.EnvVars("TESTMO_FIELD_MAPPINGS"),
			Usage:   "[GLOBAL/OPTIONAL] YAML file overriding the built-in field mappings",
		},
	}
}

// GetHTTPFlags returns additional flags specific to HTTP mode only (not available in stdio mode)
func GetHTTPFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "port",
			Sources: cli.EnvVars("MCP_SERVER_PORT"),
			Usage:   "[HTTP-ONLY] HTTP server port",
			Value:   8080,
		},
		&cli.StringFlag{
			Name:    "host",
			Sources: cli.EnvVars("MCP_SERVER_HOST"),
			Usage:   "[HTTP-ONLY] HTTP bind host/interface (e.g., 0.0.0.0, 127.0.0.1, ::)",
		},
		&cli.IntFlag{
			Name:    "max-workers",
			Sources: cli.EnvVars("TESTMO_MAX_WORKERS"),
			Usage:   "[HTTP-ONLY] Maximum number of concurrent MCP requests (0 = auto-detect as CPU count * 2)",
		},
		&cli.DurationFlag{
			Name:    "connection-timeout",
			Sources: cli.EnvVars("TESTMO_CONNECTION_TIMEOUT"),
			Usage:   "[HTTP-ONLY] Timeout of outbound Testmo connections",
			Value:   30 * time.Second,
		},
		&cli.StringSliceFlag{
			Name:    "cors-origins",
			Sources: cli.EnvVars("MCP_CORS_ORIGINS"),
			Usage:   "[HTTP-ONLY] Allowed CORS origins (comma separated); CORS is disabled when empty",
		},
		&cli.StringFlag{
			Name:    "token",
			Sources: cli.EnvVars("TESTMO_API_KEY"),
			Usage:   "[HTTP-ONLY] Fallback API key for requests without an 'Authorization: Bearer' header",
		},
	}
}

// GetStdioFlags returns flags specific to stdio mode only
func GetStdioFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "token",
			Sources: cli.EnvVars("TESTMO_API_KEY"),
			Usage:   "[STDIO-ONLY] Testmo API key (required for stdio mode)",
		},
	}
}

// GetMCPMode returns the MCP mode from environment variable, defaults to "stdio"
func GetMCPMode() string {
	mcpMode := strings.ToLower(strings.TrimSpace(os.Getenv("MCP_MODE")))
	slog.Debug("MCP_MODE env variable is set to: " + mcpMode)
	if mcpMode == "" {
		mcpMode = "stdio"
	}
	return mcpMode
}

// InitLogger returns a CLI before function that initializes logging
func InitLogger() func(ctx context.Context, command *cli.Command) (context.Context, error) {
	return func(ctx context.Context, command *cli.Command) (context.Context, error) {
		var logLevel slog.Level
		if err := logLevel.UnmarshalText([]byte(command.String("log-level"))); err != nil {
			return nil, err
		}
		slog.SetDefault(
			slog.New(
				slog.NewTextHandler(
					os.Stderr,
					&slog.HandlerOptions{Level: logLevel},
				),
			),
		)

		return ctx, nil
	}
}

// BuildHTTPServerConfig creates HTTPServerConfig from CLI flags.
func BuildHTTPServerConfig(
	cmd *cli.Command,
	appVersion AppVersion,
) (httpserver.HTTPServerConfig, error) {
	settings := SettingsFromCommand(cmd)
	if err := settings.Validate(); err != nil {
		return httpserver.HTTPServerConfig{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return httpserver.HTTPServerConfig{
		Version:           appVersion.String(),
		HostURL:           settings.URL,
		FallbackToken:     settings.Token,
		DefaultProjectID:  settings.ProjectID,
		MaxWorkers:        cmd.Int("max-workers"),
		ConnectionTimeout: cmd.Duration("connection-timeout"),
		CORSOrigins:       cmd.StringSlice("cors-origins"),
		FieldMappings:     settings.FieldMappings(),
		ClientOptions:     settings.ClientOptions(),
	}, nil
}

// NewMCPServer creates a new MCP server from CLI command configuration.
// The returned client must be closed by the caller.
func NewMCPServer(
	cmd *cli.Command,
	appVersion AppVersion,
) (*server.MCPServer, *testmo.Client, error) {
	settings := SettingsFromCommand(cmd)
	if err := settings.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	opts := append(settings.ClientOptions(), testmo.WithRequestMiddleware(middleware.RequestContextMiddleware))
	client, err := testmo.NewClient(settings.URL, settings.Token, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Testmo client: %w", err)
	}

	mcpServer, err := mcp_handlers.NewServer(appVersion.Version, client, mcp_handlers.Options{
		DefaultProjectID: settings.ProjectID,
		FieldMappings:    settings.FieldMappings(),
	})
	if err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to create Testmo MCP server: %w", err)
	}
	return mcpServer, client, nil
}

// HandleServerError processes server errors, distinguishing between graceful shutdowns and actual errors.
// Returns nil for graceful shutdowns, or the original error for actual problems.
func HandleServerError(err error, serverType string) error {
	if err == nil ||
		errors.Is(err, http.ErrServerClosed) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		slog.Info("server shutdown completed", "type", serverType)
		return nil
	}

	slog.Error("server error occurred", "type", serverType, "error", err)
	return fmt.Errorf("error running %s server: %w", serverType, err)
}

// RunStdioServer starts the Testmo MCP server in stdio mode.
func RunStdioServer(ctx context.Context, cmd *cli.Command, appVersion AppVersion) error {
	if cmd.String("token") == "" {
		return errors.New(
			"TESTMO_API_KEY is required for stdio mode (it can be passed via environment variable or --token flag)",
		)
	}

	mcpServer, client, err := NewMCPServer(cmd, appVersion)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()
	stdioServer := server.NewStdioServer(mcpServer)

	errC := make(chan error, 1)
	go func() {
		in, out := io.Reader(os.Stdin), io.Writer(os.Stdout)
		errC <- stdioServer.Listen(ctx, in, out)
	}()

	slog.Info("Testmo MCP Server running on stdio", "url", client.BaseURL())

	select {
	case <-ctx.Done():
		slog.Info("shutting down server...")
	case err := <-errC:
		return HandleServerError(err, "stdio")
	}

	return nil
}

// RunStreamingServer starts the Testmo MCP server in streaming mode over HTTP.
func RunStreamingServer(ctx context.Context, cmd *cli.Command, appVersion AppVersion) error {
	httpConfig, err := BuildHTTPServerConfig(cmd, appVersion)
	if err != nil {
		return fmt.Errorf("failed to build HTTP server config: %w", err)
	}

	httpServer, err := httpserver.NewHTTPServer(httpConfig)
	if err != nil {
		return fmt.Errorf("failed to create HTTP MCP server: %w", err)
	}
	addr := fmt.Sprintf("%s:%d", cmd.String("host"), cmd.Int("port"))

	srv := &http.Server{
		Addr:              addr,
		Handler:           httpServer.Router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errC := make(chan error, 1)
	go func() {
		errC <- srv.ListenAndServe()
	}()

	slog.Info("Testmo MCP Server running in streaming mode", "addr", addr)

	select {
	case <-ctx.Done():
		slog.Info("shutting down server...")
		sCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(sCtx); err != nil {
			slog.Error("error during server shutdown", "error", err)
		}
		if err := httpServer.Stop(); err != nil {
			slog.Error("error stopping HTTP server", "error", err)
		}
	case err := <-errC:
		_ = httpServer.Stop()
		return HandleServerError(err, "http")
	}

	return nil
}

// RunApp creates and runs the CLI application with proper configuration
func RunApp(ctx context.Context, appVersion AppVersion) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	mcpMode := GetMCPMode()
	var allFlags []cli.Flag
	allFlags = append(allFlags, GetCommonFlags()...)
	if mcpMode == "http" {
		allFlags = append(allFlags, GetHTTPFlags()...)
	} else {
		allFlags = append(allFlags, GetStdioFlags()...)
	}

	cmd := &cli.Command{
		Name:    "testmo-mcp-server",
		Version: appVersion.String(),
		Description: `Testmo MCP Server

ENVIRONMENT VARIABLES:
   MCP_MODE    Server mode: "stdio" (default) or "http"
               Controls which server type to run and which flags are available
   A .env file in the working directory is loaded before flags are parsed.

FLAG CATEGORIES:
   [GLOBAL/REQUIRED]  - Required for all modes (stdio and http)
   [GLOBAL/OPTIONAL]  - Optional for all modes (stdio and http)
   [STDIO-ONLY]       - Only available when MCP_MODE=stdio (default)
   [HTTP-ONLY]        - Only available when MCP_MODE=http

AUTHENTICATION:
   stdio mode: TESTMO_API_KEY is REQUIRED (environment variable or --token flag)
   http mode:  Keys are passed per-request via 'Authorization: Bearer <key>' header;
               TESTMO_API_KEY is only used for requests without that header

USAGE EXAMPLES:
   # Run in stdio mode (default)
   testmo-mcp-server --testmo-url https://acme.testmo.net --token YOUR_KEY

   # Run in http mode with custom port
   MCP_MODE=http testmo-mcp-server --testmo-url https://acme.testmo.net --port 9090`,
		Flags:  allFlags,
		Before: InitLogger(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			switch mcpMode {
			case "http":
				return RunStreamingServer(ctx, cmd, appVersion)
			case "stdio":
				return RunStdioServer(ctx, cmd, appVersion)
			default:
				slog.Info(
					"unknown MCP_MODE, defaulting to stdio",
					"mode",
					mcpMode,
					"supported",
					"stdio, http",
				)
				return RunStdioServer(ctx, cmd, appVersion)
			}
		},
	}

	return cmd.Run(ctx, os.Args)
}
