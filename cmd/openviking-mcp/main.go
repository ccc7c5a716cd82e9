// Command openviking-mcp serves the OpenViking tools over MCP.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/jonwraymond/openviking-mcp/app"
	"github.com/jonwraymond/openviking-mcp/config"
	"github.com/jonwraymond/openviking-mcp/observe"
	"github.com/jonwraymond/openviking-mcp/resilience"
	"github.com/jonwraymond/openviking-mcp/secret"
	"github.com/jonwraymond/openviking-mcp/server"
	"github.com/jonwraymond/openviking-mcp/viking"
)

// version is set at build time.
var version = "dev"

// upstreamTimeout bounds each attempt of an ordinary upstream call. Resource
// ingestion and wait_processed are bounded by their own timeout argument.
const upstreamTimeout = 60 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "openviking-mcp: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("openviking-mcp", pflag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "OpenViking MCP Server: expose OpenViking capabilities via MCP")
		fs.PrintDefaults()
	}
	flags := config.BindFlags(fs, config.DefaultPath())
	if err := fs.Parse(args); err != nil {
		return err
	}

	env, err := config.ParseEnv()
	if err != nil {
		return fmt.Errorf("environment: %w", err)
	}
	cfg, err := loadConfig(ctx, flags, env)
	if err != nil {
		return err
	}

	obs, err := observe.NewObserver(ctx, cfg.ObserveConfig(server.Name, version))
	if err != nil {
		return fmt.Errorf("observability: %w", err)
	}
	defer func() { _ = obs.Shutdown(context.WithoutCancel(ctx)) }()
	logger := obs.Logger()
	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		return err
	}

	logger.Info(ctx, "OpenViking MCP Server starting", observe.Field{Key: "version", Value: version})
	logger.Info(ctx, "config", observe.Field{Key: "path", Value: cfg.Path})
	logger.Info(ctx, "transport", observe.Field{Key: "transport", Value: cfg.Transport})
	if cfg.Transport == config.TransportStreamableHTTP {
		logger.Info(ctx, "endpoint", observe.Field{Key: "url", Value: cfg.Endpoint()})
	}

	client, err := viking.NewClient(viking.ClientConfig{
		BaseURL:   cfg.UpstreamURL,
		RootKey:   cfg.RootAPIKey,
		Workspace: cfg.Workspace,
		Policy:    resilience.Policy{Timeout: upstreamTimeout},
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	a, err := app.New(client, app.Config{RootKey: cfg.RootAPIKey, Logger: logger})
	if err != nil {
		return err
	}

	opts := server.Options{
		Config:     cfg,
		Version:    version,
		Logger:     logger,
		Middleware: mw,
	}
	return app.Run(ctx, a, func(ctx context.Context, a *app.App) error {
		return server.Serve(ctx, a, opts)
	})
}

// loadConfig merges ov.conf, the environment and the flags, in that order.
func loadConfig(ctx context.Context, flags *config.Flags, env config.Env) (config.Config, error) {
	path := config.ConfigPathFrom(flags, env)
	resolver := secret.Default(filepath.Dir(path))
	defer func() { _ = resolver.Close() }()

	cfg, err := config.Load(ctx, path, resolver)
	if err != nil {
		return config.Config{}, err
	}
	env.ApplyEnv(&cfg)
	flags.Apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
