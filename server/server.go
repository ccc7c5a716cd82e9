package server

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/openviking-mcp/app"
	"github.com/jonwraymond/openviking-mcp/auth"
	"github.com/jonwraymond/openviking-mcp/config"
	"github.com/jonwraymond/openviking-mcp/observe"
	"github.com/jonwraymond/openviking-mcp/tools"
)

// Name identifies this server to MCP clients.
const Name = "openviking-mcp"

// Instructions is sent to clients on initialize.
const Instructions = "OpenViking Context Database MCP Server. " +
	"Provides tools for managing AI agent context: filesystem operations, " +
	"semantic search, resource management, session/memory management, " +
	"and more. All URIs use the viking:// protocol."

// Options configures Serve.
type Options struct {
	Config  config.Config
	Version string

	// Logger defaults to observe.NopLogger().
	Logger observe.Logger

	// Middleware observes tool calls. Default: observe.NopMiddleware()
	Middleware *observe.Middleware
}

func (o *Options) defaults() {
	if o.Logger == nil {
		o.Logger = observe.NopLogger()
	}
	if o.Middleware == nil {
		o.Middleware = observe.NopMiddleware()
	}
	if o.Version == "" {
		o.Version = "dev"
	}
}

// Serve runs the configured transport until ctx ends. It is meant to be
// passed to app.Run.
func Serve(ctx context.Context, a *app.App, opts Options) error {
	if a == nil {
		return ErrNilApp
	}
	opts.defaults()

	switch opts.Config.Transport {
	case config.TransportStdio:
		return serveStdio(ctx, a, opts)
	case config.TransportStreamableHTTP, "":
		return serveHTTP(ctx, a, opts)
	default:
		return fmt.Errorf("%w: %q", config.ErrInvalidTransport, opts.Config.Transport)
	}
}

// newMCPServer builds an MCP server with every tool registered. fallback is
// the identity used by calls without a verified token.
func newMCPServer(a *app.App, opts Options, fallback *auth.SessionSlot) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: Name, Version: opts.Version}, &mcp.ServerOptions{
		Instructions: Instructions,
	})
	tools.New(tools.Config{
		App:        a,
		Middleware: opts.Middleware,
		Fallback:   fallback,
	}).Register(server)
	return server
}

// keyStore returns the store bearer tokens resolve against, or nil in dev
// mode. A JWT secret adds signed tokens after the key manager.
func keyStore(a *app.App, cfg config.Config) auth.KeyStore {
	store := a.KeyStore()
	if store == nil {
		return nil
	}
	if cfg.JWTSecret == "" {
		return store
	}
	jwtStore := auth.NewJWTKeyStore(auth.JWTConfig{}, auth.NewStaticKeyProvider([]byte(cfg.JWTSecret)))
	return auth.NewCompositeKeyStore(store, jwtStore)
}
