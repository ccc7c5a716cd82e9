package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/jsonc"

	"github.com/jonwraymond/openviking-mcp/observe"
	"github.com/jonwraymond/openviking-mcp/secret"
)

// Defaults.
const (
	DefaultHost          = "0.0.0.0"
	DefaultPort          = 2033
	DefaultUpstreamPort  = 1933
	DefaultTransport     = TransportStreamableHTTP
	DefaultTokenCacheTTL = 30 * time.Second
)

// Transports.
const (
	TransportStreamableHTTP = "streamable-http"
	TransportStdio          = "stdio"
)

// Config is the effective server configuration.
type Config struct {
	// Path is the ov.conf file the configuration was loaded from.
	Path string

	Host        string
	Port        int
	RootAPIKey  string
	CORSOrigins []string
	Transport   string

	// JWTSecret enables HMAC-signed bearer tokens next to API keys.
	JWTSecret string

	// TokenCacheTTL bounds how long a verified bearer token is trusted.
	TokenCacheTTL time.Duration

	// UpstreamURL is the OpenViking server the tools forward to.
	UpstreamURL string

	// Workspace is the local data directory; the key database lives here.
	Workspace string

	Telemetry Telemetry

	Debug bool

	// APIKey is resolved once at startup for the stdio session.
	APIKey string
}

// Telemetry selects the OpenTelemetry exporters.
type Telemetry struct {
	TracingExporter string  `json:"tracing_exporter"`
	MetricsExporter string  `json:"metrics_exporter"`
	SamplePct       float64 `json:"sample_pct"`
}

// AuthEnabled reports whether a root key is configured.
func (c Config) AuthEnabled() bool {
	return c.RootAPIKey != ""
}

// Addr is the listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Endpoint is the MCP URL announced at startup.
func (c Config) Endpoint() string {
	return "http://" + c.Addr() + "/mcp"
}

// Validate checks values that came from outside the file merge.
func (c Config) Validate() error {
	if c.Transport != TransportStreamableHTTP && c.Transport != TransportStdio {
		return fmt.Errorf("%w: %q (valid: %s, %s)", ErrInvalidTransport, c.Transport, TransportStreamableHTTP, TransportStdio)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Port)
	}
	return nil
}

// ObserveConfig maps the configuration to observe.Config.
func (c Config) ObserveConfig(serviceName, version string) observe.Config {
	level := "info"
	if c.Debug {
		level = "debug"
	}
	t := c.Telemetry
	return observe.Config{
		ServiceName: serviceName,
		Version:     version,
		Tracing: observe.TracingConfig{
			Enabled:   t.TracingExporter != "" && t.TracingExporter != "none",
			Exporter:  t.TracingExporter,
			SamplePct: t.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  t.MetricsExporter != "" && t.MetricsExporter != "none",
			Exporter: t.MetricsExporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   level,
		},
	}
}

// Default returns the configuration used when no file exists.
func Default() Config {
	cfg, _ := merge(fileConfig{})
	return cfg
}

type section struct {
	Host        *string   `json:"host"`
	Port        *int      `json:"port"`
	RootAPIKey  *string   `json:"root_api_key"`
	CORSOrigins *[]string `json:"cors_origins"`
	URL         *string   `json:"url"`
}

type mcpSection struct {
	section
	JWTSecret     *string `json:"jwt_secret"`
	UpstreamURL   *string `json:"upstream_url"`
	TokenCacheTTL *string `json:"token_cache_ttl"`
}

type fileConfig struct {
	Server    *section    `json:"server"`
	MCPServer *mcpSection `json:"mcp_server"`
	Storage   *struct {
		Workspace *string `json:"workspace"`
	} `json:"storage"`
	Telemetry *Telemetry `json:"telemetry"`
}

// Load reads path and merges it. A missing file yields Default with Path
// set. Secret values are resolved through resolver; a nil resolver only
// expands ${VAR} references.
func Load(ctx context.Context, path string, resolver *secret.Resolver) (Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg := Default()
		cfg.Path = path
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	cfg.Path = path

	if cfg.RootAPIKey, err = resolveSecret(ctx, resolver, "root_api_key", cfg.RootAPIKey); err != nil {
		return Config{}, err
	}
	if cfg.JWTSecret, err = resolveSecret(ctx, resolver, "jwt_secret", cfg.JWTSecret); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse merges an ov.conf document without resolving secrets.
func Parse(data []byte) (Config, error) {
	var f fileConfig
	if len(strings.TrimSpace(string(data))) > 0 {
		if err := json.Unmarshal(jsonc.ToJSON(data), &f); err != nil {
			return Config{}, fmt.Errorf("parse: %w", err)
		}
	}
	return merge(f)
}

func merge(f fileConfig) (Config, error) {
	server := section{}
	if f.Server != nil {
		server = *f.Server
	}
	mcp := mcpSection{}
	if f.MCPServer != nil {
		mcp = *f.MCPServer
	}

	cfg := Config{
		Host:          first(mcp.Host, server.Host, DefaultHost),
		Port:          first(mcp.Port, nil, DefaultPort),
		RootAPIKey:    strings.TrimSpace(first(mcp.RootAPIKey, server.RootAPIKey, "")),
		CORSOrigins:   first(mcp.CORSOrigins, server.CORSOrigins, []string{"*"}),
		Transport:     DefaultTransport,
		JWTSecret:     first(mcp.JWTSecret, nil, ""),
		TokenCacheTTL: DefaultTokenCacheTTL,
		UpstreamURL:   first(mcp.UpstreamURL, server.URL, upstreamFromServer(server)),
		Workspace:     DefaultWorkspace(),
	}

	if mcp.TokenCacheTTL != nil {
		d, err := time.ParseDuration(*mcp.TokenCacheTTL)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("%w: token_cache_ttl %q", ErrInvalidDuration, *mcp.TokenCacheTTL)
		}
		cfg.TokenCacheTTL = d
	}
	if f.Storage != nil && f.Storage.Workspace != nil && *f.Storage.Workspace != "" {
		cfg.Workspace = expandHome(*f.Storage.Workspace)
	}
	if f.Telemetry != nil {
		cfg.Telemetry = *f.Telemetry
	}
	return cfg, nil
}

// first returns the first non-nil value, else def.
func first[T any](a, b *T, def T) T {
	if a != nil {
		return *a
	}
	if b != nil {
		return *b
	}
	return def
}

func upstreamFromServer(s section) string {
	host := "127.0.0.1"
	if s.Host != nil {
		switch h := strings.TrimSpace(*s.Host); h {
		case "", "0.0.0.0", "::":
		default:
			host = h
		}
	}
	port := DefaultUpstreamPort
	if s.Port != nil {
		port = *s.Port
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(port))
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		return homeDir() + p[1:]
	}
	return p
}

func resolveSecret(ctx context.Context, r *secret.Resolver, field, value string) (string, error) {
	if value == "" {
		return "", nil
	}
	v, err := r.ResolveValue(ctx, value)
	if err != nil {
		return "", fmt.Errorf("config: resolve %s: %w", field, err)
	}
	return strings.TrimSpace(v), nil
}
