package config

import (
	"github.com/spf13/pflag"
)

// Flags are the command-line overrides.
type Flags struct {
	fs *pflag.FlagSet

	ConfigPath string
	Host       string
	Port       int
	Transport  string
}

// BindFlags registers the server flags on fs. defaultPath is shown as the
// --config default.
func BindFlags(fs *pflag.FlagSet, defaultPath string) *Flags {
	f := &Flags{fs: fs}
	fs.StringVar(&f.ConfigPath, "config", defaultPath, "Path to ov.conf")
	fs.StringVar(&f.Host, "host", DefaultHost, "Host to bind")
	fs.IntVar(&f.Port, "port", DefaultPort, "Port to listen on")
	fs.StringVar(&f.Transport, "transport", DefaultTransport, "Transport type: streamable-http or stdio")
	return f
}

// Apply overrides cfg with every flag given explicitly on the command line.
// The transport always comes from the flags.
func (f *Flags) Apply(cfg *Config) {
	if f.fs.Changed("host") {
		cfg.Host = f.Host
	}
	if f.fs.Changed("port") {
		cfg.Port = f.Port
	}
	cfg.Transport = f.Transport
}

// ConfigPathFrom picks the ov.conf path: --config, then
// OPENVIKING_CONFIG_FILE, then DefaultPath.
func ConfigPathFrom(f *Flags, e Env) string {
	if f.fs.Changed("config") {
		return f.ConfigPath
	}
	if e.ConfigFile != "" {
		return e.ConfigFile
	}
	return f.ConfigPath
}
