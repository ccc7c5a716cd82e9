// Package config loads the server configuration.
//
// Settings come from ov.conf, a JSON document that may contain comments and
// trailing commas, from environment variables and from command-line flags,
// in increasing order of precedence. The mcp_server section of ov.conf
// overrides the shared server section field by field:
//
//	host         = mcp_server.host         ?? server.host         ?? "0.0.0.0"
//	root_api_key = mcp_server.root_api_key ?? server.root_api_key ?? ""
//	cors_origins = mcp_server.cors_origins ?? server.cors_origins ?? ["*"]
//	port         = mcp_server.port         ?? 2033
//
// The port never falls back to server.port, which is the OpenViking server's
// own port. A JSON null counts as absent.
package config
