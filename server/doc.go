// Package server exposes the tools over the MCP transports.
//
// The streamable-http transport serves stateless JSON responses on /mcp
// behind a chi router carrying request ids, panic recovery, CORS, health
// probes and, with the prometheus exporter, /metrics. When a key store
// exists every /mcp request must carry a bearer token that resolves to an
// identity.
//
// The stdio transport serves one session. With authentication configured
// its identity is resolved once at startup from OPENVIKING_API_KEY.
package server
