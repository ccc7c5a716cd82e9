// Package health reports the liveness and readiness of the MCP server.
//
// Checkers report a Status (healthy, degraded, unhealthy). The server
// registers one checker per dependency on an Aggregator: the application
// lifecycle, the upstream OpenViking server, and process memory. Mount
// exposes the aggregate on a chi router:
//
//	GET /healthz   liveness, always 200 while the process serves
//	GET /readyz    200 when no checker is unhealthy, 503 otherwise
//	GET /health    JSON report of every checker
package health
