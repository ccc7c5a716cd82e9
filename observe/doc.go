// Package observe provides observability primitives for MCP tool calls.
//
// It is a pure instrumentation library: no execution, no transport, no I/O
// beyond exporter setup. The tools package wraps every handler with
// Middleware; expected failures (errors carrying an ErrorCode) are counted
// and logged at warn level, anything else at error level.
package observe
