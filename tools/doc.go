// Package tools registers the OpenViking MCP tools.
//
// Every tool builds the caller's auth.RequestContext from the session slot,
// forwards to the shared viking.Service or key manager and renders a JSON
// text result. Expected failures never fail the call: permission denials,
// argument errors and knowledge-base errors are rendered in-band as
// {"error":true,...} payloads. Any other error is returned to the MCP SDK.
//
// Tool groups: system, fs, content, search, resources, sessions, relations,
// pack and admin. Admin tools check the caller's role first, then refuse to
// run in dev mode, then call the key manager.
package tools
