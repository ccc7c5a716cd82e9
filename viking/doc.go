// Package viking is the boundary to the OpenViking knowledge base.
//
// Service is the contract every tool forwards to; Client implements it over
// the OpenViking HTTP API. Failures reported by the knowledge base surface as
// *Error, the one error kind tools render in-band with FormatError. Anything
// else is left to the MCP transport.
package viking
