// Package keys manages accounts, users and their API keys.
//
// A Manager persists key material in a SQLite file inside the service
// workspace and resolves bearer tokens for the auth package. Only the
// SHA-256 hash of a user key is stored; the key itself is returned once, on
// creation. The configured root key is never stored and resolves to a ROOT
// identity without an account.
//
// Failures a caller can act on (duplicate or missing records, invalid roles)
// are reported as *viking.Error so tools render them like any other
// knowledge-base error.
package keys
