// Package server provides the HTTP server for the passbook web service.
//
// the server is configured through environment variables
// (see internal/config/config.go for details)
//
// NewServer wires the engine together: the Store (postgres or memory), the origin registry and device
// log sinks (internal/services), the pass signer (internal/crypto) and the archive builder.
//
// The package registers the routes for
//   - the Wallet web service under /passbook (handlers are in internal/passbook/handlers)
//   - common infrastructure handlers (health, readiness, version)
//   - the admin API for creating and managing passes.
//
// middleware is in internal/server/middleware
package server
