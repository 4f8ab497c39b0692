// Package handlers provides general infrastructure HTTP handlers
// (health, readiness, version).
//
// Admin handlers are also included here as they are not part of the Wallet web service.
// The admin API is unauthenticated: expose it only on an internal network or
// put it behind an authenticating proxy.
package handlers
