// Package integration contains end-to-end tests for passbook-server.
//
// These tests verify the server handles web service and admin requests correctly (expected responses,
// error handling, database persistence, etc). Each test runs against a temporary
// database with migrations applied, and the server is started in-process.
//
// Pass content comes from a fake origin service started by the test, so the HTTP origin provider
// is exercised as well.
//
// These tests assume the crypto, pkpass and passbook packages are working correctly (tested separately).
// If bugs are introduced in lower-level packages, there will be cascading failures here -
// fix the low-level problems first.
package integration
