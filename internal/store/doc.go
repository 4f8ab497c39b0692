// store package provides the passbook.Store implementations.
//
// PostgresStore is used in deployed environments. The (pass, device) uniqueness of registrations is
// enforced by a table constraint and concurrent registrations are resolved with INSERT ... ON CONFLICT DO NOTHING.
//
// MemoryStore keeps everything in a go-memdb database. It is used for local development and tests.
// memdb serializes write transactions, which makes the check-and-insert in Register atomic.
package store
