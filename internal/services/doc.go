// Package services provides the external integrations used by the passbook server.
//
// There are two kinds of service:
//   - origin content providers: supply the pass content for the records of an origin type
//     (HTTPOriginProvider calls a remote service, StaticOriginProvider reads a YAML file)
//   - device log sinks: store the diagnostic messages devices post to the log endpoint
//     (console, postgres, S3 or a combination)
//
// Both are selected through configuration (see internal/config).
//
// To add a new origin provider:
//  1. Create a type that implements passbook.ContentProvider
//  2. Add a case for it in NewOriginRegistry() and to the provider names accepted by the config package
package services
