// passbook package is the Wallet web service engine: passes, device registrations, change detection
// and archive building.
//
// **passes**
// A pass represents one external "origin" record (type,id). Its content and last modified time are
// supplied by the ContentProvider registered for the origin type in the OriginRegistry.
// The pass ID is the serial number devices see; the authentication token is generated at creation
// and never changes.
//
// **registrations**
// A device registers for push updates of a pass. There is at most one registration per (pass, device);
// the Store enforces this so that concurrent registrations cannot create duplicates.
// Registering twice is a no-op that keeps the original push token.
//
// **change detection**
// Devices ask which of their passes changed since a timestamp. The answer groups serial numbers by
// last update time (see GroupBySerialNumbers) and only covers active passes.
//
// **error handling**
// Device facing endpoints answer with bare status codes. Errors are mapped with MapErrorToStatus and
// the details logged server side (RespondWithError).
//
// **testing**
// The HTTP handlers are in the handlers sub package and are tested against the memory store.
// See test/integration for tests against postgres.
package passbook
