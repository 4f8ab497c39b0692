// Package handlers implements the Wallet web service endpoints.
//
// The routes are registered by internal/server under /passbook:
//
//	GET|POST /passbook/{passID}                                                   download (browser)
//	GET      /passbook/{version}/passes/{passTypeIdentifier}/{passID}                latest version
//	POST     /passbook/{version}/devices/{device}/registrations/{passTypeIdentifier}/{passID}  register
//	DELETE   (same path)                                                           deregister
//	GET      /passbook/{version}/devices/{device}/registrations/{passTypeIdentifier}  changed serial numbers
//	POST     /passbook/{version}/log                                              device logs
//
// The passTypeIdentifier and version path values are not used to select passes: the serial number
// (the pass ID) identifies a pass on its own.
//
// Failures are sent as bare status codes (see passbook.RespondWithError).
package handlers
