// Package api implements the HTTP surface of the parking lot core.
//
// This package provides:
//   - the public reservation routes (/slots, /register, /checkin, /checkout,
//     /logs, /status) backed by parking.Engine and parking.QueryService
//   - a WebSocket hub streaming slot and reservation events
//   - admin routes (slot creation, audit trail) behind HS256 bearer tokens
//   - the middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Errors
//
// Every failure body has the shape {"error": "...", "code": "..."}. Domain
// sentinels are mapped to status codes in one place, writeDomainError.
//
// # Security
//
// The reservation routes are unauthenticated: the licence plate and one-time
// code pair is the caller's capability. Only /api/v1/admin and /ws require a
// token.
package api
