// Package parking implements slot reservations for the lot.
//
// A reservation moves through three states, recorded on its ReservationLog:
//
//	registered (time_in=NULL) -> checked in (time_in set) -> checked out (time_out set)
//
// The Engine is the only writer. It validates each transition against the
// Store, consults the gate controller for physical-world preconditions and
// drives the gates. The QueryService offers read-only projections.
//
// # Consistency
//
//   - A slot is occupied exactly when it holds a licence plate and a
//     one-time code (enforced by a CHECK constraint and every write path).
//   - Registration and check-out use conditional updates inside a
//     transaction, so concurrent requests on the same slot cannot both win.
//   - Check-out frees the slot and closes the log in one transaction.
//
// # Peripheral failures
//
// Sensor queries fail closed: no definite answer from the controller means
// the precondition failed. Actuation (LED, gates) is best effort: failures
// are logged and reported, never rolled back.
package parking
