// Package gate is the client side of the gate-and-sensor controller.
//
// The controller is an external networked device that drives the entry gate,
// the exit gate, the per-slot LED and the vehicle presence sensors. The
// reservation engine depends only on the Controller interface; HTTPController
// is the production implementation.
//
// Every failure to obtain a definite answer from the device (transport error,
// timeout, non-2xx status, undecodable or incomplete body) is reported as a
// *PeripheralError, which matches ErrPeripheral under errors.Is. Callers decide
// whether that is fatal: the engine treats it as "precondition failed" for
// sensor queries and as a warning for actuation.
//
// # Security
//
// The device protocol has no authentication. Keep the controller on an
// isolated network segment.
package gate
