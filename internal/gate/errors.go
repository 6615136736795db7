package gate

import (
	"errors"
	"fmt"
)

// ErrPeripheral matches every error returned by a Controller.
var ErrPeripheral = errors.New("gate: peripheral error")

// ErrMalformedResponse is wrapped when the device answers with a body that
// does not carry the expected field.
var ErrMalformedResponse = errors.New("gate: malformed response")

// PeripheralError describes a failed controller call.
type PeripheralError struct {
	// Op is the controller operation, e.g. "slot_occupied".
	Op string
	// Slot is the slot involved, empty for lot-wide operations.
	Slot string
	Err  error
}

func (e *PeripheralError) Error() string {
	if e.Slot != "" {
		return fmt.Sprintf("gate %s (slot %s): %v", e.Op, e.Slot, e.Err)
	}
	return fmt.Sprintf("gate %s: %v", e.Op, e.Err)
}

func (e *PeripheralError) Unwrap() error { return e.Err }

// Is reports ErrPeripheral as a match so callers need not know the concrete type.
func (e *PeripheralError) Is(target error) bool {
	return target == ErrPeripheral
}
