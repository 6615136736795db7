package parking

import (
	"errors"
	"fmt"
)

// Domain errors for the parking package.
//
// Check them with errors.Is:
//
//	if errors.Is(err, parking.ErrPreconditionFailed) {
//	    // vehicle sensor disagreed, or not checked in yet
//	}
var (
	// ErrValidation is returned for missing or malformed input. Nothing is written.
	ErrValidation = errors.New("parking: invalid input")

	// ErrSlotNotFound is returned when the slot number does not exist.
	ErrSlotNotFound = errors.New("parking: slot not found")

	// ErrSlotExists is returned when creating a slot that already exists.
	ErrSlotExists = errors.New("parking: slot already exists")

	// ErrSlotOccupied is returned when registering against an occupied slot.
	ErrSlotOccupied = errors.New("parking: slot occupied")

	// ErrReservationNotFound is returned when no log row matches a plate/code pair.
	ErrReservationNotFound = errors.New("parking: reservation not found")

	// ErrUnauthorized is returned when no slot currently holds the plate/code pair.
	ErrUnauthorized = errors.New("parking: invalid license plate or code")

	// ErrPreconditionFailed is returned when a physical-world check fails.
	ErrPreconditionFailed = errors.New("parking: precondition failed")

	// ErrPersistence is returned when a store read, write or transaction fails.
	ErrPersistence = errors.New("parking: persistence failure")
)

// Precondition failures. Each matches ErrPreconditionFailed.
var (
	// ErrNoVehicleAtGate: the entry sensor did not report a vehicle.
	ErrNoVehicleAtGate = fmt.Errorf("%w: no vehicle at entry gate", ErrPreconditionFailed)

	// ErrNotCheckedIn: check-out attempted before check-in.
	ErrNotCheckedIn = fmt.Errorf("%w: not checked in", ErrPreconditionFailed)

	// ErrVehicleStillPresent: the slot sensor still sees a vehicle.
	ErrVehicleStillPresent = fmt.Errorf("%w: vehicle still in slot", ErrPreconditionFailed)
)

// persistenceErr tags a store failure so callers can match ErrPersistence.
func persistenceErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}
