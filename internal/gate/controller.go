package gate

import "context"

// Controller operation names, used in PeripheralError.Op and log fields.
const (
	OpNotifyRegistered   = "notify_registered"
	OpCheckGateOccupancy = "check_gate_occupancy"
	OpOpenForCheckin     = "open_for_checkin"
	OpSlotOccupied       = "slot_occupied"
	OpOpenForCheckout    = "open_for_checkout"
)

// Controller is the contract the gate-and-sensor device must satisfy.
//
// Implementations must bound every call; a hung device must not stall the
// caller beyond the configured timeout. All errors must match ErrPeripheral.
type Controller interface {
	// NotifyRegistered pushes "slot registered" to the slot's status LED.
	NotifyRegistered(ctx context.Context, slotNumber string) error

	// CheckGateOccupancy reports whether a vehicle is waiting at the entry gate.
	CheckGateOccupancy(ctx context.Context) (hasVehicle bool, err error)

	// OpenForCheckin opens the entry gate. ok is the device's acknowledgement.
	OpenForCheckin(ctx context.Context, slotNumber string) (ok bool, err error)

	// SlotOccupied reports whether the slot's sensor sees a vehicle.
	SlotOccupied(ctx context.Context, slotNumber string) (occupied bool, err error)

	// OpenForCheckout opens the exit gate. ok is the device's acknowledgement.
	OpenForCheckout(ctx context.Context, slotNumber string) (ok bool, err error)
}
