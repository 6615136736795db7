package parking

import (
	"context"
	"time"
)

// Event types published by the Engine.
const (
	EventRegistered  = "reservation.registered"
	EventCheckedIn   = "reservation.checked_in"
	EventCheckedOut  = "reservation.checked_out"
	EventSlotCreated = "slot.created"
)

// Event describes a committed state change. It never carries the one-time code.
type Event struct {
	Type         string      `json:"type"`
	SlotNumber   string      `json:"slot_number"`
	SlotStatus   SlotStatus  `json:"slot_status"`
	LicensePlate string      `json:"license_plate,omitempty"`
	LogID        int64       `json:"log_id,omitempty"`
	Gate         GateOutcome `json:"gate,omitempty"`
	Timestamp    time.Time   `json:"timestamp"`
}

// Publisher receives events after the corresponding transaction commits.
// Implementations must not block for long and must not fail the caller.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, Event) {}
