package parking

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

// SlotStatus is the occupancy state of a slot.
type SlotStatus string

// Slot statuses.
const (
	SlotAvailable SlotStatus = "available"
	SlotOccupied  SlotStatus = "occupied"
)

// Slot is a physical parking space.
//
// The one-time code is never serialised: it is revealed only once, in the
// response to a successful registration.
type Slot struct {
	SlotNumber   string      `json:"slot_number"`
	Status       SlotStatus  `json:"status"`
	LicensePlate null.String `json:"license_plate"`
	OTP          null.String `json:"-"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// IsOccupied reports whether the slot currently holds a reservation.
func (s *Slot) IsOccupied() bool {
	return s.Status == SlotOccupied
}

// Consistent reports whether status agrees with the plate/code columns.
func (s *Slot) Consistent() bool {
	holds := s.LicensePlate.Valid && s.OTP.Valid
	if s.Status == SlotOccupied {
		return holds
	}
	return !s.LicensePlate.Valid && !s.OTP.Valid
}

// ReservationLog is the audit row for one registration.
type ReservationLog struct {
	ID           int64     `json:"id"`
	SlotNumber   string    `json:"slot_number"`
	LicensePlate string    `json:"license_plate"`
	OTP          string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	TimeIn       null.Time `json:"time_in"`
	TimeOut      null.Time `json:"time_out"`
}

// Status derives the reservation state from the log timestamps.
func (l *ReservationLog) Status() ReservationStatus {
	switch {
	case l.TimeOut.Valid:
		return StatusCheckedOut
	case l.TimeIn.Valid:
		return StatusCheckedIn
	default:
		return StatusNotCheckedIn
	}
}

// ReservationStatus is the externally visible state of a reservation.
type ReservationStatus string

// Reservation statuses.
const (
	StatusNotCheckedIn ReservationStatus = "not_checked_in"
	StatusCheckedIn    ReservationStatus = "checked_in"
	StatusCheckedOut   ReservationStatus = "checked_out"
)

// GateOutcome records what happened to the post-commit exit gate command.
type GateOutcome string

// Gate outcomes.
const (
	GateOK              GateOutcome = "ok"
	GateInvalidResponse GateOutcome = "invalid_response"
	GateFailed          GateOutcome = "failed"
)

// Check-out messages returned to callers.
const (
	MessageCheckoutSuccess  = "Check-out success"
	suffixGateInvalid       = " (gate response invalid)"
	suffixGateActionFailure = " (gate open failed)"
)

// CheckoutResult describes a committed check-out.
// The reservation is closed regardless of Gate.
type CheckoutResult struct {
	SlotNumber string      `json:"slot_number"`
	LogID      int64       `json:"log_id"`
	TimeOut    time.Time   `json:"time_out"`
	Gate       GateOutcome `json:"gate"`
}

// Message is the caller-facing text, qualified when the gate misbehaved.
func (r CheckoutResult) Message() string {
	switch r.Gate {
	case GateInvalidResponse:
		return MessageCheckoutSuccess + suffixGateInvalid
	case GateFailed:
		return MessageCheckoutSuccess + suffixGateActionFailure
	default:
		return MessageCheckoutSuccess
	}
}
