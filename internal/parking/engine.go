package parking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/parkinglot-core/internal/gate"
)

// Logger defines the logging interface used by the Engine.
// This allows the engine to work with any logger implementation.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Engine drives the reservation lifecycle: register, check in, check out.
//
// It is safe for concurrent use; conflicting requests are arbitrated by the
// conditional writes in the Store.
type Engine struct {
	store     Store
	gate      gate.Controller
	logger    Logger
	publisher Publisher

	now func() time.Time
	otp OTPGenerator
}

// NewEngine creates an engine over a store and a gate controller.
func NewEngine(store Store, controller gate.Controller) *Engine {
	return &Engine{
		store:     store,
		gate:      controller,
		logger:    noopLogger{},
		publisher: noopPublisher{},
		now:       time.Now,
		otp:       RandomOTP,
	}
}

// SetLogger sets the logger for the engine.
func (e *Engine) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	e.logger = logger
}

// SetPublisher sets where committed events are sent.
func (e *Engine) SetPublisher(p Publisher) {
	if p == nil {
		p = noopPublisher{}
	}
	e.publisher = p
}

// Register reserves an available slot for a licence plate and returns the
// one-time code needed for check-in and check-out.
func (e *Engine) Register(ctx context.Context, slotNumber, plate string) (string, error) {
	slotNumber = strings.TrimSpace(slotNumber)
	plate = strings.TrimSpace(plate)
	if slotNumber == "" || plate == "" {
		return "", fmt.Errorf("%w: slot_number and license_plate are required", ErrValidation)
	}

	code, err := e.otp()
	if err != nil {
		return "", err
	}

	now := e.now()
	entry, err := e.store.Reserve(ctx, slotNumber, plate, code, now)
	if err != nil {
		return "", err
	}
	e.logger.Info("slot registered", "slot_number", slotNumber, "plate", plate, "log_id", entry.ID)

	if err := e.gate.NotifyRegistered(ctx, slotNumber); err != nil {
		e.logger.Warn("registration indicator failed", "slot_number", slotNumber, "op", gate.OpNotifyRegistered, "error", err)
	}

	e.publisher.Publish(ctx, Event{
		Type:         EventRegistered,
		SlotNumber:   slotNumber,
		SlotStatus:   SlotOccupied,
		LicensePlate: plate,
		LogID:        entry.ID,
		Timestamp:    now.UTC(),
	})
	return code, nil
}

// CheckIn records arrival once the entry sensor confirms a vehicle at the gate.
// Repeated check-ins re-stamp time_in.
func (e *Engine) CheckIn(ctx context.Context, plate, otp string) error {
	plate, otp, err := credentials(plate, otp)
	if err != nil {
		return err
	}

	slot, err := e.slotFor(ctx, plate, otp)
	if err != nil {
		return err
	}

	present, err := e.gate.CheckGateOccupancy(ctx)
	if err != nil {
		e.logger.Warn("entry sensor unavailable", "slot_number", slot.SlotNumber, "op", gate.OpCheckGateOccupancy, "error", err)
		return fmt.Errorf("%w: %w", ErrNoVehicleAtGate, err)
	}
	if !present {
		return ErrNoVehicleAtGate
	}

	now := e.now()
	entry, err := e.store.MarkCheckedIn(ctx, slot.SlotNumber, plate, otp, now)
	if err != nil {
		return err
	}
	e.logger.Info("vehicle checked in", "slot_number", slot.SlotNumber, "plate", plate, "log_id", entry.ID)

	opened, err := e.gate.OpenForCheckin(ctx, slot.SlotNumber)
	switch {
	case err != nil:
		e.logger.Warn("entry gate failed to open", "slot_number", slot.SlotNumber, "op", gate.OpOpenForCheckin, "error", err)
	case !opened:
		e.logger.Warn("entry gate refused to open", "slot_number", slot.SlotNumber, "op", gate.OpOpenForCheckin)
	}

	e.publisher.Publish(ctx, Event{
		Type:         EventCheckedIn,
		SlotNumber:   slot.SlotNumber,
		SlotStatus:   SlotOccupied,
		LicensePlate: plate,
		LogID:        entry.ID,
		Timestamp:    now.UTC(),
	})
	return nil
}

// CheckOut frees the slot once the slot sensor reports it empty, then opens
// the exit gate. The reservation stays closed whatever the gate does.
func (e *Engine) CheckOut(ctx context.Context, plate, otp string) (CheckoutResult, error) {
	plate, otp, err := credentials(plate, otp)
	if err != nil {
		return CheckoutResult{}, err
	}

	slot, err := e.slotFor(ctx, plate, otp)
	if err != nil {
		return CheckoutResult{}, err
	}

	entry, err := e.store.SlotLog(ctx, slot.SlotNumber, plate, otp)
	if err != nil {
		if errors.Is(err, ErrReservationNotFound) {
			return CheckoutResult{}, ErrNotCheckedIn
		}
		return CheckoutResult{}, err
	}
	if !entry.TimeIn.Valid {
		return CheckoutResult{}, ErrNotCheckedIn
	}

	occupied, err := e.gate.SlotOccupied(ctx, slot.SlotNumber)
	if err != nil {
		e.logger.Warn("slot sensor unavailable", "slot_number", slot.SlotNumber, "op", gate.OpSlotOccupied, "error", err)
		return CheckoutResult{}, fmt.Errorf("%w: %w", ErrVehicleStillPresent, err)
	}
	if occupied {
		return CheckoutResult{}, ErrVehicleStillPresent
	}

	now := e.now()
	if err := e.store.Release(ctx, slot.SlotNumber, plate, otp, entry.ID, now); err != nil {
		if !errors.Is(err, ErrUnauthorized) {
			e.logger.Error("check-out rolled back", "slot_number", slot.SlotNumber, "log_id", entry.ID, "error", err)
		}
		return CheckoutResult{}, err
	}
	e.logger.Info("vehicle checked out", "slot_number", slot.SlotNumber, "plate", plate, "log_id", entry.ID)

	result := CheckoutResult{
		SlotNumber: slot.SlotNumber,
		LogID:      entry.ID,
		TimeOut:    now.UTC(),
		Gate:       GateOK,
	}
	opened, err := e.gate.OpenForCheckout(ctx, slot.SlotNumber)
	switch {
	case err != nil:
		result.Gate = GateFailed
		e.logger.Warn("exit gate failed to open", "slot_number", slot.SlotNumber, "op", gate.OpOpenForCheckout, "error", err)
	case !opened:
		result.Gate = GateInvalidResponse
		e.logger.Warn("exit gate refused to open", "slot_number", slot.SlotNumber, "op", gate.OpOpenForCheckout)
	}

	e.publisher.Publish(ctx, Event{
		Type:         EventCheckedOut,
		SlotNumber:   slot.SlotNumber,
		SlotStatus:   SlotAvailable,
		LicensePlate: plate,
		LogID:        entry.ID,
		Gate:         result.Gate,
		Timestamp:    result.TimeOut,
	})
	return result, nil
}

// CreateSlot adds a new, available slot.
func (e *Engine) CreateSlot(ctx context.Context, slotNumber string) (*Slot, error) {
	slotNumber = strings.TrimSpace(slotNumber)
	if slotNumber == "" {
		return nil, fmt.Errorf("%w: slot_number is required", ErrValidation)
	}

	now := e.now()
	if err := e.store.CreateSlot(ctx, slotNumber, now); err != nil {
		return nil, err
	}
	e.logger.Info("slot created", "slot_number", slotNumber)

	e.publisher.Publish(ctx, Event{
		Type:       EventSlotCreated,
		SlotNumber: slotNumber,
		SlotStatus: SlotAvailable,
		Timestamp:  now.UTC(),
	})
	return e.store.GetSlot(ctx, slotNumber)
}

// SeedSlots creates any configured slots that do not exist yet.
func (e *Engine) SeedSlots(ctx context.Context, slotNumbers []string) (int, error) {
	created, err := e.store.EnsureSlots(ctx, slotNumbers, e.now())
	if err != nil {
		return 0, err
	}
	if created > 0 {
		e.logger.Info("slots seeded", "created", created, "configured", len(slotNumbers))
	}
	return created, nil
}

// slotFor maps the pair to the slot holding it, or ErrUnauthorized.
func (e *Engine) slotFor(ctx context.Context, plate, otp string) (*Slot, error) {
	slot, err := e.store.FindSlotByCredentials(ctx, plate, otp)
	if err != nil {
		if errors.Is(err, ErrSlotNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	return slot, nil
}

// credentials trims and checks a plate/code pair.
func credentials(plate, otp string) (string, string, error) {
	plate = strings.TrimSpace(plate)
	otp = strings.TrimSpace(otp)
	if plate == "" || otp == "" {
		return "", "", fmt.Errorf("%w: license_plate and otp are required", ErrValidation)
	}
	return plate, otp, nil
}
