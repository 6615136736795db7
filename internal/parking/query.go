package parking

import (
	"context"
	"errors"
)

// QueryService offers read-only views of slots and reservations.
type QueryService struct {
	store Store
}

// NewQueryService creates a query service over a store.
func NewQueryService(store Store) *QueryService {
	return &QueryService{store: store}
}

// ListSlots returns every slot ordered by slot number.
func (q *QueryService) ListSlots(ctx context.Context) ([]Slot, error) {
	return q.store.ListSlots(ctx)
}

// GetSlot returns one slot.
func (q *QueryService) GetSlot(ctx context.Context, slotNumber string) (*Slot, error) {
	return q.store.GetSlot(ctx, slotNumber)
}

// ListLogs returns every reservation log, latest check-in first.
func (q *QueryService) ListLogs(ctx context.Context) ([]ReservationLog, error) {
	return q.store.ListLogs(ctx)
}

// Status reports the state of the reservation for the pair. While a slot
// holds the pair, its log row is used, the same one check-in and check-out
// act on. Otherwise the newest row for the pair is used.
func (q *QueryService) Status(ctx context.Context, plate, otp string) (ReservationStatus, error) {
	plate, otp, err := credentials(plate, otp)
	if err != nil {
		return "", err
	}

	var entry *ReservationLog
	slot, err := q.store.FindSlotByCredentials(ctx, plate, otp)
	switch {
	case err == nil:
		entry, err = q.store.SlotLog(ctx, slot.SlotNumber, plate, otp)
	case errors.Is(err, ErrSlotNotFound):
		entry, err = q.store.LatestLog(ctx, plate, otp)
	}
	if err != nil {
		return "", err
	}
	return entry.Status(), nil
}
