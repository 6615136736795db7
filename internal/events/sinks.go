package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/parkinglot-core/internal/audit"
	"github.com/nerrad567/parkinglot-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/parkinglot-core/internal/parking"
)

// SlotReader is the read side the sinks need.
type SlotReader interface {
	GetSlot(ctx context.Context, slotNumber string) (*parking.Slot, error)
	ListSlots(ctx context.Context) ([]parking.Slot, error)
}

// MQTTPublisher is satisfied by *mqtt.Client.
type MQTTPublisher interface {
	PublishRetained(topic string, payload []byte) error
	PublishEvent(topic string, payload []byte) error
	Topics() mqtt.Topics
}

// SlotState is the per-slot payload of the retained MQTT message and of
// the WebSocket slots channel.
type SlotState struct {
	SlotNumber string             `json:"slot_number"`
	Status     parking.SlotStatus `json:"status"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// NewMQTTSink publishes each event, then the slot's current state as a
// retained message. The state is re-read from the store so that events
// handled out of order still leave the retained message current.
func NewMQTTSink(client MQTTPublisher, slots SlotReader) Sink {
	return SinkFunc(func(ctx context.Context, event parking.Event) error {
		topics := client.Topics()

		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("encoding event: %w", err)
		}
		if err := client.PublishEvent(topics.Event(event.Type), payload); err != nil {
			return fmt.Errorf("publishing event: %w", err)
		}

		slot, err := slots.GetSlot(ctx, event.SlotNumber)
		if err != nil {
			return fmt.Errorf("reading slot state: %w", err)
		}
		state, err := json.Marshal(SlotState{
			SlotNumber: slot.SlotNumber,
			Status:     slot.Status,
			UpdatedAt:  slot.UpdatedAt,
		})
		if err != nil {
			return fmt.Errorf("encoding slot state: %w", err)
		}
		if err := client.PublishRetained(topics.SlotState(slot.SlotNumber), state); err != nil {
			return fmt.Errorf("publishing slot state: %w", err)
		}
		return nil
	})
}

// MetricsWriter is satisfied by *influxdb.Client.
type MetricsWriter interface {
	WriteReservationEvent(eventType, slotNumber, gateOutcome string, logID int64, at time.Time)
	WriteOccupancy(occupied, total int, at time.Time)
}

// NewMetricsSink records each event and a fresh occupancy sample.
func NewMetricsSink(w MetricsWriter, slots SlotReader) Sink {
	return SinkFunc(func(ctx context.Context, event parking.Event) error {
		w.WriteReservationEvent(event.Type, event.SlotNumber, string(event.Gate), event.LogID, event.Timestamp)

		all, err := slots.ListSlots(ctx)
		if err != nil {
			return fmt.Errorf("counting occupancy: %w", err)
		}
		occupied := 0
		for i := range all {
			if all[i].IsOccupied() {
				occupied++
			}
		}
		w.WriteOccupancy(occupied, len(all), event.Timestamp)
		return nil
	})
}

// Broadcaster is satisfied by the API's WebSocket hub.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// WebSocket channels events are broadcast on.
const (
	ChannelReservations = "reservations"
	ChannelSlots        = "slots"
)

// NewBroadcastSink forwards reservation lifecycle events to the
// reservations channel and the resulting slot state to the slots channel.
func NewBroadcastSink(b Broadcaster) Sink {
	return SinkFunc(func(_ context.Context, event parking.Event) error {
		if event.Type != parking.EventSlotCreated {
			b.Broadcast(ChannelReservations, event)
		}
		b.Broadcast(ChannelSlots, SlotState{
			SlotNumber: event.SlotNumber,
			Status:     event.SlotStatus,
			UpdatedAt:  event.Timestamp,
		})
		return nil
	})
}

// AuditRecorder is satisfied by *audit.Recorder.
type AuditRecorder interface {
	Record(entry *audit.AuditLog)
}

var auditActions = map[string]string{
	parking.EventRegistered:  audit.ActionRegister,
	parking.EventCheckedIn:   audit.ActionCheckIn,
	parking.EventCheckedOut:  audit.ActionCheckOut,
	parking.EventSlotCreated: audit.ActionSlotCreate,
}

// NewAuditSink writes one audit entry per event.
func NewAuditSink(r AuditRecorder) Sink {
	return SinkFunc(func(_ context.Context, event parking.Event) error {
		action, ok := auditActions[event.Type]
		if !ok {
			return fmt.Errorf("no audit action for event %q", event.Type)
		}

		details := map[string]any{}
		if event.LicensePlate != "" {
			details["license_plate"] = event.LicensePlate
		}
		if event.LogID != 0 {
			details["log_id"] = event.LogID
		}
		if event.Gate != "" {
			details["gate"] = string(event.Gate)
		}

		r.Record(&audit.AuditLog{
			Action:     action,
			EntityType: audit.EntitySlot,
			EntityID:   event.SlotNumber,
			Source:     "engine",
			Details:    details,
			CreatedAt:  event.Timestamp,
		})
		return nil
	})
}
