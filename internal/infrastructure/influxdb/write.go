package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementReservationEvents = "reservation_events"
	MeasurementOccupancy         = "occupancy"
)

// WriteReservationEvent records one lifecycle transition.
// gateOutcome is empty for transitions without an exit gate.
func (c *Client) WriteReservationEvent(eventType, slotNumber, gateOutcome string, logID int64, at time.Time) {
	if !c.IsConnected() {
		return
	}

	tags := map[string]string{
		"lot_id":      c.lotID,
		"slot_number": slotNumber,
		"event":       eventType,
	}
	if gateOutcome != "" {
		tags["gate"] = gateOutcome
	}

	point := write.NewPoint(
		MeasurementReservationEvents,
		tags,
		map[string]interface{}{
			"count":  1,
			"log_id": logID,
		},
		at,
	)
	c.writeAPI.WritePoint(point)
}

// WriteOccupancy records how many of the lot's slots are occupied.
func (c *Client) WriteOccupancy(occupied, total int, at time.Time) {
	if !c.IsConnected() {
		return
	}

	ratio := 0.0
	if total > 0 {
		ratio = float64(occupied) / float64(total)
	}

	point := write.NewPoint(
		MeasurementOccupancy,
		map[string]string{"lot_id": c.lotID},
		map[string]interface{}{
			"occupied": occupied,
			"total":    total,
			"ratio":    ratio,
		},
		at,
	)
	c.writeAPI.WritePoint(point)
}
