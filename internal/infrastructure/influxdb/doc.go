// Package influxdb records parking lot time series in InfluxDB v2.
//
// This package provides:
//   - Reservation lifecycle events (registered, checked in, checked out)
//   - Lot occupancy samples (occupied and total slots)
//   - Health monitoring
//
// # Data Model
//
// Measurements:
//   - reservation_events: tags(lot_id, slot_number, event, gate) fields(count, log_id)
//   - occupancy: tags(lot_id) fields(occupied, total, ratio)
//
// Writes are non-blocking and batched. Write errors are reported through
// the SetOnError callback and never reach the reservation path.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB, cfg.Lot.ID)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteOccupancy(3, 10, time.Now())
package influxdb
