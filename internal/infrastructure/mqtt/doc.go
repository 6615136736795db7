// Package mqtt publishes parking lot state to an MQTT broker.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Retained per-slot state so late subscribers see current occupancy
//   - Reservation lifecycle events
//   - Last Will and Testament (LWT) for offline detection
//
// The core only publishes. Displays, barrier panels and dashboards subscribe.
//
//	Parking Core -> MQTT Broker -> signage / dashboards
//
// # Security Considerations
//
//   - Enable TLS (cfg.Broker.TLS=true) outside a trusted LAN
//   - Payloads never contain one-time codes
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, cfg.Lot.ID)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topic := client.Topics().SlotState("A1")
//	client.PublishRetained(topic, []byte(`{"status":"occupied"}`))
package mqtt
