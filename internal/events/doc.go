// Package events fans committed reservation events out to the lot's
// side channels: MQTT, InfluxDB, WebSocket clients and the audit trail.
//
// The Bus is an in-process watermill gochannel pub/sub. The reservation
// engine publishes to it; each Sink gets its own subscription and runs on its
// own goroutine, so a slow or failing sink never delays a reservation or
// another sink.
//
//	bus := events.NewBus(cfg.Events, logger)
//	bus.AddSink("mqtt", events.NewMQTTSink(mqttClient, query))
//	bus.Start(ctx)
//	engine.SetPublisher(bus)
//	defer bus.Close()
//
// Delivery is best effort and unordered across events.
package events
