// Package mqtt provides the optional MQTT fan-out for CryoTrack Core.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Retained state publishing with QoS guarantees
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// Every accepted device check-in is published retained to
// cryotrack/telemetry/{deviceID}, so dashboards and alerting subscribe to
// the latest state without polling the web API. The feature is disabled by
// default; the core is fully functional without a broker.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{}.Telemetry(deviceID)
//	client.PublishRetained(topic, payload)
package mqtt
