// Package mqtt provides the optional MQTT status publisher for scenemix.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Retained service status with Last Will and Testament (LWT)
//   - Scene-change and session-state event publishing
//
// # Architecture
//
// scenemix itself never consumes MQTT messages; the broker is a one-way
// window for dashboards and home-automation systems that want to observe
// the bridge. Everything the service publishes lives under a single
// configurable prefix:
//
//	scenemix/status          retained service status (online/offline)
//	scenemix/event/scene     scene applied, with action count
//	scenemix/event/session   endpoint session state changes
//
// # Security Considerations
//
//   - TLS is available for brokers that require it (broker.tls: true)
//   - Credentials should come from SCENEMIX_MQTT_USERNAME/_PASSWORD
//   - Payloads carry scene names and session states only, never secrets
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.PublishSceneChange("Main", 4)
//	client.PublishSessionState("mixer", "connected")
package mqtt
