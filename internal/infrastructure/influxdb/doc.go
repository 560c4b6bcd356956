// Package influxdb records gateway telemetry in InfluxDB v2.
//
// It wraps the official influxdb-client-go v2 library with non-blocking,
// batched writes. Telemetry is optional; with influxdb.enabled false,
// Connect returns ErrDisabled and the gateway runs without it.
//
// # Measurements
//
//   - lutron_level: device output level (tags object_id, category)
//   - lutron_connection: hub connection state transitions
//   - lutron_remote: remote button presses
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // telemetry off
//	}
//	defer client.Close()
//
//	client.WriteLevel(influxdb.LevelSample{ObjectID: 42, Level: 65535, Percent: 100, At: time.Now()})
package influxdb
