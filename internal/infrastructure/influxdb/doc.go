// Package influxdb provides an optional time-series mirror of device
// check-ins, backed by InfluxDB v2.
//
// The authoritative copy of every check-in lives in the SQLite history
// log; this package duplicates each stored entry as a measurement point
// so that dashboards can chart level, pressure and battery trends
// without polling the HTTP API. It is disabled by default and the rest
// of the system functions identically without it.
//
// Writes are non-blocking and batched. Async write failures surface
// through the SetOnError callback rather than as return values.
//
// Usage:
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	client.SetOnError(func(err error) {
//		log.Warn("influxdb write failed", "error", err)
//	})
//
//	err = client.WriteCheckIn(name, deviceID, entry, level, pressure)
package influxdb
