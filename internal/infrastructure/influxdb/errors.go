package influxdb

import "errors"

// Sentinel errors for InfluxDB operations. Wrapped errors carry
// context; use errors.Is for comparison.
var (
	// ErrDisabled indicates the InfluxDB mirror is disabled in configuration.
	ErrDisabled = errors.New("influxdb disabled")

	// ErrNotConnected indicates an operation was attempted without a connection.
	ErrNotConnected = errors.New("influxdb not connected")

	// ErrConnectionFailed indicates the connection attempt failed.
	ErrConnectionFailed = errors.New("influxdb connection failed")
)
