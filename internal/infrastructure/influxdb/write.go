package influxdb

import (
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"

	"github.com/cryotrack/cryotrack-core/internal/cylinder"
)

// checkinMeasurement is the measurement name for mirrored device check-ins.
const checkinMeasurement = "checkin"

// WriteCheckIn mirrors a stored device check-in as a time-series point.
// Raw ADC readings and battery voltage are always written; calibrated
// level and pressure only when the cylinder has calibration applied.
//
// The write is non-blocking: the point is buffered and flushed in
// batches. Failures surface through the SetOnError callback.
func (c *Client) WriteCheckIn(name, deviceID string, entry cylinder.HistoryEntry, level, pressure *float64) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	ts, err := time.Parse(cylinder.TimeFormat, entry.Timestamp)
	if err != nil {
		ts = time.Now()
	}

	fields := map[string]any{
		"level_adc": entry.LevelADC,
		"battery":   entry.Battery,
	}
	if entry.PressureADC != nil {
		fields["pressure_adc"] = *entry.PressureADC
	}
	if level != nil {
		fields["level"] = *level
	}
	if pressure != nil {
		fields["pressure"] = *pressure
	}

	point := influxdb2.NewPoint(
		checkinMeasurement,
		map[string]string{
			"cylinder":  name,
			"device_id": deviceID,
		},
		fields,
		ts,
	)

	c.writeAPI.WritePoint(point)

	return nil
}
