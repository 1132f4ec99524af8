package telemetry

import (
	"context"
	"encoding/json"

	"github.com/cryotrack/cryotrack-core/internal/cylinder"
	"github.com/cryotrack/cryotrack-core/internal/infrastructure/influxdb"
	"github.com/cryotrack/cryotrack-core/internal/infrastructure/mqtt"
)

// MQTTSink publishes each stored check-in as a retained message on the
// per-device telemetry topic, so late subscribers see the latest state.
type MQTTSink struct {
	client *mqtt.Client
	logger Logger
}

// NewMQTTSink creates a sink backed by a connected MQTT client.
func NewMQTTSink(client *mqtt.Client, logger Logger) *MQTTSink {
	if logger == nil {
		logger = noopLogger{}
	}
	return &MQTTSink{client: client, logger: logger}
}

// mqttCheckIn is the published message shape. Calibrated values are
// omitted until the cylinder has been calibrated.
type mqttCheckIn struct {
	Cylinder    string   `json:"cylinder"`
	DeviceID    string   `json:"device_id"`
	Timestamp   string   `json:"timestamp"`
	LevelADC    float64  `json:"level_adc"`
	PressureADC *float64 `json:"pressure_adc,omitempty"`
	Battery     float64  `json:"battery"`
	Level       *float64 `json:"level,omitempty"`
	Pressure    *float64 `json:"pressure,omitempty"`
}

// CheckInStored implements Sink.
func (s *MQTTSink) CheckInStored(_ context.Context, name string, rec *cylinder.Record, entry cylinder.HistoryEntry) {
	msg := mqttCheckIn{
		Cylinder:    name,
		DeviceID:    rec.DeviceID,
		Timestamp:   entry.Timestamp,
		LevelADC:    entry.LevelADC,
		PressureADC: entry.PressureADC,
		Battery:     entry.Battery,
		Level:       rec.ComputedLevel(),
		Pressure:    rec.ComputedPressure(),
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		s.logger.Warn("mqtt sink marshal failed", "name", name, "error", err)
		return
	}

	topic := mqtt.Topics{}.Telemetry(rec.DeviceID)
	if err := s.client.PublishRetained(topic, payload); err != nil {
		s.logger.Warn("mqtt sink publish failed", "topic", topic, "error", err)
	}
}

// InfluxSink mirrors each stored check-in into the time-series store.
type InfluxSink struct {
	client *influxdb.Client
	logger Logger
}

// NewInfluxSink creates a sink backed by a connected InfluxDB client.
func NewInfluxSink(client *influxdb.Client, logger Logger) *InfluxSink {
	if logger == nil {
		logger = noopLogger{}
	}
	return &InfluxSink{client: client, logger: logger}
}

// CheckInStored implements Sink. The underlying write is buffered and
// non-blocking; only connection-state errors surface here.
func (s *InfluxSink) CheckInStored(_ context.Context, name string, rec *cylinder.Record, entry cylinder.HistoryEntry) {
	err := s.client.WriteCheckIn(name, rec.DeviceID, entry, rec.ComputedLevel(), rec.ComputedPressure())
	if err != nil {
		s.logger.Warn("influxdb sink write failed", "name", name, "error", err)
	}
}
