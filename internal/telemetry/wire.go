package telemetry

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/cryotrack/cryotrack-core/internal/cylinder"
)

// PayloadPrefix marks a device response body as machine-readable. Firmware
// scans for it to distinguish a payload from plain text, so every JSON
// response to a device starts with it.
const PayloadPrefix = "#"

// Request is the single JSON document a device sends in its query
// parameter. The two request shapes share one struct: a provisioning
// request carries CylinderName, a check-in carries DeviceID. Field names
// are the firmware wire contract.
type Request struct {
	// Provisioning fields.
	CylinderName string `json:"cc"`
	SSID         string `json:"ssid"`
	SSIDPassword string `json:"ssidPsw"`
	AdminProof   string `json:"admPsw"`
	Company      string `json:"company"`

	// Check-in fields. Pointers distinguish "absent" from zero.
	DeviceID    string   `json:"id"`
	LevelADC    *float64 `json:"lADC"`
	Battery     *float64 `json:"ubt"`
	PressureADC *float64 `json:"pADC"`
	Ack         *int     `json:"resp"`
}

// IsProvisioning reports whether the request is a provisioning attempt.
// Provisioning is checked before check-in, matching the dispatch order
// devices rely on.
func (r *Request) IsProvisioning() bool {
	return r.CylinderName != ""
}

// IsCheckIn reports whether the request is a telemetry check-in.
func (r *Request) IsCheckIn() bool {
	return r.DeviceID != ""
}

// CheckInResponse is the calibration payload returned to a device when it
// has uncollected configuration. Pressure fields are present only when the
// pressure channel is enabled.
type CheckInResponse struct {
	LevelSlope        float64  `json:"mLvl"`
	LevelIntercept    float64  `json:"dLvl"`
	PendingConfig     int      `json:"resp"`
	PressureSlope     *float64 `json:"mPrss,omitempty"`
	PressureIntercept *float64 `json:"dPrss,omitempty"`
}

// ProvisionPayload serialises a record for a provisioning response. The
// Wi-Fi credential map is flattened into parallel ssid/ssidPsw arrays,
// which the firmware's JSON parser handles more easily than an object, and
// the storage-only name key is stripped.
func ProvisionPayload(rec *cylinder.Record) ([]byte, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encoding record: %w", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("flattening record: %w", err)
	}
	delete(fields, "name")

	ssids := make([]string, 0, len(rec.WiFi))
	for ssid := range rec.WiFi {
		ssids = append(ssids, ssid)
	}
	sort.Strings(ssids)

	passwords := make([]string, len(ssids))
	for i, ssid := range ssids {
		passwords[i] = rec.WiFi[ssid]
	}

	fields["ssid"] = ssids
	fields["ssidPsw"] = passwords

	out, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encoding provisioning payload: %w", err)
	}
	return out, nil
}
