package cylinder

import (
	"time"

	"github.com/cryotrack/cryotrack-core/internal/calibration"
)

// TimeFormat is the timestamp layout used in records and history entries.
// It predates this implementation: deployed firmware and exported spreadsheets
// both parse it, so it stays.
const TimeFormat = "2006-01-02 15:04:05"

// Record default values applied at provisioning and admin creation.
const (
	DefaultOrientation    = "vert"
	DefaultUnit           = "L"
	DefaultReportInterval = 1
	HistoryCap            = 1000
)

// Record is the persisted state of one cylinder/device pairing.
//
// JSON field names are the firmware wire contract and must not change: the
// provisioning response serialises the whole record, and ESP modules parse
// these exact keys. The record is stored as a single JSON blob keyed by
// cylinder name.
type Record struct {
	// Name is the human-assigned identifier and the storage key. It is
	// attached on load and stripped before the blob is written.
	Name string `json:"name,omitempty"`

	// DeviceID is the opaque token issued at provisioning. Immutable.
	DeviceID string `json:"id"`

	// WiFi maps SSID to password for every network the device has been
	// provisioned with. Never exposed through the web API.
	WiFi map[string]string `json:"ssid,omitempty"`

	Company    string  `json:"company"`
	Gas        string  `json:"gas,omitempty"`
	GasDensity float64 `json:"gasDens,omitempty"`

	// Volume is the cylinder capacity in Unit, used as the high reference
	// value for level calibration.
	Volume float64 `json:"vol,omitempty"`

	Orientation string `json:"vh"`
	Unit        string `json:"mUnit"`

	// PressureEnabled is 1 when the pressure channel is active, 0 otherwise.
	// Kept as an integer for firmware compatibility.
	PressureEnabled int `json:"prssOn"`

	// ReportInterval is the device check-in interval in hours.
	ReportInterval int `json:"sleep"`

	// PendingConfig is non-zero when the device must re-fetch configuration.
	// The device echoes the value back to acknowledge; see telemetry.CheckIn.
	PendingConfig int `json:"resp"`

	// Most recent raw readings.
	LevelADC    float64  `json:"lADC,omitempty"`
	PressureADC *float64 `json:"pADC,omitempty"`
	Battery     float64  `json:"ubt,omitempty"`

	// LastSeen is the time of the last device contact or calibration,
	// formatted with TimeFormat.
	LastSeen string `json:"lstTm,omitempty"`

	// Level calibration coefficients (zero slope = never calibrated).
	LevelSlope     float64 `json:"mLvl,omitempty"`
	LevelIntercept float64 `json:"dLvl,omitempty"`
	LevelSpread    int     `json:"nLvl,omitempty"`

	// Pressure calibration coefficients.
	PressureSlope     float64 `json:"mPrss,omitempty"`
	PressureIntercept float64 `json:"dPrss,omitempty"`
	PressureSpread    int     `json:"nPrss,omitempty"`
}

// PressureOn reports whether the pressure channel is enabled.
func (r *Record) PressureOn() bool {
	return r.PressureEnabled == 1
}

// LevelCalibration returns the level coefficients, or nil if the cylinder
// has never been level-calibrated.
func (r *Record) LevelCalibration() *calibration.Coefficients {
	if r.LevelSlope == 0 {
		return nil
	}
	return &calibration.Coefficients{
		Slope:       r.LevelSlope,
		Intercept:   r.LevelIntercept,
		PointSpread: r.LevelSpread,
	}
}

// PressureCalibration returns the pressure coefficients, or nil if the
// cylinder has never been pressure-calibrated.
func (r *Record) PressureCalibration() *calibration.Coefficients {
	if r.PressureSlope == 0 {
		return nil
	}
	return &calibration.Coefficients{
		Slope:       r.PressureSlope,
		Intercept:   r.PressureIntercept,
		PointSpread: r.PressureSpread,
	}
}

// ComputedLevel returns the calibrated level for the most recent reading,
// or nil when the cylinder has never been level-calibrated.
func (r *Record) ComputedLevel() *float64 {
	return calibration.Apply(r.LevelADC, r.LevelCalibration())
}

// ComputedPressure returns the calibrated pressure for the most recent
// reading. Nil when pressure is disabled, never calibrated, or no pressure
// reading has arrived. A disabled channel ignores any stored reading.
func (r *Record) ComputedPressure() *float64 {
	if !r.PressureOn() || r.PressureADC == nil {
		return nil
	}
	return calibration.Apply(*r.PressureADC, r.PressureCalibration())
}

// Touch sets LastSeen to the given time.
func (r *Record) Touch(now time.Time) {
	r.LastSeen = now.Format(TimeFormat)
}

// Clone returns an independent copy of the record, including the Wi-Fi map.
func (r *Record) Clone() *Record {
	cpy := *r
	if r.WiFi != nil {
		cpy.WiFi = make(map[string]string, len(r.WiFi))
		for k, v := range r.WiFi {
			cpy.WiFi[k] = v
		}
	}
	if r.PressureADC != nil {
		p := *r.PressureADC
		cpy.PressureADC = &p
	}
	return &cpy
}

// Decorated is a record prepared for web API output: computed level and
// pressure attached, Wi-Fi credentials stripped.
type Decorated struct {
	Record
	Level    *float64       `json:"level"`
	Pressure *float64       `json:"pressure"`
	History  []HistoryEntry `json:"history,omitempty"`
}

// Decorate builds the web API view of a record.
func Decorate(r *Record) Decorated {
	d := Decorated{
		Record:   *r.Clone(),
		Level:    r.ComputedLevel(),
		Pressure: r.ComputedPressure(),
	}
	d.WiFi = nil
	return d
}

// HistoryEntry is one reading in a cylinder's history log. Entries are
// immutable once appended. Level and Pressure are computed at read time from
// the calibration active at that moment and are never stored.
type HistoryEntry struct {
	Timestamp   string   `json:"timestamp"`
	LevelADC    float64  `json:"lADC"`
	PressureADC *float64 `json:"pADC"`
	Battery     float64  `json:"ubt"`

	Level    *float64 `json:"level,omitempty"`
	Pressure *float64 `json:"pressure,omitempty"`
}

// Access is the caller identity passed explicitly into every store
// operation. There is no ambient session state in the core.
type Access struct {
	Role    string
	Company string
}

// Access role and company sentinels.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"

	// CompanyAll is the reserved company sentinel meaning "visible to
	// every role".
	CompanyAll = "all"
)

// IsAdmin reports whether the caller holds the admin role.
func (a Access) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// CanView reports whether the caller may see a record owned by the given
// company. Admins and "all"-company callers see everything.
func (a Access) CanView(recordCompany string) bool {
	if a.IsAdmin() || a.Company == CompanyAll {
		return true
	}
	return recordCompany != "" && recordCompany == a.Company
}

// UpdateFields carries the admin-editable descriptive fields for Update.
// Nil pointers leave the stored value untouched; only these fields are
// writable through the web API.
type UpdateFields struct {
	Company         *string  `json:"company"`
	Gas             *string  `json:"gas"`
	GasDensity      *float64 `json:"gasDens"`
	Volume          *float64 `json:"vol"`
	Orientation     *string  `json:"vh"`
	Unit            *string  `json:"mUnit"`
	PressureEnabled *int     `json:"prssOn"`
	ReportInterval  *int     `json:"sleep"`
}

// Apply copies the set fields onto the record.
func (f UpdateFields) Apply(r *Record) {
	if f.Company != nil {
		r.Company = *f.Company
	}
	if f.Gas != nil {
		r.Gas = *f.Gas
	}
	if f.GasDensity != nil {
		r.GasDensity = *f.GasDensity
	}
	if f.Volume != nil {
		r.Volume = *f.Volume
	}
	if f.Orientation != nil {
		r.Orientation = *f.Orientation
	}
	if f.Unit != nil {
		r.Unit = *f.Unit
	}
	if f.PressureEnabled != nil {
		r.PressureEnabled = *f.PressureEnabled
	}
	if f.ReportInterval != nil {
		r.ReportInterval = *f.ReportInterval
	}
}
