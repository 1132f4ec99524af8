package cylinder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/cryotrack/cryotrack-core/internal/calibration"
)

// defaultHistoryLimit is how many recent entries Get attaches when history
// is requested.
const defaultHistoryLimit = 100

// provisionAttempts bounds device-ID re-rolls on index collision.
const provisionAttempts = 5

// Logger defines the logging interface used by the Store.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Store is the access-controlled cylinder store used by both the web API
// and the device telemetry service. Every operation takes the caller's
// Access explicitly; there is no ambient session state.
//
// Mutating operations on the same cylinder are serialised through a
// KeyedMutex shared with the telemetry service, so a device check-in can
// never interleave with an admin update on the same record.
type Store struct {
	repo   Repository
	hist   HistoryRepository
	audit  calibration.EventRepository
	locks  *KeyedMutex
	logger Logger
}

// NewStore creates a store over the given repositories. The KeyedMutex is
// shared with the telemetry service.
func NewStore(repo Repository, hist HistoryRepository, audit calibration.EventRepository, locks *KeyedMutex) *Store {
	return &Store{
		repo:   repo,
		hist:   hist,
		audit:  audit,
		locks:  locks,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	s.logger = logger
}

// List returns every record the caller may see, decorated with computed
// level/pressure and stripped of Wi-Fi credentials.
func (s *Store) List(ctx context.Context, access Access) ([]Decorated, error) {
	records, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	out := []Decorated{}
	for i := range records {
		if !access.CanView(records[i].Company) {
			continue
		}
		out = append(out, Decorate(&records[i]))
	}
	return out, nil
}

// Get returns a single decorated record, optionally with its recent history
// (computed with the record's current calibration).
//
// Existence is checked before authorisation: an unknown name returns
// ErrNotFound even to callers who could not have viewed it. This leaks
// cylinder existence to unauthorised callers and matches the deployed
// behaviour the web UI depends on.
func (s *Store) Get(ctx context.Context, access Access, name string, withHistory bool) (*Decorated, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	rec, err := s.repo.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	if !access.CanView(rec.Company) {
		return nil, ErrForbidden
	}

	d := Decorate(rec)
	if withHistory {
		entries, err := s.hist.ReadRecent(ctx, name, defaultHistoryLimit)
		if err != nil {
			return nil, err
		}
		d.History = s.computeEntries(rec, entries)
	}
	return &d, nil
}

// History returns a cylinder's entries within the given range, with
// level/pressure computed from the record's current calibration. A zero
// timeRange returns the full log.
func (s *Store) History(ctx context.Context, access Access, name string, timeRange time.Duration) ([]HistoryEntry, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	rec, err := s.repo.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if !access.CanView(rec.Company) {
		return nil, ErrForbidden
	}

	var entries []HistoryEntry
	if timeRange <= 0 {
		entries, err = s.hist.ReadAll(ctx, name)
	} else {
		entries, err = s.hist.ReadSince(ctx, name, time.Now().Add(-timeRange))
	}
	if err != nil {
		return nil, err
	}
	return s.computeEntries(rec, entries), nil
}

// Create provisions a new cylinder from the web API. Admin only. A fresh
// device ID is generated and registered in the identity index; the history
// and calibration logs start empty.
func (s *Store) Create(ctx context.Context, access Access, name, company string) (*Record, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if !access.IsAdmin() {
		return nil, ErrForbidden
	}

	rec := &Record{
		Name:            name,
		Company:         company,
		Orientation:     DefaultOrientation,
		Unit:            DefaultUnit,
		PressureEnabled: 1,
		ReportInterval:  DefaultReportInterval,
		PendingConfig:   1,
	}
	rec.Touch(time.Now())

	s.locks.Lock(name)
	defer s.locks.Unlock(name)

	if err := s.Provision(ctx, rec); err != nil {
		return nil, err
	}

	s.logger.Info("cylinder created", "name", name, "company", company)
	return rec, nil
}

// Provision inserts a record and its identity index entry, generating a
// unique device ID (re-rolled on collision). The caller must hold the
// record's lock. Shared with the telemetry service's provisioning path.
func (s *Store) Provision(ctx context.Context, rec *Record) error {
	if err := s.repo.Create(ctx, rec); err != nil {
		return err
	}

	for attempt := 0; attempt < provisionAttempts; attempt++ {
		id, err := NewDeviceID()
		if err != nil {
			return err
		}

		err = s.repo.CreateIndexEntry(ctx, id, rec.Name)
		if err == nil {
			rec.DeviceID = id
			if err := s.repo.Update(ctx, rec); err != nil {
				return err
			}
			return nil
		}
		if !errors.Is(err, ErrDeviceExists) {
			return err
		}
		// Collision in a 64^8 space; re-roll.
	}
	return fmt.Errorf("provisioning %q: could not allocate device id", rec.Name)
}

// Update applies the admin-editable descriptive fields. Admin only.
func (s *Store) Update(ctx context.Context, access Access, name string, fields UpdateFields) (*Record, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if !access.IsAdmin() {
		return nil, ErrForbidden
	}

	s.locks.Lock(name)
	defer s.locks.Unlock(name)

	rec, err := s.repo.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	fields.Apply(rec)
	if err := s.repo.Update(ctx, rec); err != nil {
		return nil, err
	}

	s.logger.Info("cylinder updated", "name", name)
	return rec, nil
}

// CalibrateLevel performs two-point level calibration against the record's
// configured volume. Admin only. The computed coefficients replace the live
// ones and an audit event is appended.
func (s *Store) CalibrateLevel(ctx context.Context, access Access, name string, lowADC, highADC int) (*Record, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if !access.IsAdmin() {
		return nil, ErrForbidden
	}

	s.locks.Lock(name)
	defer s.locks.Unlock(name)

	rec, err := s.repo.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	coeffs, err := calibration.Level(lowADC, highADC, rec.Volume)
	if err != nil {
		return nil, err
	}

	rec.LevelSlope = coeffs.Slope
	rec.LevelIntercept = coeffs.Intercept
	rec.LevelSpread = coeffs.PointSpread
	rec.Touch(time.Now())

	if err := s.repo.Update(ctx, rec); err != nil {
		return nil, err
	}

	if err := s.audit.Record(ctx, name, &calibration.Event{
		Kind:      calibration.KindLevel,
		LowADC:    lowADC,
		HighADC:   highADC,
		HighValue: rec.Volume,
		Slope:     coeffs.Slope,
		Intercept: coeffs.Intercept,
	}); err != nil {
		return nil, err
	}

	s.logger.Info("level calibration stored",
		"name", name, "slope", coeffs.Slope, "intercept", coeffs.Intercept)
	return rec, nil
}

// CalibratePressure performs two-point pressure calibration. Admin only.
func (s *Store) CalibratePressure(ctx context.Context, access Access, name string, lowADC, highADC int, lowPressure, highPressure float64) (*Record, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if !access.IsAdmin() {
		return nil, ErrForbidden
	}

	s.locks.Lock(name)
	defer s.locks.Unlock(name)

	rec, err := s.repo.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	coeffs, err := calibration.Pressure(lowADC, highADC, lowPressure, highPressure)
	if err != nil {
		return nil, err
	}

	rec.PressureSlope = coeffs.Slope
	rec.PressureIntercept = coeffs.Intercept
	rec.PressureSpread = coeffs.PointSpread
	rec.Touch(time.Now())

	if err := s.repo.Update(ctx, rec); err != nil {
		return nil, err
	}

	if err := s.audit.Record(ctx, name, &calibration.Event{
		Kind:      calibration.KindPressure,
		LowADC:    lowADC,
		HighADC:   highADC,
		LowValue:  lowPressure,
		HighValue: highPressure,
		Slope:     coeffs.Slope,
		Intercept: coeffs.Intercept,
	}); err != nil {
		return nil, err
	}

	s.logger.Info("pressure calibration stored",
		"name", name, "slope", coeffs.Slope, "intercept", coeffs.Intercept)
	return rec, nil
}

// Delete removes a cylinder and its logs. Admin only.
//
// The identity-index entry is removed BEFORE the record and its logs: a
// crash mid-delete may orphan a record, but must never leave a device ID
// resolving to storage that is gone.
func (s *Store) Delete(ctx context.Context, access Access, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if !access.IsAdmin() {
		return ErrForbidden
	}

	s.locks.Lock(name)
	defer s.locks.Unlock(name)

	rec, err := s.repo.Get(ctx, name)
	if err != nil {
		return err
	}

	if rec.DeviceID != "" {
		if err := s.repo.DeleteIndexEntry(ctx, rec.DeviceID); err != nil {
			return err
		}
	}

	if err := s.hist.DeleteAll(ctx, name); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, name); err != nil {
		return err
	}

	s.logger.Info("cylinder deleted", "name", name)
	return nil
}

// CalibrationEvents returns the calibration audit trail for a cylinder.
func (s *Store) CalibrationEvents(ctx context.Context, access Access, name string) ([]calibration.Event, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	rec, err := s.repo.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if !access.CanView(rec.Company) {
		return nil, ErrForbidden
	}

	return s.audit.List(ctx, name)
}

// csvPlaceholder renders missing computed values in exports.
const csvPlaceholder = "-"

// ExportCSV writes the full history log as delimited text. Level and
// pressure columns use the record's current calibration; values that cannot
// be computed render as "-".
func (s *Store) ExportCSV(ctx context.Context, access Access, name string, w io.Writer) error {
	entries, err := s.History(ctx, access, name, 0)
	if err != nil {
		return err
	}

	if _, err := io.WriteString(w, "Timestamp,Level ADC,Level,Pressure ADC,Pressure,Battery\n"); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	for _, e := range entries {
		row := e.Timestamp + "," +
			formatADC(e.LevelADC) + "," +
			formatOptional(e.Level) + "," +
			formatOptionalADC(e.PressureADC) + "," +
			formatOptional(e.Pressure) + "," +
			formatADC(e.Battery) + "\n"
		if _, err := io.WriteString(w, row); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	return nil
}

// computeEntries attaches level/pressure computed from the record's current
// calibration. Pressure is only computed when the channel is enabled.
func (s *Store) computeEntries(rec *Record, entries []HistoryEntry) []HistoryEntry {
	levelCal := rec.LevelCalibration()
	pressureCal := rec.PressureCalibration()

	out := make([]HistoryEntry, len(entries))
	for i, e := range entries {
		e.Level = calibration.Apply(e.LevelADC, levelCal)
		if rec.PressureOn() && e.PressureADC != nil {
			e.Pressure = calibration.Apply(*e.PressureADC, pressureCal)
		}
		out[i] = e
	}
	return out
}

func formatADC(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return csvPlaceholder
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatOptionalADC(v *float64) string {
	if v == nil {
		return csvPlaceholder
	}
	return formatADC(*v)
}
