package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/cryotrack/cryotrack-core/internal/cylinder"
)

// CredentialVerifier proves a provisioning request was made by someone who
// knows an admin credential. Implemented by the auth package, including its
// legacy single-password fallback.
type CredentialVerifier interface {
	VerifyAdminPassword(ctx context.Context, password string) bool
}

// Sink receives every successfully stored check-in for fan-out to optional
// backends (MQTT, time-series mirror). Sinks must not block the ingest
// path on failure; errors are theirs to log.
type Sink interface {
	CheckInStored(ctx context.Context, name string, rec *cylinder.Record, entry cylinder.HistoryEntry)
}

// Logger defines the logging interface used by the Service.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Service handles the two device request shapes: provisioning and
// check-in. Both return (nil, nil) when the device should receive no
// response body; the protocol reports nothing to unauthenticated or
// unregistered devices.
//
// The KeyedMutex is shared with the cylinder store, so a check-in can
// never interleave with an admin update of the same record.
type Service struct {
	repo     cylinder.Repository
	hist     cylinder.HistoryRepository
	store    *cylinder.Store
	verifier CredentialVerifier
	locks    *cylinder.KeyedMutex
	sinks    []Sink
	logger   Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewService creates a telemetry service sharing locks and provisioning
// with the given store.
func NewService(repo cylinder.Repository, hist cylinder.HistoryRepository, store *cylinder.Store, verifier CredentialVerifier, locks *cylinder.KeyedMutex) *Service {
	return &Service{
		repo:     repo,
		hist:     hist,
		store:    store,
		verifier: verifier,
		locks:    locks,
		logger:   noopLogger{},
		now:      time.Now,
	}
}

// SetLogger sets the logger for the service.
func (s *Service) SetLogger(logger Logger) {
	s.logger = logger
}

// AddSink registers a fan-out target for stored check-ins.
func (s *Service) AddSink(sink Sink) {
	s.sinks = append(s.sinks, sink)
}

// Provision handles a device that knows its cylinder name but not its
// device ID. A nil record with nil error means the request was dropped
// silently: missing fields, a bad admin proof, and an invalid name all
// look identical to the caller, so probing learns nothing.
//
// For an unknown name a new record is created with config defaults and a
// fresh device ID. For an existing name the offered Wi-Fi network is
// merged into the stored credential set and the pending-config flag is
// raised so the device re-fetches configuration on its next check-in.
// Repeating the same request is harmless either way.
func (s *Service) Provision(ctx context.Context, req *Request) (*cylinder.Record, error) {
	if req.CylinderName == "" || req.SSID == "" || req.SSIDPassword == "" {
		s.logger.Debug("provisioning dropped: missing fields")
		return nil, nil
	}
	if err := cylinder.ValidateName(req.CylinderName); err != nil {
		s.logger.Debug("provisioning dropped: bad name", "name", req.CylinderName)
		return nil, nil
	}
	if !s.verifier.VerifyAdminPassword(ctx, req.AdminProof) {
		s.logger.Warn("provisioning dropped: bad admin credential", "name", req.CylinderName)
		return nil, nil
	}

	s.locks.Lock(req.CylinderName)
	defer s.locks.Unlock(req.CylinderName)

	rec, err := s.repo.Get(ctx, req.CylinderName)
	switch {
	case err == nil:
		if rec.WiFi == nil {
			rec.WiFi = map[string]string{}
		}
		rec.WiFi[req.SSID] = req.SSIDPassword
		rec.PendingConfig = 1
		if err := s.repo.Update(ctx, rec); err != nil {
			return nil, err
		}
		s.logger.Info("device re-provisioned", "name", rec.Name, "device_id", rec.DeviceID)
		return rec, nil

	case errors.Is(err, cylinder.ErrNotFound):
		company := req.Company
		if company == "" {
			company = "Default"
		}
		rec = &cylinder.Record{
			Name:            req.CylinderName,
			WiFi:            map[string]string{req.SSID: req.SSIDPassword},
			Company:         company,
			Orientation:     cylinder.DefaultOrientation,
			Unit:            cylinder.DefaultUnit,
			PressureEnabled: 1,
			ReportInterval:  cylinder.DefaultReportInterval,
			PendingConfig:   1,
		}
		if err := s.store.Provision(ctx, rec); err != nil {
			return nil, err
		}
		s.logger.Info("device provisioned", "name", rec.Name, "device_id", rec.DeviceID)
		return rec, nil

	default:
		return nil, err
	}
}

// CheckIn handles a periodic telemetry report. The record's raw readings
// and last-seen time are updated, a history entry is appended, and exactly
// one response branch applies:
//
//  1. The device acknowledges the current pending-config value: the flag
//     clears and no payload is sent.
//  2. Either calibration has been performed: the coefficients are sent so
//     the device can render locally.
//  3. Otherwise no payload.
//
// An unresolvable or dangling device ID produces (nil, nil): an
// unregistered device should provision first, and gets no hint otherwise.
func (s *Service) CheckIn(ctx context.Context, req *Request) (*CheckInResponse, error) {
	if req.DeviceID == "" || req.LevelADC == nil || req.Battery == nil {
		s.logger.Debug("check-in dropped: missing fields")
		return nil, nil
	}

	name, err := s.repo.ResolveDeviceID(ctx, req.DeviceID)
	if err != nil {
		if errors.Is(err, cylinder.ErrDeviceNotFound) {
			s.logger.Debug("check-in dropped: unknown device", "device_id", req.DeviceID)
			return nil, nil
		}
		return nil, err
	}

	s.locks.Lock(name)
	defer s.locks.Unlock(name)

	rec, err := s.repo.Get(ctx, name)
	if err != nil {
		if errors.Is(err, cylinder.ErrNotFound) {
			// Dangling index entry; treat like an unknown device.
			s.logger.Warn("check-in dropped: dangling index entry",
				"device_id", req.DeviceID, "name", name)
			return nil, nil
		}
		return nil, err
	}

	rec.LevelADC = *req.LevelADC
	rec.Battery = *req.Battery
	rec.Touch(s.now())
	if rec.PressureOn() && req.PressureADC != nil {
		rec.PressureADC = req.PressureADC
	}

	// The log keeps whatever the device reported, even when the pressure
	// channel is disabled on the record.
	entry := cylinder.HistoryEntry{
		Timestamp:   rec.LastSeen,
		LevelADC:    *req.LevelADC,
		PressureADC: req.PressureADC,
		Battery:     *req.Battery,
	}

	var resp *CheckInResponse
	switch {
	case req.Ack != nil && *req.Ack > 0 && *req.Ack == rec.PendingConfig:
		rec.PendingConfig = 0

	case rec.LevelSlope != 0 || rec.PressureSlope != 0:
		resp = &CheckInResponse{
			LevelSlope:     rec.LevelSlope,
			LevelIntercept: rec.LevelIntercept,
			PendingConfig:  rec.PendingConfig,
		}
		if rec.PressureOn() {
			mPrss := rec.PressureSlope
			dPrss := rec.PressureIntercept
			resp.PressureSlope = &mPrss
			resp.PressureIntercept = &dPrss
		}
	}

	if err := s.repo.Update(ctx, rec); err != nil {
		return nil, err
	}
	if err := s.hist.Append(ctx, name, entry); err != nil {
		return nil, err
	}

	s.logger.Debug("check-in stored",
		"name", name, "device_id", req.DeviceID, "level_adc", rec.LevelADC)

	for _, sink := range s.sinks {
		sink.CheckInStored(ctx, name, rec, entry)
	}
	return resp, nil
}
