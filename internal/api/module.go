package api

import (
	"encoding/json"
	"net/http"

	"github.com/cryotrack/cryotrack-core/internal/telemetry"
)

// moduleBanner is returned when the endpoint is opened without a payload,
// typically by a human in a browser.
const moduleBanner = "CryoTrack Module API\n" +
	"--------------------\n" +
	"This endpoint is for ESP module communication only.\n" +
	"Please use the web interface for human interaction."

// handleModule is the device-facing endpoint. The request is one JSON
// document in the "tm" query parameter; the response is either empty or
// "#"-prefixed compact JSON. Errors are never surfaced to the device:
// malformed, unauthorized, and unknown-device requests all get an empty
// 200, matching firmware expectations of a silent no-op.
func (s *Server) handleModule(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("tm")
	if raw == "" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(moduleBanner)) //nolint:errcheck // best-effort write
		return
	}

	var req telemetry.Request
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		s.logger.Debug("module request dropped: malformed json")
		return
	}

	switch {
	case req.IsProvisioning():
		rec, err := s.telemetry.Provision(r.Context(), &req)
		if err != nil {
			s.logger.Error("provisioning failed", "name", req.CylinderName, "error", err)
			return
		}
		if rec == nil {
			return
		}
		payload, err := telemetry.ProvisionPayload(rec)
		if err != nil {
			s.logger.Error("encoding provisioning response", "name", rec.Name, "error", err)
			return
		}
		s.writeDevicePayload(w, payload)

	case req.IsCheckIn():
		resp, err := s.telemetry.CheckIn(r.Context(), &req)
		if err != nil {
			s.logger.Error("check-in failed", "device_id", req.DeviceID, "error", err)
			return
		}
		if resp == nil {
			return
		}
		payload, err := json.Marshal(resp)
		if err != nil {
			s.logger.Error("encoding check-in response", "device_id", req.DeviceID, "error", err)
			return
		}
		s.writeDevicePayload(w, payload)
	}
	// Neither shape: empty 200, same as a malformed request.
}

// writeDevicePayload writes a "#"-prefixed JSON payload for a device.
func (s *Server) writeDevicePayload(w http.ResponseWriter, payload []byte) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(telemetry.PayloadPrefix)) //nolint:errcheck // best-effort write
	w.Write(payload)                         //nolint:errcheck // best-effort write
}
