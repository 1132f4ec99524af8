package telemetry

import (
	"encoding/json"
	"testing"

	"github.com/cryotrack/cryotrack-core/internal/cylinder"
)

func TestRequestShapes(t *testing.T) {
	t.Run("provisioning request", func(t *testing.T) {
		var req Request
		raw := `{"cc":"tank-01","ssid":"plant-wifi","ssidPsw":"secret","admPsw":"hunter2","company":"acme"}`
		if err := json.Unmarshal([]byte(raw), &req); err != nil {
			t.Fatalf("unmarshal error = %v", err)
		}
		if !req.IsProvisioning() {
			t.Error("IsProvisioning() = false")
		}
		if req.IsCheckIn() {
			t.Error("IsCheckIn() = true for provisioning request")
		}
		if req.CylinderName != "tank-01" || req.SSID != "plant-wifi" || req.AdminProof != "hunter2" {
			t.Errorf("decoded = %+v", req)
		}
	})

	t.Run("check-in request", func(t *testing.T) {
		var req Request
		raw := `{"id":"aB3dE5gH","lADC":512.0,"ubt":3.95,"pADC":210.0,"resp":1}`
		if err := json.Unmarshal([]byte(raw), &req); err != nil {
			t.Fatalf("unmarshal error = %v", err)
		}
		if !req.IsCheckIn() || req.IsProvisioning() {
			t.Error("shape dispatch wrong for check-in")
		}
		if req.LevelADC == nil || *req.LevelADC != 512 {
			t.Error("lADC not decoded")
		}
		if req.Ack == nil || *req.Ack != 1 {
			t.Error("resp not decoded")
		}
	})

	t.Run("absent fields stay nil", func(t *testing.T) {
		var req Request
		if err := json.Unmarshal([]byte(`{"id":"aB3dE5gH"}`), &req); err != nil {
			t.Fatalf("unmarshal error = %v", err)
		}
		if req.LevelADC != nil || req.Battery != nil || req.PressureADC != nil || req.Ack != nil {
			t.Error("absent numeric fields should decode to nil")
		}
	})

	t.Run("zero reading is not absent", func(t *testing.T) {
		var req Request
		if err := json.Unmarshal([]byte(`{"id":"aB3dE5gH","lADC":0,"ubt":0}`), &req); err != nil {
			t.Fatalf("unmarshal error = %v", err)
		}
		if req.LevelADC == nil || *req.LevelADC != 0 {
			t.Error("explicit zero reading must survive decoding")
		}
	})
}

func TestCheckInResponseJSON(t *testing.T) {
	t.Run("pressure fields omitted when disabled", func(t *testing.T) {
		resp := CheckInResponse{LevelSlope: 0.0625, LevelIntercept: -6.25, PendingConfig: 1}
		raw, err := json.Marshal(&resp)
		if err != nil {
			t.Fatalf("marshal error = %v", err)
		}

		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			t.Fatalf("unmarshal error = %v", err)
		}
		for _, key := range []string{"mLvl", "dLvl", "resp"} {
			if _, ok := m[key]; !ok {
				t.Errorf("key %q missing", key)
			}
		}
		if _, ok := m["mPrss"]; ok {
			t.Error("mPrss present without pressure channel")
		}
	})

	t.Run("pressure fields present when set", func(t *testing.T) {
		slope, intercept := 0.25, -12.5
		resp := CheckInResponse{PressureSlope: &slope, PressureIntercept: &intercept}
		raw, err := json.Marshal(&resp)
		if err != nil {
			t.Fatalf("marshal error = %v", err)
		}
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			t.Fatalf("unmarshal error = %v", err)
		}
		if m["mPrss"] != 0.25 || m["dPrss"] != -12.5 {
			t.Errorf("pressure fields = %v/%v", m["mPrss"], m["dPrss"])
		}
	})
}

func TestProvisionPayload(t *testing.T) {
	rec := &cylinder.Record{
		Name:     "tank-01",
		DeviceID: "aB3dE5gH",
		Company:  "acme",
		WiFi: map[string]string{
			"plant-wifi":  "secret",
			"backup-wifi": "fallback",
		},
		Orientation:     "vert",
		Unit:            "L",
		PressureEnabled: 1,
		ReportInterval:  1,
		PendingConfig:   1,
	}

	raw, err := ProvisionPayload(rec)
	if err != nil {
		t.Fatalf("ProvisionPayload() error = %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal error = %v", err)
	}

	if _, ok := m["name"]; ok {
		t.Error("storage-only name key leaked into payload")
	}
	if m["id"] != "aB3dE5gH" {
		t.Errorf("id = %v", m["id"])
	}

	ssids, ok := m["ssid"].([]any)
	if !ok {
		t.Fatalf("ssid is %T, want array", m["ssid"])
	}
	passwords, ok := m["ssidPsw"].([]any)
	if !ok {
		t.Fatalf("ssidPsw is %T, want array", m["ssidPsw"])
	}
	if len(ssids) != 2 || len(passwords) != 2 {
		t.Fatalf("arrays = %d/%d entries, want 2/2", len(ssids), len(passwords))
	}

	// Pairs stay aligned: passwords[i] belongs to ssids[i].
	for i, s := range ssids {
		if rec.WiFi[s.(string)] != passwords[i].(string) {
			t.Errorf("password misaligned for ssid %v", s)
		}
	}
}
