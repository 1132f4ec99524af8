package mqtt

// Topic namespace for CryoTrack Core.
//
// Layout:
//
//	cryotrack/system/status          — core online/offline (retained, LWT)
//	cryotrack/telemetry/{deviceID}   — latest check-in per device (retained)
const topicPrefix = "cryotrack"

// Topics builds the topic strings used by the core. A struct rather than
// free functions so call sites read as a namespace: Topics{}.Telemetry(id).
type Topics struct{}

// SystemStatus returns the core status topic.
func (Topics) SystemStatus() string {
	return topicPrefix + "/system/status"
}

// Telemetry returns the per-device telemetry state topic.
func (Topics) Telemetry(deviceID string) string {
	return topicPrefix + "/telemetry/" + deviceID
}
