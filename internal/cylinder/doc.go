// Package cylinder holds the cylinder registry: records, the bounded
// history log, the device-ID identity index, and the access-controlled
// Store that the web API and the telemetry service both operate through.
//
// Records persist as JSON blobs keyed by cylinder name; the field names in
// those blobs are shared with deployed firmware and are load-bearing.
// History entries cap at 1000 per cylinder, oldest dropped first, and
// carry raw ADC readings only; physical level and pressure are recomputed
// from the live calibration every time history is read, so recalibrating a
// cylinder retroactively changes its whole displayed history.
//
// Mutations on the same cylinder serialise through a KeyedMutex shared
// between the Store and the telemetry service.
package cylinder
