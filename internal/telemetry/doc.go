// Package telemetry implements the device-facing ingestion protocol for
// ESP cylinder modules: provisioning (name in, device ID out) and periodic
// check-ins (raw ADC readings in, calibration payload out when pending).
//
// The wire format is fixed by deployed firmware: one JSON document in a
// query parameter, responses either absent or "#"-prefixed JSON. Failures
// of any kind produce no response body, so probing devices learn nothing.
package telemetry
