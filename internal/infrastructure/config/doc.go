// Package config loads and validates CryoTrack Core configuration.
//
// Configuration is read from a YAML file, merged over hardcoded defaults,
// and finally overridden by CRYOTRACK_* environment variables. Secrets
// (JWT signing key, broker credentials, InfluxDB token) should always be
// supplied via the environment in production.
//
// # Usage
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
