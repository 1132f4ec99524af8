package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

const minimalYAML = `
database:
  path: /tmp/test.db
security:
  jwt:
    secret: test-secret
`

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}

	// Unset values keep their defaults.
	if cfg.API.Port != 8080 {
		t.Errorf("API.Port = %d, want default 8080", cfg.API.Port)
	}
	if cfg.Site.ID != "site-001" {
		t.Errorf("Site.ID = %q, want default", cfg.Site.ID)
	}
	if !cfg.Security.RateLimit.Enabled || cfg.Security.RateLimit.MaxFailures != 5 {
		t.Errorf("RateLimit = %+v, want enabled defaults", cfg.Security.RateLimit)
	}
	if cfg.MQTT.Enabled || cfg.InfluxDB.Enabled {
		t.Error("optional backends enabled by default")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load(missing file) error = nil")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "database: [broken")); err == nil {
		t.Error("Load(bad yaml) error = nil")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CRYOTRACK_DATABASE_PATH", "/env/override.db")
	t.Setenv("CRYOTRACK_API_PORT", "9999")
	t.Setenv("CRYOTRACK_JWT_SECRET", "env-secret")

	cfg, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "/env/override.db" {
		t.Errorf("Database.Path = %q, want env override", cfg.Database.Path)
	}
	if cfg.API.Port != 9999 {
		t.Errorf("API.Port = %d, want 9999", cfg.API.Port)
	}
	if cfg.Security.JWT.Secret != "env-secret" {
		t.Errorf("JWT.Secret = %q, want env override", cfg.Security.JWT.Secret)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := defaultConfig()
		cfg.Security.JWT.Secret = "s"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing jwt secret", func(c *Config) { c.Security.JWT.Secret = "" }, "jwt.secret"},
		{"missing database path", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"bad port", func(c *Config) { c.API.Port = 70000 }, "api.port"},
		{"tls without certs", func(c *Config) { c.API.TLS.Enabled = true }, "api.tls"},
		{"mqtt enabled without host", func(c *Config) {
			c.MQTT.Enabled = true
			c.MQTT.Broker.Host = ""
		}, "mqtt.broker.host"},
		{"influxdb enabled without token", func(c *Config) {
			c.InfluxDB.Enabled = true
			c.InfluxDB.URL = "http://localhost:8086"
		}, "influxdb.token"},
		{"rate limit bad window", func(c *Config) { c.Security.RateLimit.WindowSecs = 0 }, "window_seconds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := defaultConfig()
	if cfg.GetReadTimeout() != 30*time.Second {
		t.Errorf("GetReadTimeout() = %v", cfg.GetReadTimeout())
	}
	if cfg.RateLimitWindow() != 600*time.Second {
		t.Errorf("RateLimitWindow() = %v", cfg.RateLimitWindow())
	}
}
