package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := loadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	if cfg.Port != 8133 {
		t.Errorf("Expected default port 8133, got %d", cfg.Port)
	}
	if cfg.SessionTTLMins != 480 {
		t.Errorf("Expected default TTL 480, got %d", cfg.SessionTTLMins)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ctrlos.yml")
	os.WriteFile(path, []byte("port: 9000\ndb_path: /tmp/x.db\nsession_ttl_minutes: 60\n"), 0o644)

	cfg := loadConfig(path)
	if cfg.Port != 9000 || cfg.DBPath != "/tmp/x.db" || cfg.SessionTTLMins != 60 {
		t.Errorf("Config file not applied: %+v", cfg)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ctrlos.yml")
	os.WriteFile(path, []byte("port: 9000\n"), 0o644)

	t.Setenv("CTRLOS_PORT", "9100")
	t.Setenv("CTRLOS_DB", "/tmp/env.db")

	cfg := loadConfig(path)
	if cfg.Port != 9100 {
		t.Errorf("Expected env override 9100, got %d", cfg.Port)
	}
	if cfg.DBPath != "/tmp/env.db" {
		t.Errorf("Expected env db path, got %s", cfg.DBPath)
	}
}

func TestLoadConfigBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ctrlos.yml")
	os.WriteFile(path, []byte("port: 99999\nsession_ttl_minutes: -5\n"), 0o644)

	cfg := loadConfig(path)
	if cfg.Port != 8133 {
		t.Errorf("Out-of-range port must fall back to default, got %d", cfg.Port)
	}
	if cfg.SessionTTLMins != 480 {
		t.Errorf("Negative TTL must fall back to default, got %d", cfg.SessionTTLMins)
	}
}
