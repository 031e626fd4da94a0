package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("expected no error for missing file, got %v", err)
	}
	if cfg.Analysis.Model != nil || cfg.Serve.Addr != nil || cfg.Log.Level != nil {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
}

func TestLoadConfigDecodesSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
[analysis]
model = "/opt/models/sleep.msgpack"
record = false

[serve]
addr = ":9090"

[log]
level = "debug"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Analysis.Model == nil || *cfg.Analysis.Model != "/opt/models/sleep.msgpack" {
		t.Fatalf("unexpected model path: %v", cfg.Analysis.Model)
	}
	if cfg.Analysis.Record == nil || *cfg.Analysis.Record {
		t.Fatalf("expected record=false, got %v", cfg.Analysis.Record)
	}
	if cfg.Analysis.Data != nil {
		t.Fatalf("expected unset data path")
	}
	if cfg.Serve.Addr == nil || *cfg.Serve.Addr != ":9090" {
		t.Fatalf("unexpected addr: %v", cfg.Serve.Addr)
	}
	if cfg.Log.Level == nil || *cfg.Log.Level != "debug" {
		t.Fatalf("unexpected log level: %v", cfg.Log.Level)
	}
}

func TestLoadConfigRejectsUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[analysis]\nmodle = \"x\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "modle") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestDefaultPathsFollowXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	t.Setenv("XDG_DATA_HOME", "/data")
	if got := DefaultConfigPath(); got != filepath.Join("/cfg", "tuisleep", "config.toml") {
		t.Fatalf("unexpected config path %q", got)
	}
	if got := DefaultModelPath(); got != filepath.Join("/data", "tuisleep", "sleep_model.yaml") {
		t.Fatalf("unexpected model path %q", got)
	}
	if got := DefaultDBPath(); got != filepath.Join("/data", "tuisleep", "tuisleep.db") {
		t.Fatalf("unexpected db path %q", got)
	}
}
