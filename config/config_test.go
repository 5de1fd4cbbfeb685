package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("missing file should not error: %s", err)
	}
	if cfg.SocketPath == "" {
		t.Errorf("default socket path is empty")
	}
	if cfg.EnableEcho {
		t.Errorf("echo enabled by default")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("default log level is %q", cfg.LogLevel)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := "socket_path = \"/tmp/other.socket\"\nenable_echo = true\nlog_level = \"debug\"\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing config: %s", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("loading config: %s", err)
	}
	if cfg.SocketPath != "/tmp/other.socket" {
		t.Errorf("socket path is %q", cfg.SocketPath)
	}
	if !cfg.EnableEcho {
		t.Errorf("echo not enabled")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log level is %q", cfg.LogLevel)
	}
}

func TestLoadBadTomlFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("socket_path = ["), 0o644); err != nil {
		t.Fatalf("writing config: %s", err)
	}
	if _, err := Load(path); err == nil {
		t.Errorf("malformed config parsed without error")
	}
}
