package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	base := t.TempDir()
	cfg, err := Load(filepath.Join(base, "missing.toml"), base)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Readiness.Address != "http://localhost:8080" {
		t.Errorf("Address = %q", cfg.Readiness.Address)
	}
	if cfg.Readiness.Interval != 500*time.Millisecond {
		t.Errorf("Interval = %v", cfg.Readiness.Interval)
	}
	if cfg.Readiness.Timeout != 0 {
		t.Errorf("Timeout = %v, want 0 (wait forever)", cfg.Readiness.Timeout)
	}
	if cfg.Backend.UnbufferedFlag != "-u" {
		t.Errorf("UnbufferedFlag = %q", cfg.Backend.UnbufferedFlag)
	}
	if !strings.HasPrefix(cfg.Backend.Executable, filepath.Join(base, "backend")) {
		t.Errorf("Executable = %q, want it under %s", cfg.Backend.Executable, base)
	}
	if cfg.Backend.EntryPoint != filepath.Join(base, "backend", "backend", "app.py") {
		t.Errorf("EntryPoint = %q", cfg.Backend.EntryPoint)
	}
	if cfg.Window.Variant != VariantNative {
		t.Errorf("Variant = %q", cfg.Window.Variant)
	}
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("", "/opt/e2spy")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg != Default("/opt/e2spy") {
		t.Errorf("Expected defaults, got %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	base := t.TempDir()
	path := writeConfig(t, `
[backend]
executable = "runtime/python3"
entry_point = "/srv/app.py"
work_dir = "work"

[readiness]
address = "http://127.0.0.1:9090"
interval = "250ms"
probe_timeout = "1s"
timeout = "2m"

[window]
variant = "Terminal"
width = 1024
`)

	cfg, err := Load(path, base)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Backend.Executable != filepath.Join(base, "runtime", "python3") {
		t.Errorf("Executable = %q", cfg.Backend.Executable)
	}
	if cfg.Backend.EntryPoint != "/srv/app.py" {
		t.Errorf("EntryPoint = %q", cfg.Backend.EntryPoint)
	}
	if cfg.Backend.WorkDir != filepath.Join(base, "work") {
		t.Errorf("WorkDir = %q", cfg.Backend.WorkDir)
	}
	if cfg.Backend.UnbufferedFlag != "-u" {
		t.Errorf("UnbufferedFlag = %q", cfg.Backend.UnbufferedFlag)
	}
	if cfg.Readiness.Address != "http://127.0.0.1:9090" {
		t.Errorf("Address = %q", cfg.Readiness.Address)
	}
	if cfg.Readiness.Interval != 250*time.Millisecond {
		t.Errorf("Interval = %v", cfg.Readiness.Interval)
	}
	if cfg.Readiness.ProbeTimeout != time.Second {
		t.Errorf("ProbeTimeout = %v", cfg.Readiness.ProbeTimeout)
	}
	if cfg.Readiness.Timeout != 2*time.Minute {
		t.Errorf("Timeout = %v", cfg.Readiness.Timeout)
	}
	if cfg.Window.Variant != VariantTerminal {
		t.Errorf("Variant = %q", cfg.Window.Variant)
	}
	if cfg.Window.Width != 1024 || cfg.Window.Height != 850 {
		t.Errorf("Window size = %dx%d", cfg.Window.Width, cfg.Window.Height)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name     string
		contents string
	}{
		{"bad toml", "[backend\nexecutable = 1"},
		{"bad interval", "[readiness]\ninterval = \"soon\""},
		{"zero interval", "[readiness]\ninterval = \"0s\""},
		{"negative timeout", "[readiness]\ntimeout = \"-1s\""},
		{"unknown variant", "[window]\nvariant = \"electron\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.contents), t.TempDir()); err == nil {
				t.Errorf("Expected error for %s", tt.name)
			}
		})
	}
}
