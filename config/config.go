// Package config loads the launcher settings from a TOML file.
//
// Every key is optional. A missing file yields the defaults, which describe
// the shipped layout: an embedded Python runtime in backend/ next to the
// launcher executable, serving on http://localhost:8080.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	// VariantNative shows the backend in a native app window.
	VariantNative = "native"
	// VariantTerminal polls from the terminal and hands the address to the system browser.
	VariantTerminal = "terminal"

	// FileName is the config file name inside the user-data directory.
	FileName = "launcher.toml"

	defaultAddress        = "http://localhost:8080"
	defaultInterval       = 500 * time.Millisecond
	defaultProbeTimeout   = 2 * time.Second
	defaultUnbufferedFlag = "-u"
	defaultWidth          = 1280
	defaultHeight         = 850
)

// Config is the launcher configuration.
type Config struct {
	Backend   Backend
	Readiness Readiness
	Window    Window
}

// Backend describes how the backend is spawned.
type Backend struct {
	Executable     string
	EntryPoint     string
	UnbufferedFlag string
	WorkDir        string
}

// Readiness configures the readiness poller.
type Readiness struct {
	Address      string
	Interval     time.Duration
	ProbeTimeout time.Duration
	Timeout      time.Duration // zero waits forever
}

// Window configures the UI host.
type Window struct {
	Variant string
	Width   int
	Height  int
}

// Default returns the configuration for a launcher installed in baseDir.
func Default(baseDir string) Config {
	return Config{
		Backend: Backend{
			Executable:     filepath.Join(baseDir, "backend", pythonExecutable()),
			EntryPoint:     filepath.Join(baseDir, "backend", "backend", "app.py"),
			UnbufferedFlag: defaultUnbufferedFlag,
		},
		Readiness: Readiness{
			Address:      defaultAddress,
			Interval:     defaultInterval,
			ProbeTimeout: defaultProbeTimeout,
		},
		Window: Window{
			Variant: VariantNative,
			Width:   defaultWidth,
			Height:  defaultHeight,
		},
	}
}

// Load reads the config at path, falling back to defaults when it is missing.
// Relative backend paths are resolved against baseDir.
func Load(path, baseDir string) (Config, error) {
	cfg := Default(baseDir)

	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		Backend struct {
			Executable     string `toml:"executable"`
			EntryPoint     string `toml:"entry_point"`
			UnbufferedFlag string `toml:"unbuffered_flag"`
			WorkDir        string `toml:"work_dir"`
		} `toml:"backend"`
		Readiness struct {
			Address      string `toml:"address"`
			Interval     string `toml:"interval"`
			ProbeTimeout string `toml:"probe_timeout"`
			Timeout      string `toml:"timeout"`
		} `toml:"readiness"`
		Window struct {
			Variant string `toml:"variant"`
			Width   int    `toml:"width"`
			Height  int    `toml:"height"`
		} `toml:"window"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.Backend.Executable); v != "" {
		cfg.Backend.Executable = resolve(baseDir, v)
	}
	if v := strings.TrimSpace(raw.Backend.EntryPoint); v != "" {
		cfg.Backend.EntryPoint = resolve(baseDir, v)
	}
	if v := strings.TrimSpace(raw.Backend.UnbufferedFlag); v != "" {
		cfg.Backend.UnbufferedFlag = v
	}
	if v := strings.TrimSpace(raw.Backend.WorkDir); v != "" {
		cfg.Backend.WorkDir = resolve(baseDir, v)
	}

	if v := strings.TrimSpace(raw.Readiness.Address); v != "" {
		cfg.Readiness.Address = v
	}
	if cfg.Readiness.Interval, err = parseDuration("readiness.interval", raw.Readiness.Interval, cfg.Readiness.Interval); err != nil {
		return Config{}, err
	}
	if cfg.Readiness.ProbeTimeout, err = parseDuration("readiness.probe_timeout", raw.Readiness.ProbeTimeout, cfg.Readiness.ProbeTimeout); err != nil {
		return Config{}, err
	}
	if cfg.Readiness.Timeout, err = parseDuration("readiness.timeout", raw.Readiness.Timeout, cfg.Readiness.Timeout); err != nil {
		return Config{}, err
	}

	if v := strings.TrimSpace(raw.Window.Variant); v != "" {
		cfg.Window.Variant = strings.ToLower(v)
	}
	if raw.Window.Width > 0 {
		cfg.Window.Width = raw.Window.Width
	}
	if raw.Window.Height > 0 {
		cfg.Window.Height = raw.Window.Height
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Backend.Executable) == "" {
		return fmt.Errorf("backend.executable is empty")
	}
	if c.Readiness.Interval <= 0 {
		return fmt.Errorf("readiness.interval must be positive, got %s", c.Readiness.Interval)
	}
	if c.Readiness.Timeout < 0 {
		return fmt.Errorf("readiness.timeout must not be negative, got %s", c.Readiness.Timeout)
	}
	switch c.Window.Variant {
	case VariantNative, VariantTerminal:
	default:
		return fmt.Errorf("window.variant must be %q or %q, got %q", VariantNative, VariantTerminal, c.Window.Variant)
	}
	return nil
}

func parseDuration(key, value string, fallback time.Duration) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func resolve(baseDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

func pythonExecutable() string {
	if runtime.GOOS == "windows" {
		return "python.exe"
	}
	return "python"
}
