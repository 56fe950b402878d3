package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"
	"github.com/zserge/lorca"

	"github.com/williamjackson/e2spy/config"
	"github.com/williamjackson/e2spy/history"
	"github.com/williamjackson/e2spy/launcher"
	"github.com/williamjackson/e2spy/paths"
	"github.com/williamjackson/e2spy/processes"
	"github.com/williamjackson/e2spy/readiness"
	"github.com/williamjackson/e2spy/window"
)

const (
	exitOK    = 0
	exitError = 1

	configFileName  = config.FileName
	historyFileName = "launcher.db"
	logFileName     = "launcher.log"
	profileDirName  = "WebView"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	// The data directories are fixed before any subcommand runs or the
	// backend is spawned.
	dirs := paths.Init(paths.Vendor, paths.AppName)

	cmd := newRootCmd(dirs)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "e2spy: %v\n", err)
		return exitError
	}
	return exitOK
}

type launchOptions struct {
	configPath string
	variant    string
	executable string
	entryPoint string
	address    string
	interval   time.Duration
	timeout    time.Duration
	debug      bool
}

func newRootCmd(dirs paths.Directories) *cobra.Command {
	opts := &launchOptions{}
	cmd := &cobra.Command{
		Use:   "e2spy",
		Short: "Launch the E2 Spy backend and show it in a desktop window",
		Long: "e2spy starts the bundled backend, keeps the window hidden until the backend\n" +
			"answers on its address, and stops the backend with all of its children when\n" +
			"the window is closed.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return launch(cmd.Context(), dirs, opts, cmd.Flags().Changed)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default <user data>/"+configFileName+")")
	flags.StringVar(&opts.variant, "variant", "", "window host: native or terminal")
	flags.StringVar(&opts.executable, "backend", "", "backend interpreter or binary")
	flags.StringVar(&opts.entryPoint, "entry", "", "backend entry-point script")
	flags.StringVar(&opts.address, "address", "", "address the backend serves")
	flags.DurationVar(&opts.interval, "interval", 0, "delay between readiness probes")
	flags.DurationVar(&opts.timeout, "timeout", 0, "give up waiting for the backend after this long (0 waits forever)")
	flags.BoolVar(&opts.debug, "debug", false, "log at debug level")

	cmd.AddCommand(newPathsCmd(dirs), newHistoryCmd(dirs))
	return cmd
}

func launch(parent context.Context, dirs paths.Directories, opts *launchOptions, changed func(string) bool) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	baseDir, err := installDir()
	if err != nil {
		return err
	}

	configPath := opts.configPath
	if configPath == "" {
		configPath = dirs.File(configFileName)
	}
	cfg, err := config.Load(configPath, baseDir)
	if err != nil {
		return err
	}
	if err := applyFlags(&cfg, opts, changed); err != nil {
		return err
	}

	// 1. Setup logger. The host is chosen first: the terminal host owns the
	// screen and must not be written over.
	variant, fellBack := resolveVariant(cfg.Window.Variant)
	logger, closeLog := setupLogger(dirs, os.Stderr, variant == config.VariantTerminal, opts.debug)
	defer closeLog()
	slog.SetDefault(logger)
	logger.Info("Starting E2 Spy launcher", "userData", dirs.UserData, "config", configPath, "variant", variant)
	if fellBack {
		logger.Warn("No Chrome or Edge installation found, falling back to the terminal host")
	}

	// 2. Launch history, best effort
	var recorder launcher.Recorder
	historyDB, err := sqlx.Connect("sqlite3", dirs.File(historyFileName))
	if err != nil {
		logger.Warn("Launch history unavailable", "error", err)
	} else {
		defer historyDB.Close()
		historyLogger, err := history.NewLogger(historyDB)
		if err != nil {
			logger.Warn("Launch history unavailable", "error", err)
		} else {
			recorder = historyLogger
		}
	}

	// 3. Backend supervisor
	supervisor, err := processes.NewSupervisor(processes.Config{
		Executable:     cfg.Backend.Executable,
		EntryPoint:     cfg.Backend.EntryPoint,
		UnbufferedFlag: cfg.Backend.UnbufferedFlag,
		WorkDir:        cfg.Backend.WorkDir,
		Env:            []string{"PYTHONUNBUFFERED=1"},
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	// 4. Window host and readiness poller
	host := newHost(variant, cfg, dirs, logger)
	var onAttempt func(readiness.Attempt)
	if reporter, ok := host.(window.ProgressReporter); ok {
		onAttempt = func(a readiness.Attempt) {
			reporter.ReportProgress(a.Number)
		}
	}
	poller := readiness.NewPoller(readiness.Config{
		Prober:    readiness.NewHTTPProber(cfg.Readiness.ProbeTimeout),
		Interval:  cfg.Readiness.Interval,
		Timeout:   cfg.Readiness.Timeout,
		Logger:    logger,
		OnAttempt: onAttempt,
	})

	// 5. Run until the window closes
	coordinator, err := launcher.NewCoordinator(launcher.Config{
		Supervisor: supervisor,
		Poller:     poller,
		Host:       host,
		Address:    cfg.Readiness.Address,
		InitPaths:  dirs.Ensure,
		History:    recorder,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	if err := coordinator.Run(ctx); err != nil {
		return err
	}
	logger.Info("E2 Spy launcher stopped", "session", coordinator.SessionID())
	return nil
}

func applyFlags(cfg *config.Config, opts *launchOptions, changed func(string) bool) error {
	if changed("variant") {
		cfg.Window.Variant = opts.variant
	}
	if changed("backend") {
		cfg.Backend.Executable = opts.executable
	}
	if changed("entry") {
		cfg.Backend.EntryPoint = opts.entryPoint
	}
	if changed("address") {
		cfg.Readiness.Address = opts.address
	}
	if changed("interval") {
		cfg.Readiness.Interval = opts.interval
	}
	if changed("timeout") {
		cfg.Readiness.Timeout = opts.timeout
	}
	return cfg.Validate()
}

// locateChrome finds the browser NativeHost drives.
var locateChrome = lorca.LocateChrome

// resolveVariant returns the host variant that can actually run, and whether
// the native variant had to fall back to the terminal.
func resolveVariant(configured string) (variant string, fellBack bool) {
	if configured == config.VariantNative && locateChrome() == "" {
		return config.VariantTerminal, true
	}
	return configured, false
}

func newHost(variant string, cfg config.Config, dirs paths.Directories, logger *slog.Logger) window.Host {
	if variant == config.VariantNative {
		return window.NewNativeHost(window.NativeConfig{
			Title:      paths.AppName,
			ProfileDir: filepath.Join(dirs.UserData, profileDirName),
			Width:      cfg.Window.Width,
			Height:     cfg.Window.Height,
			Logger:     logger,
		})
	}
	return window.NewTerminalHost(window.TerminalConfig{
		Title:  paths.AppName,
		Logger: logger,
	})
}

// setupLogger logs JSON to stderr and Logs/launcher.log. With fileOnly the
// terminal host owns the screen: logs go to the file, or nowhere when it
// cannot be opened.
func setupLogger(dirs paths.Directories, stderr io.Writer, fileOnly, debug bool) (*slog.Logger, func()) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	out := stderr
	closeFn := func() {}
	logFile, err := openLogFile(dirs)
	switch {
	case err != nil && fileOnly:
		out = io.Discard
	case err != nil:
		fmt.Fprintf(stderr, "e2spy: logging to stderr only: %v\n", err)
	case fileOnly:
		out = logFile
		closeFn = func() { logFile.Close() }
	default:
		out = io.MultiWriter(stderr, logFile)
		closeFn = func() { logFile.Close() }
	}

	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})), closeFn
}

func openLogFile(dirs paths.Directories) (*os.File, error) {
	if err := os.MkdirAll(dirs.Logs, 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(filepath.Join(dirs.Logs, logFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

// installDir is the directory holding the launcher binary. The bundled
// backend is resolved relative to it.
func installDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate launcher executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("resolve launcher executable: %w", err)
	}
	return filepath.Dir(exe), nil
}
