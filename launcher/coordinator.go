// Package launcher sequences the desktop launcher: prepare the data
// directories, start the backend, keep the window hidden until the backend
// answers, and kill the backend when the window closes.
//
// All lifecycle transitions happen on the goroutine that calls Run. The
// readiness poller and the backend's exit watcher only report to it through
// channels.
package launcher

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/williamjackson/e2spy/history"
	"github.com/williamjackson/e2spy/processes"
	"github.com/williamjackson/e2spy/window"
)

const exitLogLines = 20

// Supervisor is the part of processes.Supervisor the coordinator drives.
type Supervisor interface {
	Start(ctx context.Context) error
	Stop() error
	PID() int
	State() processes.ProcessState
	Exited() <-chan struct{}
	ExitInfo() (processes.ExitInfo, bool)
	Logs(count int) []processes.ProcessLogEntry
}

// Poller is the part of readiness.Poller the coordinator drives.
type Poller interface {
	Start(ctx context.Context, address string) <-chan error
}

// Recorder persists lifecycle events. history.Logger satisfies it.
type Recorder interface {
	Record(sessionID string, eventType history.EventType, state string, pid int, detail string) error
}

// Config holds configuration options for the Coordinator.
type Config struct {
	Supervisor Supervisor
	Poller     Poller
	Host       window.Host
	Address    string       // Backend address to probe and reveal.
	InitPaths  func() error // Optional, runs in StateInitializing.
	History    Recorder     // Optional.
	SessionID  string       // Optional, defaults to a new history session id.
	Logger     *slog.Logger // Optional, defaults to slog.Default().
}

// Coordinator runs one launcher lifecycle.
type Coordinator struct {
	supervisor Supervisor
	poller     Poller
	host       window.Host
	address    string
	initPaths  func() error
	recorder   Recorder
	sessionID  string
	logger     *slog.Logger

	mu          sync.Mutex
	state       State
	transitions []State
	hostOpened  bool
	stopOnce    sync.Once
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(config Config) (*Coordinator, error) {
	if config.Supervisor == nil {
		return nil, fmt.Errorf("Supervisor is required")
	}
	if config.Poller == nil {
		return nil, fmt.Errorf("Poller is required")
	}
	if config.Host == nil {
		return nil, fmt.Errorf("Host is required")
	}
	if strings.TrimSpace(config.Address) == "" {
		return nil, fmt.Errorf("Address is required")
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sessionID := config.SessionID
	if sessionID == "" {
		sessionID = history.NewSessionID()
	}

	return &Coordinator{
		supervisor: config.Supervisor,
		poller:     config.Poller,
		host:       config.Host,
		address:    config.Address,
		initPaths:  config.InitPaths,
		recorder:   config.History,
		sessionID:  sessionID,
		logger:     logger.With("component", "Coordinator", "session", sessionID),
	}, nil
}

// SessionID identifies this run in the launch history.
func (c *Coordinator) SessionID() string {
	return c.sessionID
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Transitions returns every state entered so far, in order.
func (c *Coordinator) Transitions() []State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]State(nil), c.transitions...)
}

// Run drives the lifecycle until the window closes or ctx is cancelled, and
// returns only after the backend has been stopped. The returned error is nil
// for a normal close and a *Error when startup failed.
func (c *Coordinator) Run(ctx context.Context) error {
	c.transition(StateInitializing)
	if c.initPaths != nil {
		if err := c.initPaths(); err != nil {
			return c.shutdown(NewErrorWithCause(ErrorTypeInitialization, "failed to prepare data directories", err))
		}
	}

	c.transition(StateBackendStarting)
	if err := c.supervisor.Start(ctx); err != nil {
		c.record(history.EventSpawnFailed, 0, err.Error())
		return c.shutdown(NewErrorWithCause(ErrorTypeSpawn, "backend could not be started", err))
	}
	pid := c.supervisor.PID()
	c.record(history.EventBackendSpawned, pid, "")

	if err := c.host.Open(ctx); err != nil {
		return c.shutdown(NewErrorWithCause(ErrorTypeWindow, "window could not be opened", err))
	}
	c.mu.Lock()
	c.hostOpened = true
	c.mu.Unlock()

	c.transition(StateAwaitingReady)
	pollCtx, cancelPoll := context.WithCancel(ctx)
	defer cancelPoll()
	ready := c.poller.Start(pollCtx, c.address)
	exited := c.supervisor.Exited()

	for {
		select {
		case err := <-ready:
			ready = nil
			if err != nil {
				if ctx.Err() != nil {
					// Cancellation is handled by the ctx.Done case.
					continue
				}
				return c.shutdown(NewErrorWithCause(ErrorTypeReadiness, "backend did not become ready", err))
			}
			if err := c.host.Reveal(c.address); err != nil {
				return c.shutdown(NewErrorWithCause(ErrorTypeWindow, "window could not show the backend", err))
			}
			c.record(history.EventBackendReady, pid, c.address)
			c.transition(StateReady)

		case <-exited:
			exited = nil
			c.backendExited(pid)

		case <-c.host.Done():
			cancelPoll()
			if err := c.host.Err(); err != nil {
				return c.shutdown(NewErrorWithCause(ErrorTypeWindow, "window host stopped", err))
			}
			c.logger.Info("All windows closed")
			c.record(history.EventWindowClosed, pid, "")
			return c.shutdown(nil)

		case <-ctx.Done():
			c.logger.Info("Launcher interrupted", "error", ctx.Err())
			cancelPoll()
			return c.shutdown(nil)
		}
	}
}

// backendExited reports a backend that went away on its own. Polling keeps
// going; the window close still drives shutdown.
func (c *Coordinator) backendExited(pid int) {
	state := c.State()
	lines := make([]string, 0, exitLogLines)
	for _, entry := range c.supervisor.Logs(exitLogLines) {
		lines = append(lines, entry.Message)
	}
	info, _ := c.supervisor.ExitInfo()
	attrs := []any{"pid", pid, "exitError", info.Err, "uptime", info.Uptime, "lastOutput", strings.Join(lines, "\n")}
	if state == StateAwaitingReady {
		c.logger.Warn("Backend exited before becoming ready", attrs...)
	} else {
		c.logger.Warn("Backend exited", append(attrs, "state", state.String())...)
	}

	detail := fmt.Sprintf("after %s", info.Uptime.Round(time.Millisecond))
	if info.Err != nil {
		detail = fmt.Sprintf("%v after %s", info.Err, info.Uptime.Round(time.Millisecond))
	}
	c.record(history.EventBackendExited, pid, detail)
}

// shutdown stops the backend exactly once, closes the host if it was opened
// and ends in StateTerminated. It returns cause unchanged.
func (c *Coordinator) shutdown(cause error) error {
	c.transition(StateShuttingDown)
	if cause != nil {
		c.logger.Error("Launch failed", "error", cause)
		c.record(history.EventLaunchFailed, c.supervisor.PID(), cause.Error())
	}

	c.stopOnce.Do(func() {
		pid := c.supervisor.PID()
		if err := c.supervisor.Stop(); err != nil {
			c.logger.Debug("Backend stop reported an error", "pid", pid, "error", err)
		}
		// Stop is a no-op for a backend that already exited on its own.
		if pid > 0 && c.supervisor.State() == processes.StateKilled {
			c.record(history.EventBackendKilled, pid, "")
		}
	})

	c.mu.Lock()
	opened := c.hostOpened
	c.mu.Unlock()
	if opened {
		if err := c.host.Close(); err != nil {
			c.logger.Warn("Failed to close window host", "error", err)
		}
	}

	c.transition(StateTerminated)
	return cause
}

func (c *Coordinator) transition(next State) {
	c.mu.Lock()
	prev := c.state
	first := len(c.transitions) == 0
	c.state = next
	c.transitions = append(c.transitions, next)
	c.mu.Unlock()

	if first {
		c.logger.Info("Launcher state changed", "to", next.String())
	} else {
		c.logger.Info("Launcher state changed", "from", prev.String(), "to", next.String())
	}
	c.record(history.EventStateChange, 0, "")
}

func (c *Coordinator) record(eventType history.EventType, pid int, detail string) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.Record(c.sessionID, eventType, c.State().String(), pid, detail); err != nil {
		c.logger.Warn("Failed to record launch event", "event", string(eventType), "error", err)
	}
}
