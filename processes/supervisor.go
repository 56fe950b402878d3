package processes

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"
)

const (
	defaultUnbufferedFlag = "-u"
	defaultLogCapacity    = 1000
	defaultKillWaitPeriod = 5 * time.Second
	outputDrainPeriod     = 250 * time.Millisecond
)

// Config holds configuration options for the Supervisor.
type Config struct {
	Executable     string       // Path of the backend interpreter or binary.
	EntryPoint     string       // Entry-point script passed after UnbufferedFlag.
	UnbufferedFlag string       // Optional, defaults to "-u".
	WorkDir        string       // Optional, defaults to the current directory.
	Env            []string     // Optional, appended to the inherited environment.
	Killer         Killer       // Optional, defaults to the platform kill-tree.
	Logger         *slog.Logger // Optional, defaults to slog.Default().
	LogCapacity    int          // Optional, lines of backend output kept in memory.
	KillWaitPeriod time.Duration
}

// Supervisor owns the lifecycle of the single backend process: it spawns it,
// captures its output and kills it together with all of its descendants.
type Supervisor struct {
	mu   sync.Mutex
	proc *backendProcess

	executable     string
	args           []string
	workDir        string
	env            []string
	killer         Killer
	logger         *slog.Logger
	logCapacity    int
	killWaitPeriod time.Duration

	wg sync.WaitGroup // output readers and the exit watcher
}

// NewSupervisor creates a Supervisor. The backend is not started.
func NewSupervisor(config Config) (*Supervisor, error) {
	if config.Executable == "" {
		return nil, fmt.Errorf("backend executable is required")
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	flag := config.UnbufferedFlag
	if flag == "" {
		flag = defaultUnbufferedFlag
	}
	killer := config.Killer
	if killer == nil {
		killer = NewKiller()
	}
	capacity := config.LogCapacity
	if capacity == 0 {
		capacity = defaultLogCapacity
	}
	killWait := config.KillWaitPeriod
	if killWait == 0 {
		killWait = defaultKillWaitPeriod
	}

	args := []string{flag}
	if config.EntryPoint != "" {
		args = append(args, config.EntryPoint)
	}

	return &Supervisor{
		executable:     config.Executable,
		args:           args,
		workDir:        config.WorkDir,
		env:            config.Env,
		killer:         killer,
		logger:         logger.With("component", "Supervisor"),
		logCapacity:    capacity,
		killWaitPeriod: killWait,
	}, nil
}

// Start spawns the backend and returns as soon as the OS process exists. It
// does not wait for the backend to become ready. Failures to create the
// process are returned as *SpawnError.
func (s *Supervisor) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.proc != nil && s.proc.getState() == StateRunning {
		return fmt.Errorf("backend already running with pid %d", s.proc.pid)
	}

	// Not CommandContext: cancellation would kill only the top-level PID,
	// the whole tree is taken down by Stop.
	cmd := exec.Command(s.executable, s.args...)
	cmd.Env = append(os.Environ(), s.env...)
	cmd.Dir = s.workDir
	cmd.SysProcAttr = sysProcAttr()

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return &SpawnError{Path: s.executable, Args: s.args, Err: fmt.Errorf("stdout pipe: %w", err)}
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		stdoutPipe.Close()
		return &SpawnError{Path: s.executable, Args: s.args, Err: fmt.Errorf("stderr pipe: %w", err)}
	}

	if err := cmd.Start(); err != nil {
		s.logger.Error("Failed to start backend", "error", err, "command", cmd.String())
		return &SpawnError{Path: s.executable, Args: s.args, Err: err}
	}

	proc := newBackendProcess(cmd, s.logCapacity)
	s.proc = proc
	s.logger.Info("Backend started", "pid", proc.pid, "command", cmd.String(), "dir", cmd.Dir)

	var readers sync.WaitGroup
	readers.Add(2)
	readersDone := make(chan struct{})
	s.wg.Add(4)
	go func() {
		defer s.wg.Done()
		defer readers.Done()
		s.captureOutput(proc, "stdout", stdoutPipe)
	}()
	go func() {
		defer s.wg.Done()
		defer readers.Done()
		s.captureOutput(proc, "stderr", stderrPipe)
	}()
	go func() {
		defer s.wg.Done()
		readers.Wait()
		close(readersDone)
	}()
	go func() {
		defer s.wg.Done()
		// Process.Wait rather than cmd.Wait: descendants can hold the output
		// pipes open long after the backend itself is gone.
		state, err := cmd.Process.Wait()
		if err == nil && !state.Success() {
			err = &exec.ExitError{ProcessState: state}
		}
		// Let the readers catch the last lines before reporting the exit.
		select {
		case <-readersDone:
		case <-time.After(outputDrainPeriod):
		}
		proc.markExited(err)
		s.logger.Info("Backend exited", "pid", proc.pid, "exitError", err, "state", proc.getState().String())
	}()

	return nil
}

func (s *Supervisor) captureOutput(proc *backendProcess, source string, pipe io.ReadCloser) {
	defer pipe.Close()
	scanner := bufio.NewScanner(pipe)
	for scanner.Scan() {
		line := scanner.Text()
		proc.logs.AddEntry(source, line, proc.pid)
		if source == "stderr" {
			s.logger.Warn("Backend stderr", "pid", proc.pid, "output", line)
		} else {
			s.logger.Info("Backend stdout", "pid", proc.pid, "output", line)
		}
	}
	if err := scanner.Err(); err != nil {
		s.logger.Debug("Backend output stream closed", "source", source, "pid", proc.pid, "error", err)
	}
}

// Stop kills the backend and every process it spawned, then marks the handle
// killed. Calling Stop with no backend, or after the backend exited or was
// already killed, does nothing. A failing kill command is not an error.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	proc := s.proc
	if proc == nil {
		s.mu.Unlock()
		s.logger.Debug("Stop called with no backend")
		return nil
	}
	if !proc.markKilled() {
		s.mu.Unlock()
		s.logger.Debug("Backend already stopped", "pid", proc.pid, "state", proc.getState().String())
		return nil
	}
	s.mu.Unlock()

	s.logger.Info("Killing backend process tree", "pid", proc.pid)
	if err := s.killer.KillTree(proc.pid); err != nil {
		s.logger.Debug("Kill tree reported an error, treating backend as stopped", "pid", proc.pid, "error", err)
	}

	timer := time.NewTimer(s.killWaitPeriod)
	defer timer.Stop()
	select {
	case <-proc.exited:
		s.logger.Info("Backend process tree killed", "pid", proc.pid)
	case <-timer.C:
		s.logger.Warn("Backend did not report exit after kill", "pid", proc.pid, "waited", s.killWaitPeriod)
	}
	return nil
}

// PID returns the backend's process id, or 0 if it was never started.
func (s *Supervisor) PID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proc == nil {
		return 0
	}
	return s.proc.pid
}

// State returns the backend's liveness.
func (s *Supervisor) State() ProcessState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proc == nil {
		return StateNotStarted
	}
	return s.proc.getState()
}

// Exited returns a channel that is closed when the backend process exits for
// any reason, even while its descendants still hold its output open. It is
// nil before Start.
func (s *Supervisor) Exited() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proc == nil {
		return nil
	}
	return s.proc.exited
}

// ExitInfo reports the exit status and uptime of a backend that has exited.
// ok is false while the backend runs or before Start.
func (s *Supervisor) ExitInfo() (info ExitInfo, ok bool) {
	s.mu.Lock()
	proc := s.proc
	s.mu.Unlock()
	if proc == nil {
		return ExitInfo{}, false
	}
	return proc.exitInfo()
}

// Logs returns up to count of the most recent backend output lines.
func (s *Supervisor) Logs(count int) []ProcessLogEntry {
	s.mu.Lock()
	proc := s.proc
	s.mu.Unlock()
	if proc == nil {
		return []ProcessLogEntry{}
	}
	return proc.logs.GetLatestEntries(count)
}

// Wait blocks until the exit watcher and the output readers have finished.
// The readers end only once every process holding the output pipes is gone.
func (s *Supervisor) Wait() {
	s.wg.Wait()
}
