package processes

import (
	"os/exec"
	"sync"
	"time"
)

// ProcessLogEntry represents a single line of backend output.
type ProcessLogEntry struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"` // "stdout" or "stderr"
	Message   string    `json:"message"`
	PID       int       `json:"pid"`
}

// LogBuffer maintains a circular buffer of recent backend output.
type LogBuffer struct {
	mu       sync.RWMutex
	entries  []ProcessLogEntry
	capacity int
	nextID   int64
}

// NewLogBuffer creates a new log buffer with the specified capacity.
func NewLogBuffer(capacity int) *LogBuffer {
	if capacity <= 0 {
		capacity = defaultLogCapacity
	}
	return &LogBuffer{
		entries:  make([]ProcessLogEntry, 0, capacity),
		capacity: capacity,
		nextID:   1,
	}
}

// AddEntry appends a line, evicting the oldest one when the buffer is full.
func (lb *LogBuffer) AddEntry(source, message string, pid int) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	entry := ProcessLogEntry{
		ID:        lb.nextID,
		Timestamp: time.Now(),
		Source:    source,
		Message:   message,
		PID:       pid,
	}

	if len(lb.entries) >= lb.capacity {
		lb.entries = lb.entries[1:]
	}
	lb.entries = append(lb.entries, entry)
	lb.nextID++
}

// GetLatestEntries returns the most recent count entries, oldest first.
func (lb *LogBuffer) GetLatestEntries(count int) []ProcessLogEntry {
	lb.mu.RLock()
	defer lb.mu.RUnlock()

	if count <= 0 || len(lb.entries) == 0 {
		return []ProcessLogEntry{}
	}

	start := len(lb.entries) - count
	if start < 0 {
		start = 0
	}

	result := make([]ProcessLogEntry, len(lb.entries)-start)
	copy(result, lb.entries[start:])
	return result
}

// ProcessState is the liveness of the backend process.
type ProcessState int

const (
	// StateNotStarted means no backend has been spawned yet.
	StateNotStarted ProcessState = iota
	// StateRunning means the backend process exists and has not exited.
	StateRunning
	// StateExited means the backend exited on its own.
	StateExited
	// StateKilled means the backend tree was forcibly terminated by Stop.
	StateKilled
)

// String returns a string representation of the ProcessState.
func (ps ProcessState) String() string {
	switch ps {
	case StateNotStarted:
		return "NotStarted"
	case StateRunning:
		return "Running"
	case StateExited:
		return "Exited"
	case StateKilled:
		return "Killed"
	default:
		return "InvalidState"
	}
}

// backendProcess is the handle of the spawned backend. Only Supervisor holds
// one; other packages see its PID and state through Supervisor methods.
type backendProcess struct {
	pid       int
	startTime time.Time
	logs      *LogBuffer

	mu       sync.Mutex
	state    ProcessState
	exitTime time.Time
	exitErr  error

	exited chan struct{} // closed once the OS process is gone
}

// ExitInfo describes how the backend ended.
type ExitInfo struct {
	Err    error // nil for a zero exit status
	Uptime time.Duration
}

func newBackendProcess(cmd *exec.Cmd, logCapacity int) *backendProcess {
	return &backendProcess{
		pid:       cmd.Process.Pid, // cmd has been started
		startTime: time.Now(),
		logs:      NewLogBuffer(logCapacity),
		state:     StateRunning,
		exited:    make(chan struct{}),
	}
}

func (bp *backendProcess) getState() ProcessState {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return bp.state
}

// markKilled moves a running process to StateKilled. It reports false when
// the process had already left StateRunning.
func (bp *backendProcess) markKilled() bool {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	if bp.state != StateRunning {
		return false
	}
	bp.state = StateKilled
	return true
}

// markExited records the exit. A killed process stays killed.
func (bp *backendProcess) markExited(err error) {
	bp.mu.Lock()
	if bp.state == StateRunning {
		bp.state = StateExited
	}
	bp.exitErr = err
	bp.exitTime = time.Now()
	bp.mu.Unlock()
	close(bp.exited)
}

func (bp *backendProcess) exitInfo() (ExitInfo, bool) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	if bp.exitTime.IsZero() {
		return ExitInfo{}, false
	}
	return ExitInfo{Err: bp.exitErr, Uptime: bp.exitTime.Sub(bp.startTime)}, true
}
