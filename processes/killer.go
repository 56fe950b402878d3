package processes

import "os/exec"

// Killer forcibly terminates a process together with all of its descendants.
type Killer interface {
	KillTree(pid int) error
}

// Executor runs an external command and returns its output.
type Executor interface {
	Run(name string, args ...string) ([]byte, error)
}

// RealExecutor runs commands with os/exec.
type RealExecutor struct{}

func (r *RealExecutor) Run(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).CombinedOutput()
}

// KillerFunc adapts a function to the Killer interface.
type KillerFunc func(pid int) error

func (f KillerFunc) KillTree(pid int) error {
	return f(pid)
}
