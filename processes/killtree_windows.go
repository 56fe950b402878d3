//go:build windows

package processes

import (
	"fmt"
	"strconv"
	"syscall"

	"golang.org/x/sys/windows"
)

// TaskKiller kills a process tree with taskkill.
type TaskKiller struct {
	Executor Executor
}

// NewKiller returns the platform kill-tree implementation.
func NewKiller() Killer {
	return &TaskKiller{Executor: &RealExecutor{}}
}

// KillTree runs `taskkill /pid <pid> /t /f`.
func (k *TaskKiller) KillTree(pid int) error {
	if pid <= 0 {
		return fmt.Errorf("invalid pid %d", pid)
	}
	out, err := k.Executor.Run("taskkill", "/pid", strconv.Itoa(pid), "/t", "/f")
	if err != nil {
		return fmt.Errorf("taskkill pid %d: %w (%s)", pid, err, out)
	}
	return nil
}

// The backend is a console program; keep its console window hidden.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: windows.CREATE_NO_WINDOW,
	}
}
