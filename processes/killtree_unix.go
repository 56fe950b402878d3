//go:build !windows

package processes

import (
	"errors"
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

// GroupKiller kills a process tree by signalling its process group. The
// backend is started as the leader of its own group, so every descendant that
// did not move to another group receives the signal.
type GroupKiller struct{}

// NewKiller returns the platform kill-tree implementation.
func NewKiller() Killer {
	return GroupKiller{}
}

// KillTree sends SIGKILL to the process group led by pid.
func (GroupKiller) KillTree(pid int) error {
	if pid <= 0 {
		return fmt.Errorf("invalid pid %d", pid)
	}
	err := unix.Kill(-pid, unix.SIGKILL)
	if errors.Is(err, unix.ESRCH) {
		// Group leader gone; try the pid alone in case it never got a group.
		err = unix.Kill(pid, unix.SIGKILL)
	}
	if err != nil {
		return fmt.Errorf("kill process group %d: %w", pid, err)
	}
	return nil
}

func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}
