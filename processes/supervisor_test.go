package processes

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingKiller counts kill requests and optionally forwards them.
type recordingKiller struct {
	mu    sync.Mutex
	pids  []int
	inner Killer
	err   error
}

func (k *recordingKiller) KillTree(pid int) error {
	k.mu.Lock()
	k.pids = append(k.pids, pid)
	k.mu.Unlock()
	if k.inner != nil {
		return k.inner.KillTree(pid)
	}
	return k.err
}

func (k *recordingKiller) calls() []int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([]int(nil), k.pids...)
}

func TestNewSupervisorRequiresExecutable(t *testing.T) {
	if _, err := NewSupervisor(Config{}); err == nil {
		t.Fatal("Expected error for empty executable")
	}
}

func TestStartMissingExecutable(t *testing.T) {
	killer := &recordingKiller{}
	sup, err := NewSupervisor(Config{
		Executable: filepath.Join(t.TempDir(), "does-not-exist", "python.exe"),
		EntryPoint: "app.py",
		Killer:     killer,
		Logger:     discardLogger(),
	})
	if err != nil {
		t.Fatalf("NewSupervisor failed: %v", err)
	}

	err = sup.Start(context.Background())
	var spawnErr *SpawnError
	if !errors.As(err, &spawnErr) {
		t.Fatalf("Expected *SpawnError, got %v", err)
	}
	if spawnErr.Args[0] != "-u" || spawnErr.Args[1] != "app.py" {
		t.Errorf("Unexpected args %v", spawnErr.Args)
	}
	if sup.State() != StateNotStarted {
		t.Errorf("Expected StateNotStarted, got %s", sup.State())
	}
	if sup.PID() != 0 {
		t.Errorf("Expected PID 0, got %d", sup.PID())
	}
	if sup.Exited() != nil {
		t.Error("Expected nil Exited channel without a backend")
	}

	if err := sup.Stop(); err != nil {
		t.Errorf("Stop after failed start returned %v", err)
	}
	if len(killer.calls()) != 0 {
		t.Errorf("Expected no kill calls, got %v", killer.calls())
	}
}

func TestStartCancelledContext(t *testing.T) {
	sup, err := NewSupervisor(Config{Executable: "python", Logger: discardLogger(), Killer: &recordingKiller{}})
	if err != nil {
		t.Fatalf("NewSupervisor failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sup.Start(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestStopWithoutStart(t *testing.T) {
	killer := &recordingKiller{}
	sup, err := NewSupervisor(Config{Executable: "python", Killer: killer, Logger: discardLogger()})
	if err != nil {
		t.Fatalf("NewSupervisor failed: %v", err)
	}
	if err := sup.Stop(); err != nil {
		t.Errorf("Stop returned %v", err)
	}
	if len(killer.calls()) != 0 {
		t.Errorf("Expected no kill calls, got %v", killer.calls())
	}
}
