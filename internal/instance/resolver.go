package instance

import (
	"fmt"
	"os"
	"syscall"
	"time"
)

// ConflictStrategy decides what cmd/pulse does when Acquire reports
// another instance already holds the port. Rather than an
// interactive terminal prompt, a
// backend daemon has no TTY to prompt on, so only the non-interactive
// strategies survive.
type ConflictStrategy string

const (
	ConflictExit ConflictStrategy = "exit"
	ConflictKill ConflictStrategy = "kill"
	ConflictPort ConflictStrategy = "port"
)

// ResolveConflict acts on an existing instance per strategy. An empty
// strategy falls back to the PULSE_ON_CONFLICT environment variable, then
// to ConflictExit as the safe default.
func ResolveConflict(m *Manager, existing *PIDFileData, strategy ConflictStrategy) error {
	if strategy == "" {
		strategy = ConflictStrategy(os.Getenv("PULSE_ON_CONFLICT"))
	}
	if strategy == "" {
		strategy = ConflictExit
	}

	switch strategy {
	case ConflictExit:
		return fmt.Errorf("instance: another pulse instance is already running on port %d (pid %d, started %s)",
			existing.Port, existing.PID, existing.StartedAt.Format(time.RFC3339))

	case ConflictKill:
		if err := killProcess(existing.PID); err != nil {
			return fmt.Errorf("instance: kill existing instance (pid %d): %w", existing.PID, err)
		}
		time.Sleep(500 * time.Millisecond)
		return nil

	case ConflictPort:
		newPort := FindAvailablePort(existing.Port + 1)
		if newPort == 0 {
			return fmt.Errorf("instance: no available port found above %d", existing.Port)
		}
		m.SetPort(newPort)
		return nil

	default:
		return fmt.Errorf("instance: unknown conflict strategy %q", strategy)
	}
}

func killProcess(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Signal(syscall.SIGTERM)
}
