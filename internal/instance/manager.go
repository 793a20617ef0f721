// Package instance guards cmd/pulse against two processes binding the
// same port: a PID file plus an OS advisory lock, adapted from the
// teacher's Windows-handle-based InstanceManager onto golang.org/x/sys/unix
// flock for this daemon's Linux deployment target.
package instance

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// Manager owns the PID file and advisory lock for one listen port.
type Manager struct {
	pidFilePath string
	port        int
	lockFile    *os.File
}

// PIDFileData is the JSON structure written to the PID file, read back by
// a competing process (or pulsectl) to report who holds the port.
type PIDFileData struct {
	PID       int       `json:"pid"`
	Port      int       `json:"port"`
	StartedAt time.Time `json:"started_at"`
	Hostname  string    `json:"hostname"`
}

// NewManager builds a Manager for pidFilePath/port.
func NewManager(pidFilePath string, port int) *Manager {
	return &Manager{pidFilePath: pidFilePath, port: port}
}

// Port returns the port the manager is currently configured for.
func (m *Manager) Port() int { return m.port }

// SetPort updates the port, used after ResolveConflict picks a different one.
func (m *Manager) SetPort(port int) { m.port = port }

// Acquire takes the exclusive lock and writes the PID file. If another
// process already holds it, Acquire returns that process's PIDFileData
// and a nil error so the caller can decide how to resolve the conflict
// (see ResolveConflict) rather than treating it as a hard failure.
func (m *Manager) Acquire() (*PIDFileData, error) {
	f, err := os.OpenFile(m.pidFilePath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("instance: open pid file: %w", err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		existing, readErr := readPIDFile(m.pidFilePath)
		if readErr != nil {
			return nil, fmt.Errorf("instance: port %d is already held and its pid file is unreadable: %w", m.port, readErr)
		}
		return existing, nil
	}

	m.lockFile = f
	hostname, _ := os.Hostname()
	data := PIDFileData{PID: os.Getpid(), Port: m.port, StartedAt: time.Now(), Hostname: hostname}
	if err := writePIDFile(f, data); err != nil {
		unix.Flock(int(f.Fd()), unix.LOCK_UN)
		f.Close()
		m.lockFile = nil
		return nil, err
	}
	return nil, nil
}

// Release drops the lock, closes and removes the PID file. Safe to call
// even if Acquire never succeeded.
func (m *Manager) Release() error {
	if m.lockFile == nil {
		return nil
	}
	unix.Flock(int(m.lockFile.Fd()), unix.LOCK_UN)
	err := m.lockFile.Close()
	m.lockFile = nil
	os.Remove(m.pidFilePath)
	return err
}

func writePIDFile(f *os.File, data PIDFileData) error {
	if err := f.Truncate(0); err != nil {
		return fmt.Errorf("instance: truncate pid file: %w", err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		return fmt.Errorf("instance: seek pid file: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("instance: write pid file: %w", err)
	}
	return nil
}

func readPIDFile(path string) (*PIDFileData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var data PIDFileData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("instance: parse pid file: %w", err)
	}
	return &data, nil
}
