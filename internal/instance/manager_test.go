package instance

import (
	"path/filepath"
	"testing"
)

func TestAcquireThenReleaseAllowsReacquire(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pulse.pid")

	m1 := NewManager(path, 9001)
	existing, err := m1.Acquire()
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if existing != nil {
		t.Fatalf("expected no existing instance on first acquire, got %+v", existing)
	}

	if err := m1.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}

	m2 := NewManager(path, 9001)
	existing, err = m2.Acquire()
	if err != nil {
		t.Fatalf("second acquire after release: %v", err)
	}
	if existing != nil {
		t.Fatalf("expected lock to be free after release, got %+v", existing)
	}
	m2.Release()
}

func TestAcquireReportsExistingHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pulse.pid")

	m1 := NewManager(path, 9002)
	if _, err := m1.Acquire(); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	defer m1.Release()

	m2 := NewManager(path, 9002)
	existing, err := m2.Acquire()
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if existing == nil {
		t.Fatal("expected second acquire to report the existing holder")
	}
	if existing.Port != 9002 {
		t.Errorf("expected existing port 9002, got %d", existing.Port)
	}
}

func TestResolveConflictPortPicksNewPort(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pulse.pid")
	m := NewManager(path, 9003)

	existing := &PIDFileData{PID: 999999, Port: 9003}
	if err := ResolveConflict(m, existing, ConflictPort); err != nil {
		t.Fatalf("resolve conflict: %v", err)
	}
	if m.Port() == 9003 {
		t.Error("expected ResolveConflict(ConflictPort) to change the port")
	}
}

func TestResolveConflictExitReturnsError(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "pulse.pid"), 9004)
	existing := &PIDFileData{PID: 999999, Port: 9004}

	if err := ResolveConflict(m, existing, ConflictExit); err == nil {
		t.Fatal("expected ConflictExit to return an error")
	}
}

func TestIsPortAvailable(t *testing.T) {
	port := FindAvailablePort(19500)
	if port == 0 {
		t.Fatal("expected to find an available port")
	}
	if !IsPortAvailable(port) {
		t.Errorf("expected port %d to report available", port)
	}
}
