package instance

import (
	"fmt"
	"net"
	"net/http"
	"time"
)

// IsPortAvailable checks if a TCP port is free to bind.
func IsPortAvailable(port int) bool {
	l, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return false
	}
	l.Close()
	return true
}

// FindAvailablePort scans up to 20 ports starting at startPort, returning
// the first free one or 0 if none are available.
func FindAvailablePort(startPort int) int {
	const maxAttempts = 20
	for i := 0; i < maxAttempts; i++ {
		port := startPort + i
		if IsPortAvailable(port) {
			return port
		}
	}
	return 0
}

// HealthCheck hits /api/health on port and returns an error unless it
// answers 200 OK.
func HealthCheck(port int) error {
	url := fmt.Sprintf("http://localhost:%d/api/health", port)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("instance: health check: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("instance: health check returned status %d", resp.StatusCode)
	}
	return nil
}

// WaitForPortToBeAvailable polls port until it frees up or timeout elapses.
func WaitForPortToBeAvailable(port int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if IsPortAvailable(port) {
			return true
		}
		time.Sleep(100 * time.Millisecond)
	}
	return false
}
